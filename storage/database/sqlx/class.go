package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/school"
)

func (repo schoolRepository) CreateClass(ctx context.Context, cls school.Class, owner school.ClassMember, _ ...core.DBExecutor) (school.Class, error) {
	// class + owner membership must be observable together
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return school.Class{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	cls.ID = uuid.New().String()
	row := boilClass(cls)
	if _, err = sqlx.NamedExecContext(ctx, tx, `
		INSERT INTO class (id, name, school_name, invite_code, created_by, created_at)
		VALUES (:id, :name, :school_name, :invite_code, :created_by, :created_at)`, row,
	); err != nil {
		if isUniqueViolation(err, classInviteCodeKey) {
			return school.Class{}, school.ErrCodeExists
		}
		return school.Class{}, errors.Wrap(err, "inserting class")
	}

	owner.ID = uuid.New().String()
	owner.ClassID = cls.ID
	if _, err = sqlx.NamedExecContext(ctx, tx, `
		INSERT INTO class_member (id, class_id, user_id, role, linked_student_id, joined_at)
		VALUES (:id, :class_id, :user_id, :role, :linked_student_id, :joined_at)`, boilMember(owner),
	); err != nil {
		return school.Class{}, errors.Wrap(err, "inserting owner membership")
	}

	if err = tx.Commit(); err != nil {
		return school.Class{}, errors.Wrap(err, "committing transaction")
	}
	return row.class(), nil
}

func (repo schoolRepository) GetClass(ctx context.Context, filter school.ClassFilter, exec ...core.DBExecutor) (school.Class, error) {
	var row classRow
	var err error
	exe := getExec(repo.db, exec)

	if filter.ID != "" {
		if _, err = uuid.Parse(filter.ID); err != nil {
			return school.Class{}, school.ErrClassNotFound
		}
		err = sqlx.GetContext(ctx, exe, &row, `SELECT * FROM class WHERE id = $1`, filter.ID)
	} else {
		err = sqlx.GetContext(ctx, exe, &row, `SELECT * FROM class WHERE invite_code = $1`, filter.InviteCode)
	}
	if err != nil {
		return school.Class{}, trapNoRowsErr(err, school.ErrClassNotFound, "finding class")
	}
	return row.class(), nil
}

func (repo schoolRepository) QueryUserClasses(ctx context.Context, userID string, exec ...core.DBExecutor) ([]school.ClassInfo, error) {
	var rows []struct {
		classRow
		MyRole      string `db:"my_role"`
		MemberCount int    `db:"member_count"`
	}
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, `
		SELECT c.*, m.role AS my_role,
		       (SELECT COUNT(*) FROM class_member cm WHERE cm.class_id = c.id) AS member_count
		FROM class c
		JOIN class_member m ON m.class_id = c.id AND m.user_id = $1
		ORDER BY c.created_at, c.id`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying user classes")
	}

	infos := make([]school.ClassInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, school.ClassInfo{
			Class:       row.class(),
			MemberCount: row.MemberCount,
			MyRole:      row.MyRole,
		})
	}
	return infos, nil
}

func (repo schoolRepository) DeleteClass(ctx context.Context, id string, exec ...core.DBExecutor) error {
	// subjects, assignments, memberships and completions go with it (FK cascade)
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM class WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.ErrClassNotFound
	}
	return nil
}

func (repo schoolRepository) CountAssignments(ctx context.Context, classID string, exec ...core.DBExecutor) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &count,
		`SELECT COUNT(*) FROM assignment WHERE class_id = $1`, classID)
	if err != nil {
		return 0, errors.Wrap(err, "counting assignments")
	}
	return count, nil
}

// Members

func (repo schoolRepository) GetMembership(ctx context.Context, classID, userID string, exec ...core.DBExecutor) (school.ClassMember, error) {
	var row memberRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT * FROM class_member WHERE class_id = $1 AND user_id = $2`, classID, userID)
	if err != nil {
		return school.ClassMember{}, trapNoRowsErr(err, school.ErrNotMember, "finding membership")
	}
	return row.member(), nil
}

func (repo schoolRepository) CreateMembership(ctx context.Context, mbr school.ClassMember, exec ...core.DBExecutor) (school.ClassMember, error) {
	mbr.ID = uuid.New().String()
	_, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), `
		INSERT INTO class_member (id, class_id, user_id, role, linked_student_id, joined_at)
		VALUES (:id, :class_id, :user_id, :role, :linked_student_id, :joined_at)`, boilMember(mbr))
	if err != nil {
		if isUniqueViolation(err, classMemberClassUserKey) {
			return school.ClassMember{}, school.ErrAlreadyMember
		}
		return school.ClassMember{}, errors.Wrap(err, "inserting membership")
	}
	return mbr, nil
}

func (repo schoolRepository) DeleteMembership(ctx context.Context, classID, userID string, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx,
		`DELETE FROM class_member WHERE class_id = $1 AND user_id = $2`, classID, userID)
	if err != nil {
		return errors.Wrap(err, "deleting membership")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.ErrNotMember
	}
	return nil
}

func (repo schoolRepository) QueryMembers(ctx context.Context, classID string, exec ...core.DBExecutor) ([]school.ClassMember, error) {
	var rows []struct {
		memberRow
		User userRow `db:"user"`
	}
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, `
		SELECT m.id, m.class_id, m.user_id, m.role, m.linked_student_id, m.joined_at,
		       u.id AS "user.id", u.telegram_id AS "user.telegram_id", u.name AS "user.name",
		       u.avatar_url AS "user.avatar_url", u.role AS "user.role", u.created_at AS "user.created_at"
		FROM class_member m
		JOIN app_user u ON u.id = m.user_id
		WHERE m.class_id = $1
		ORDER BY m.joined_at, m.id`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying members")
	}

	members := make([]school.ClassMember, 0, len(rows))
	for _, row := range rows {
		mbr := row.member()
		usr := row.User.user()
		mbr.User = &usr
		members = append(members, mbr)
	}
	return members, nil
}
