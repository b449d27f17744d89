package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/school"
)

type subjectRow struct {
	ID        string    `db:"id"`
	ClassID   string    `db:"class_id"`
	Name      string    `db:"name"`
	Emoji     string    `db:"emoji"`
	Color     string    `db:"color"`
	SortOrder int       `db:"sort_order"`
	CreatedAt time.Time `db:"created_at"`
}

func (row subjectRow) subject() school.Subject {
	return school.Subject{
		ID:        row.ID,
		ClassID:   row.ClassID,
		Name:      row.Name,
		Emoji:     row.Emoji,
		Color:     row.Color,
		SortOrder: row.SortOrder,
		CreatedAt: row.CreatedAt,
	}
}

func (repo schoolRepository) CreateSubject(ctx context.Context, sub school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	sub.ID = uuid.New().String()
	// next sort position within the class, in the same statement
	err := getExec(repo.db, exec).QueryRowxContext(ctx, `
		INSERT INTO subject (id, class_id, name, emoji, color, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5,
		        (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM subject WHERE class_id = $2), $6)
		RETURNING sort_order`,
		sub.ID, sub.ClassID, sub.Name, sub.Emoji, sub.Color, sub.CreatedAt.UTC(),
	).Scan(&sub.SortOrder)
	if err != nil {
		return school.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo schoolRepository) GetSubject(ctx context.Context, id string, exec ...core.DBExecutor) (school.Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Subject{}, school.ErrSubjectNotFound
	}
	var row subjectRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row, `SELECT * FROM subject WHERE id = $1`, id)
	if err != nil {
		return school.Subject{}, trapNoRowsErr(err, school.ErrSubjectNotFound, "finding subject")
	}
	return row.subject(), nil
}

func (repo schoolRepository) QuerySubjects(ctx context.Context, classID string, exec ...core.DBExecutor) ([]school.Subject, error) {
	var rows []subjectRow
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, `
		SELECT * FROM subject WHERE class_id = $1
		ORDER BY sort_order, created_at`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}

	subjects := make([]school.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, row.subject())
	}
	return subjects, nil
}

func (repo schoolRepository) UpdateSubject(ctx context.Context, sub school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `
		UPDATE subject SET name = $2, emoji = $3, color = $4 WHERE id = $1`,
		sub.ID, sub.Name, sub.Emoji, sub.Color)
	if err != nil {
		return school.Subject{}, errors.Wrap(err, "updating subject")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.Subject{}, school.ErrSubjectNotFound
	}
	return sub, nil
}

func (repo schoolRepository) DeleteSubject(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM subject WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.ErrSubjectNotFound
	}
	return nil
}
