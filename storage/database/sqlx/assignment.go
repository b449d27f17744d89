package sqlxrepos

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/school"
)

const dateFormat = "2006-01-02"

// assignment ordering fields allowed from the API
var assignmentOrderFields = map[string]string{
	"due_date":   "due_date",
	"created_at": "created_at",
}

type assignmentRow struct {
	ID          string    `db:"id"`
	ClassID     string    `db:"class_id"`
	SubjectID   string    `db:"subject_id"`
	DueDate     time.Time `db:"due_date"`
	Content     string    `db:"content"`
	Attachments []byte    `db:"attachments"` // JSONB
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func boilAssignment(asg school.Assignment) (assignmentRow, error) {
	due, err := time.Parse(dateFormat, asg.DueDate)
	if err != nil {
		return assignmentRow{}, errors.Wrapf(err, "parsing due date %q", asg.DueDate)
	}
	atts := asg.Attachments
	if atts == nil {
		atts = []school.Attachment{}
	}
	attsJSON, err := json.Marshal(atts)
	if err != nil {
		return assignmentRow{}, errors.Wrap(err, "marshaling attachments")
	}
	return assignmentRow{
		ID:          asg.ID,
		ClassID:     asg.ClassID,
		SubjectID:   asg.SubjectID,
		DueDate:     due,
		Content:     asg.Content,
		Attachments: attsJSON,
		CreatedBy:   asg.CreatedBy,
		CreatedAt:   asg.CreatedAt.UTC(),
		UpdatedAt:   asg.UpdatedAt.UTC(),
	}, nil
}

func (row assignmentRow) assignment() (school.Assignment, error) {
	atts := make([]school.Attachment, 0)
	if len(row.Attachments) > 0 {
		if err := json.Unmarshal(row.Attachments, &atts); err != nil {
			return school.Assignment{}, errors.Wrap(err, "unmarshaling attachments")
		}
	}
	return school.Assignment{
		ID:          row.ID,
		ClassID:     row.ClassID,
		SubjectID:   row.SubjectID,
		DueDate:     row.DueDate.Format(dateFormat),
		Content:     row.Content,
		Attachments: atts,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func (repo schoolRepository) CreateAssignment(ctx context.Context, asg school.Assignment, exec ...core.DBExecutor) (school.Assignment, error) {
	asg.ID = uuid.New().String()
	row, err := boilAssignment(asg)
	if err != nil {
		return school.Assignment{}, err
	}
	if _, err = sqlx.NamedExecContext(ctx, getExec(repo.db, exec), `
		INSERT INTO assignment (id, class_id, subject_id, due_date, content, attachments, created_by, created_at, updated_at)
		VALUES (:id, :class_id, :subject_id, :due_date, :content, :attachments, :created_by, :created_at, :updated_at)`, row,
	); err != nil {
		return school.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return row.assignment()
}

func (repo schoolRepository) GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (school.Assignment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Assignment{}, school.ErrAssignmentNotFound
	}
	var row assignmentRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row, `SELECT * FROM assignment WHERE id = $1`, id)
	if err != nil {
		return school.Assignment{}, trapNoRowsErr(err, school.ErrAssignmentNotFound, "finding assignment")
	}
	return row.assignment()
}

func (repo schoolRepository) QueryAssignments(ctx context.Context, filter school.AssignmentFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Assignment, error) {
	where := []string{"class_id = $1"}
	args := []interface{}{filter.ClassID}

	if filter.Date != "" {
		args = append(args, filter.Date)
		where = append(where, fmt.Sprintf("due_date = $%d", len(args)))
	} else {
		if filter.From != "" {
			args = append(args, filter.From)
			where = append(where, fmt.Sprintf("due_date >= $%d", len(args)))
		}
		if filter.To != "" {
			args = append(args, filter.To)
			where = append(where, fmt.Sprintf("due_date <= $%d", len(args)))
		}
	}

	orderBy := "due_date, created_at"
	if orderList := buildAssignmentOrdering(ordering); len(orderList) > 0 {
		orderBy = strings.Join(orderList, ", ")
	}

	query := fmt.Sprintf(
		"SELECT * FROM assignment WHERE %s ORDER BY %s",
		strings.Join(where, " AND "), orderBy,
	)
	var rows []assignmentRow
	if err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}

	asgs := make([]school.Assignment, 0, len(rows))
	for _, row := range rows {
		asg, err := row.assignment()
		if err != nil {
			return nil, err
		}
		asgs = append(asgs, asg)
	}
	return asgs, nil
}

// buildAssignmentOrdering keeps only known fields; anything else is ignored.
func buildAssignmentOrdering(ordering []core.DBOrdering) []string {
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if field, ok := assignmentOrderFields[ord.Field]; ok {
			orderList = append(orderList, core.DBOrdering{Field: field, Ascending: ord.Ascending}.String())
		}
	}
	return orderList
}

func (repo schoolRepository) UpdateAssignment(ctx context.Context, asg school.Assignment, exec ...core.DBExecutor) (school.Assignment, error) {
	row, err := boilAssignment(asg)
	if err != nil {
		return school.Assignment{}, err
	}
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), `
		UPDATE assignment
		SET subject_id = :subject_id, due_date = :due_date, content = :content,
		    attachments = :attachments, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return school.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.Assignment{}, school.ErrAssignmentNotFound
	}
	return row.assignment()
}

func (repo schoolRepository) DeleteAssignment(ctx context.Context, id string, exec ...core.DBExecutor) error {
	// completions cascade (FK)
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM assignment WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.ErrAssignmentNotFound
	}
	return nil
}

// Completions

type completionRow struct {
	ID           string    `db:"id"`
	AssignmentID string    `db:"assignment_id"`
	UserID       string    `db:"user_id"`
	Completed    bool      `db:"completed"`
	CompletedAt  null.Time `db:"completed_at"`
}

func (row completionRow) completion() school.Completion {
	return school.Completion{
		ID:           row.ID,
		AssignmentID: row.AssignmentID,
		UserID:       row.UserID,
		Completed:    row.Completed,
		CompletedAt:  row.CompletedAt,
	}
}

func (repo schoolRepository) UpsertCompletion(ctx context.Context, cpl school.Completion, exec ...core.DBExecutor) (school.Completion, error) {
	var row completionRow
	err := getExec(repo.db, exec).QueryRowxContext(ctx, `
		INSERT INTO completion (id, assignment_id, user_id, completed, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (assignment_id, user_id)
		DO UPDATE SET completed = EXCLUDED.completed, completed_at = EXCLUDED.completed_at
		RETURNING *`,
		uuid.New().String(), cpl.AssignmentID, cpl.UserID, cpl.Completed, cpl.CompletedAt,
	).StructScan(&row)
	if err != nil {
		return school.Completion{}, errors.Wrap(err, "upserting completion")
	}
	return row.completion(), nil
}

func (repo schoolRepository) QueryCompletions(ctx context.Context, userID string, assignmentIDs []string, exec ...core.DBExecutor) ([]school.Completion, error) {
	var rows []completionRow
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, `
		SELECT * FROM completion WHERE user_id = $1 AND assignment_id = ANY($2)`,
		userID, pq.Array(assignmentIDs))
	if err != nil {
		return nil, errors.Wrap(err, "querying completions")
	}

	cpls := make([]school.Completion, 0, len(rows))
	for _, row := range rows {
		cpls = append(cpls, row.completion())
	}
	return cpls, nil
}
