package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/school"
)

type reminderRow struct {
	ID      string        `db:"id"`
	UserID  string        `db:"user_id"`
	ClassID null.String   `db:"class_id"`
	Time    string        `db:"time"`
	Days    pq.Int64Array `db:"days"`
	Enabled bool          `db:"enabled"`
}

func boilReminder(rem school.Reminder) reminderRow {
	days := make(pq.Int64Array, 0, len(rem.Days))
	for _, d := range rem.Days {
		days = append(days, int64(d))
	}
	return reminderRow{
		ID:      rem.ID,
		UserID:  rem.UserID,
		ClassID: rem.ClassID,
		Time:    rem.Time,
		Days:    days,
		Enabled: rem.Enabled,
	}
}

func (row reminderRow) reminder() school.Reminder {
	days := make([]int, 0, len(row.Days))
	for _, d := range row.Days {
		days = append(days, int(d))
	}
	return school.Reminder{
		ID:      row.ID,
		UserID:  row.UserID,
		ClassID: row.ClassID,
		Time:    row.Time,
		Days:    days,
		Enabled: row.Enabled,
	}
}

func (repo schoolRepository) CreateReminder(ctx context.Context, rem school.Reminder, exec ...core.DBExecutor) (school.Reminder, error) {
	rem.ID = uuid.New().String()
	row := boilReminder(rem)
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), `
		INSERT INTO reminder (id, user_id, class_id, time, days, enabled)
		VALUES (:id, :user_id, :class_id, :time, :days, :enabled)`, row,
	); err != nil {
		return school.Reminder{}, errors.Wrap(err, "inserting reminder")
	}
	return row.reminder(), nil
}

func (repo schoolRepository) GetReminder(ctx context.Context, id string, exec ...core.DBExecutor) (school.Reminder, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Reminder{}, school.ErrReminderNotFound
	}
	var row reminderRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row, `SELECT * FROM reminder WHERE id = $1`, id)
	if err != nil {
		return school.Reminder{}, trapNoRowsErr(err, school.ErrReminderNotFound, "finding reminder")
	}
	return row.reminder(), nil
}

func (repo schoolRepository) QueryUserReminders(ctx context.Context, userID string, exec ...core.DBExecutor) ([]school.Reminder, error) {
	var rows []reminderRow
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, `
		SELECT * FROM reminder WHERE user_id = $1 ORDER BY time`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying reminders")
	}

	rems := make([]school.Reminder, 0, len(rows))
	for _, row := range rows {
		rems = append(rems, row.reminder())
	}
	return rems, nil
}

func (repo schoolRepository) UpdateReminder(ctx context.Context, rem school.Reminder, exec ...core.DBExecutor) (school.Reminder, error) {
	row := boilReminder(rem)
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), `
		UPDATE reminder
		SET time = :time, days = :days, enabled = :enabled
		WHERE id = :id`, row)
	if err != nil {
		return school.Reminder{}, errors.Wrap(err, "updating reminder")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.Reminder{}, school.ErrReminderNotFound
	}
	return row.reminder(), nil
}

func (repo schoolRepository) DeleteReminder(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM reminder WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting reminder")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.ErrReminderNotFound
	}
	return nil
}
