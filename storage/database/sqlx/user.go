package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

type userRow struct {
	ID         string      `db:"id"`
	TelegramID null.Int64  `db:"telegram_id"`
	Name       string      `db:"name"`
	AvatarURL  null.String `db:"avatar_url"`
	Role       string      `db:"role"`
	CreatedAt  time.Time   `db:"created_at"`
}

func boilUser(usr user.User) userRow {
	return userRow{
		ID:         usr.ID,
		TelegramID: usr.TelegramID,
		Name:       usr.Name,
		AvatarURL:  usr.AvatarURL,
		Role:       usr.Role,
		CreatedAt:  usr.CreatedAt.UTC(),
	}
}

func (row userRow) user() user.User {
	return user.User{
		ID:         row.ID,
		TelegramID: row.TelegramID,
		Name:       row.Name,
		AvatarURL:  row.AvatarURL,
		Role:       row.Role,
		CreatedAt:  row.CreatedAt,
	}
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	row := boilUser(usr)
	_, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), `
		INSERT INTO app_user (id, telegram_id, name, avatar_url, role, created_at)
		VALUES (:id, :telegram_id, :name, :avatar_url, :role, :created_at)`, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.user(), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	var err error
	exe := getExec(repo.db, exec)

	if filter.ID != "" {
		if _, err = uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		err = sqlx.GetContext(ctx, exe, &row, `SELECT * FROM app_user WHERE id = $1`, filter.ID)
	} else {
		err = sqlx.GetContext(ctx, exe, &row, `SELECT * FROM app_user WHERE telegram_id = $1`, filter.TelegramID)
	}
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.user(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := boilUser(usr)
	_, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), `
		UPDATE app_user SET name = :name, avatar_url = :avatar_url, role = :role
		WHERE id = :id`, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return row.user(), nil
}
