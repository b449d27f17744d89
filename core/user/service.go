package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
)

// errors
var (
	ErrNotFound = errors.New("user not found")
)

type (
	// GetFilter narrows down a single User lookup; ID takes precedence.
	GetFilter struct {
		ID         string
		TelegramID int64
	}

	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	}

	ServiceInterface interface {
		AuthenticateTelegram(ctx context.Context, initData string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
	}

	Service struct {
		conf *core.Config
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(conf *core.Config, repo Repository) *Service {
	return &Service{conf: conf, repo: repo}
}

// AuthenticateTelegram verifies a Telegram WebApp initData payload and
// returns the matching User, creating it on first login.
// In TestMode the signature check is skipped (dev behavior).
func (svc *Service) AuthenticateTelegram(ctx context.Context, initData string) (User, error) {
	tgUsr, err := verifyInitData(initData, svc.conf.TelegramBotToken, svc.conf.TestMode)
	if err != nil {
		return User{}, err
	}

	usr, err := svc.repo.GetUser(ctx, GetFilter{TelegramID: tgUsr.ID})
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, errors.Wrap(err, "finding user by telegram ID")
		}
		usr = tgUsr.user()
		usr.CreatedAt = time.Now().UTC()
		if usr, err = svc.repo.CreateUser(ctx, usr); err != nil {
			return User{}, errors.Wrap(err, "creating user")
		}
		return usr, nil
	}

	// keep profile data in sync with Telegram
	if fresh := tgUsr.user(); usr.Name != fresh.Name || usr.AvatarURL != fresh.AvatarURL {
		usr.Name = fresh.Name
		usr.AvatarURL = fresh.AvatarURL
		if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
			return User{}, errors.Wrap(err, "updating user profile")
		}
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}
