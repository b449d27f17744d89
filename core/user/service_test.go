package user_test

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
	dummydb "github.com/trezcool/kazi/storage/database/dummy"
)

func newTestService(t *testing.T) *user.Service {
	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := &core.Config{TestMode: true, TelegramBotToken: "123456:TEST-TOKEN"}
	return user.NewService(conf, dummydb.NewUserRepository(db))
}

func initData(t *testing.T, tgID int64, firstName, lastName, photoURL string) string {
	usr, err := json.Marshal(map[string]interface{}{
		"id":         tgID,
		"first_name": firstName,
		"last_name":  lastName,
		"photo_url":  photoURL,
	})
	require.NoError(t, err)

	vals := make(url.Values)
	vals.Set("user", string(usr))
	vals.Set("auth_date", "1700000000")
	vals.Set("hash", "unchecked") // TestMode skips the signature
	return vals.Encode()
}

func TestService_AuthenticateTelegram(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// first login creates the user
	usr, err := svc.AuthenticateTelegram(ctx, initData(t, 777, "Alexey", "K", ""))
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, int64(777), usr.TelegramID.Int64)
	assert.Equal(t, "Alexey K", usr.Name)
	assert.False(t, usr.AvatarURL.Valid)
	assert.Equal(t, user.RoleStudent, usr.Role)
	assert.False(t, usr.CreatedAt.IsZero())

	// second login reuses the same account
	usr2, err := svc.AuthenticateTelegram(ctx, initData(t, 777, "Alexey", "K", ""))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, usr2.ID)
	assert.Equal(t, usr.CreatedAt, usr2.CreatedAt)

	// profile changes on the Telegram side are synced
	usr3, err := svc.AuthenticateTelegram(ctx, initData(t, 777, "Alexey", "Kovalev", "https://t.me/i/userpic/a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, usr3.ID)
	assert.Equal(t, "Alexey Kovalev", usr3.Name)
	assert.Equal(t, "https://t.me/i/userpic/a.jpg", usr3.AvatarURL.String)

	got, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alexey Kovalev", got.Name)
}

func TestService_AuthenticateTelegram_invalid(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		initData string
	}{
		{name: "garbage", initData: "%zz"},
		{name: "no user field", initData: "auth_date=1700000000&hash=unchecked"},
		{name: "zero telegram id", initData: initData(t, 0, "Jo", "", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AuthenticateTelegram(ctx, tt.initData)
			assert.ErrorIs(t, err, user.ErrInvalidInitData)
		})
	}
}

func TestService_GetByID_notFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetByID(context.Background(), "c0ffee00-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, user.ErrNotFound)
}
