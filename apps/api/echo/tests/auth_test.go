package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core/user"
)

type loginResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)

	body := marchallObj(t, map[string]string{"init_data": initData(t, 1111, "Jo", "Doe")})
	req, rec := newRequest(http.MethodPost, "/v1/auth/telegram", body)
	app.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, "Jo Doe", resp.User.Name)
	assert.Equal(t, user.RoleStudent, resp.User.Role)

	// first login created the user
	usr, err := app.usrRepo.GetUser(context.Background(), user.GetFilter{TelegramID: 1111})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, usr.ID)

	// a second login reuses it
	req, rec = newRequest(http.MethodPost, "/v1/auth/telegram", body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp2 loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp2))
	assert.Equal(t, usr.ID, resp2.User.ID)

	// the token authenticates API calls
	req, rec = newAuthRequest(http.MethodGet, "/v1/classes", resp.Token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_authApi_login_invalid(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{
			name: "empty body", body: marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest,
			wantData: validationErr(t, map[string]string{"init_data": "this field is required"}),
		},
		{
			name: "no user field", body: marchallObj(t, map[string]string{"init_data": "auth_date=1700000000&hash=x"}),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/telegram", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_refreshToken(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "Jo")

	req, rec := newRequest(http.MethodPost, "/v1/auth/token-refresh")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", getToken(t, usr))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	// refreshed token still works
	req, rec = newAuthRequest(http.MethodGet, "/v1/classes", resp.Token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
