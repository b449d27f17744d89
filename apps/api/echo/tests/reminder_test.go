package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core/school"
)

func Test_reminderApi_crud(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "Owner")
	other := app.createUser(t, "Other")
	cls := app.createClass(t, owner.ID, "9B")
	token := getToken(t, owner)

	// create
	req, rec := newAuthRequest(http.MethodPost, "/v1/reminders", token,
		marchallObj(t, map[string]interface{}{"class_id": cls.ID, "time": "18:00", "days": []int{1, 3, 5}}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var rem school.Reminder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rem))
	assert.Equal(t, "18:00", rem.Time)
	assert.Equal(t, []int{1, 3, 5}, rem.Days)
	assert.True(t, rem.Enabled)
	assert.Equal(t, cls.ID, rem.ClassID.String)

	// list is owner-scoped
	req, rec = newAuthRequest(http.MethodGet, "/v1/reminders", token)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var rems []school.Reminder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rems))
	assert.Len(t, rems, 1)

	req, rec = newAuthRequest(http.MethodGet, "/v1/reminders", getToken(t, other))
	app.server.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rems))
	assert.Len(t, rems, 0)

	// class-bound reminders require membership
	req, rec = newAuthRequest(http.MethodPost, "/v1/reminders", getToken(t, other),
		marchallObj(t, map[string]interface{}{"class_id": cls.ID, "time": "18:00", "days": []int{1}}))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "not a member of this class"}),
	}, rec)

	// others cannot touch it
	req, rec = newAuthRequest(http.MethodPut, "/v1/reminders/"+rem.ID, getToken(t, other),
		marchallObj(t, map[string]string{"time": "19:00"}))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: "reminder not found"}),
	}, rec)

	// update
	req, rec = newAuthRequest(http.MethodPut, "/v1/reminders/"+rem.ID, token,
		marchallObj(t, map[string]interface{}{"enabled": false}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rem))
	assert.False(t, rem.Enabled)
	assert.Equal(t, "18:00", rem.Time)

	// delete
	req, rec = newAuthRequest(http.MethodDelete, "/v1/reminders/"+rem.ID, token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/reminders/"+rem.ID, token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_reminderApi_validation(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "Jo")
	token := getToken(t, usr)

	tests := []httpTest{
		{
			name:     "bad time format",
			body:     marchallObj(t, map[string]interface{}{"time": "6pm", "days": []int{1}}),
			wantCode: http.StatusBadRequest,
			wantData: validationErr(t, map[string]string{"time": "invalid format"}),
		},
		{
			name:     "no days",
			body:     marchallObj(t, map[string]interface{}{"time": "18:00", "days": []int{}}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "day out of range",
			body:     marchallObj(t, map[string]interface{}{"time": "18:00", "days": []int{7}}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/reminders", token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
