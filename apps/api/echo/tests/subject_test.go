package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core/school"
)

func Test_subjectApi_create(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "Owner")
	member := app.createUser(t, "Member")
	cls := app.createClass(t, owner.ID, "9B")
	app.joinClass(t, member.ID, cls.InviteCode)

	req, rec := newAuthRequest(http.MethodPost, "/v1/subjects", getToken(t, owner),
		marchallObj(t, map[string]string{"class_id": cls.ID, "name": "Algebra", "emoji": "📐", "color": "#3B82F6"}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sub school.Subject
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.Equal(t, "Algebra", sub.Name)
	assert.Equal(t, "📐", sub.Emoji)
	assert.Equal(t, 1, sub.SortOrder)

	// defaults
	req, rec = newAuthRequest(http.MethodPost, "/v1/subjects", getToken(t, owner),
		marchallObj(t, map[string]string{"class_id": cls.ID, "name": "History"}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.Equal(t, "📚", sub.Emoji)
	assert.Equal(t, "#3B82F6", sub.Color)
	assert.Equal(t, 2, sub.SortOrder)

	tests := []httpTest{
		{
			name: "member cannot create", token: getToken(t, member),
			body:     marchallObj(t, map[string]string{"class_id": cls.ID, "name": "Nope"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "bad color", token: getToken(t, owner),
			body:     marchallObj(t, map[string]string{"class_id": cls.ID, "name": "Art", "color": "red"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "missing class_id", token: getToken(t, owner),
			body:     marchallObj(t, map[string]string{"name": "Art"}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/subjects", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_subjectApi_query(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "Owner")
	outsider := app.createUser(t, "Outsider")
	cls := app.createClass(t, owner.ID, "9B")
	app.createSubject(t, owner.ID, cls.ID, "Algebra")
	app.createSubject(t, owner.ID, cls.ID, "History")

	req, rec := newAuthRequest(http.MethodGet, "/v1/subjects?class_id="+cls.ID, getToken(t, owner))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var subjects []school.Subject
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subjects))
	require.Len(t, subjects, 2)
	assert.Equal(t, "Algebra", subjects[0].Name)
	assert.Equal(t, "History", subjects[1].Name)

	// class_id is required
	req, rec = newAuthRequest(http.MethodGet, "/v1/subjects", getToken(t, owner))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: validationErr(t, map[string]string{"class_id": "class_id is required"}),
	}, rec)

	// membership required
	req, rec = newAuthRequest(http.MethodGet, "/v1/subjects?class_id="+cls.ID, getToken(t, outsider))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_subjectApi_update(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "Owner")
	member := app.createUser(t, "Member")
	cls := app.createClass(t, owner.ID, "9B")
	app.joinClass(t, member.ID, cls.InviteCode)
	sub := app.createSubject(t, owner.ID, cls.ID, "Algebra")

	req, rec := newAuthRequest(http.MethodPut, "/v1/subjects/"+sub.ID, getToken(t, owner),
		marchallObj(t, map[string]string{"name": "Geometry"}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated school.Subject
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Geometry", updated.Name)
	assert.Equal(t, sub.Emoji, updated.Emoji) // unset fields kept

	// member cannot update
	req, rec = newAuthRequest(http.MethodPut, "/v1/subjects/"+sub.ID, getToken(t, member),
		marchallObj(t, map[string]string{"name": "Nope"}))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_subjectApi_destroy(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "Owner")
	cls := app.createClass(t, owner.ID, "9B")
	sub := app.createSubject(t, owner.ID, cls.ID, "Algebra")
	token := getToken(t, owner)

	req, rec := newAuthRequest(http.MethodDelete, "/v1/subjects/"+sub.ID, token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/subjects/"+sub.ID, token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: "subject not found"}),
	}, rec)
}
