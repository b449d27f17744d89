package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core/school"
)

func Test_assignmentApi_create(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "Owner")
	member := app.createUser(t, "Member")
	cls := app.createClass(t, owner.ID, "9B")
	app.joinClass(t, member.ID, cls.InviteCode)
	sub := app.createSubject(t, owner.ID, cls.ID, "Algebra")

	body := marchallObj(t, map[string]interface{}{
		"class_id":   cls.ID,
		"subject_id": sub.ID,
		"due_date":   "2026-09-01",
		"content":    "p. 10, ex. 1-5",
		"attachments": []map[string]string{
			{"type": "image", "url": "https://cdn.test/board.jpg", "name": "board.jpg"},
		},
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/assignments", getToken(t, owner), body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var info school.AssignmentInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "p. 10, ex. 1-5", info.Content)
	assert.Equal(t, "2026-09-01", info.DueDate)
	assert.False(t, info.IsCompleted)
	require.Len(t, info.Attachments, 1)
	assert.Equal(t, school.AttachmentImage, info.Attachments[0].Type)

	tests := []httpTest{
		{
			name: "member cannot create", token: getToken(t, member),
			body: marchallObj(t, map[string]string{
				"class_id": cls.ID, "subject_id": sub.ID, "due_date": "2026-09-01", "content": "nope",
			}),
			wantCode: http.StatusForbidden,
		},
		{
			name: "bad due date", token: getToken(t, owner),
			body: marchallObj(t, map[string]string{
				"class_id": cls.ID, "subject_id": sub.ID, "due_date": "01/09/2026", "content": "nope",
			}),
			wantCode: http.StatusBadRequest,
			wantData: validationErr(t, map[string]string{"due_date": "invalid format"}),
		},
		{
			name: "bad attachment type", token: getToken(t, owner),
			body: marchallObj(t, map[string]interface{}{
				"class_id": cls.ID, "subject_id": sub.ID, "due_date": "2026-09-01", "content": "x",
				"attachments": []map[string]string{{"type": "video", "url": "https://x", "name": "x"}},
			}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/assignments", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_assignmentApi_query(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "Owner")
	outsider := app.createUser(t, "Outsider")
	cls := app.createClass(t, owner.ID, "9B")
	sub := app.createSubject(t, owner.ID, cls.ID, "Algebra")
	asg1 := app.createAssignment(t, owner.ID, cls.ID, sub.ID, "2026-09-01", "first")
	asg2 := app.createAssignment(t, owner.ID, cls.ID, sub.ID, "2026-09-03", "second")
	token := getToken(t, owner)

	path := func(params map[string]string) string {
		v := make(url.Values)
		v.Set("class_id", cls.ID)
		for k, val := range params {
			v.Set(k, val)
		}
		return "/v1/assignments?" + v.Encode()
	}

	tests := []struct {
		name    string
		path    string
		wantIDs []string
	}{
		{name: "all, due date order", path: path(nil), wantIDs: []string{asg1.ID, asg2.ID}},
		{name: "date filter", path: path(map[string]string{"date": "2026-09-01"}), wantIDs: []string{asg1.ID}},
		{name: "range filter", path: path(map[string]string{"from": "2026-09-02", "to": "2026-09-30"}), wantIDs: []string{asg2.ID}},
		{name: "empty range", path: path(map[string]string{"from": "2026-10-01"}), wantIDs: []string{}},
		{name: "descending", path: path(map[string]string{"ordering": "-due_date"}), wantIDs: []string{asg2.ID, asg1.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, token)
			app.server.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var infos []school.AssignmentInfo
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
			ids := make([]string, 0, len(infos))
			for _, info := range infos {
				ids = append(ids, info.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	// class_id is required
	req, rec := newAuthRequest(http.MethodGet, "/v1/assignments", token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// membership required
	req, rec = newAuthRequest(http.MethodGet, path(nil), getToken(t, outsider))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_assignmentApi_update(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "Owner")
	cls := app.createClass(t, owner.ID, "9B")
	sub := app.createSubject(t, owner.ID, cls.ID, "Algebra")
	other := app.createClass(t, owner.ID, "Other")
	foreignSub := app.createSubject(t, owner.ID, other.ID, "Biology")
	asg := app.createAssignment(t, owner.ID, cls.ID, sub.ID, "2026-09-01", "first")
	token := getToken(t, owner)

	req, rec := newAuthRequest(http.MethodPut, "/v1/assignments/"+asg.ID, token,
		marchallObj(t, map[string]string{"content": "updated", "due_date": "2026-09-05"}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var info school.AssignmentInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "updated", info.Content)
	assert.Equal(t, "2026-09-05", info.DueDate)

	// subject from another class is rejected
	req, rec = newAuthRequest(http.MethodPut, "/v1/assignments/"+asg.ID, token,
		marchallObj(t, map[string]string{"subject_id": foreignSub.ID}))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: validationErr(t, map[string]string{"subject_id": "subject does not belong to this class"}),
	}, rec)
}

func Test_assignmentApi_complete(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "Owner")
	member := app.createUser(t, "Member")
	cls := app.createClass(t, owner.ID, "9B")
	app.joinClass(t, member.ID, cls.InviteCode)
	sub := app.createSubject(t, owner.ID, cls.ID, "Algebra")
	asg := app.createAssignment(t, owner.ID, cls.ID, sub.ID, "2026-09-01", "p. 10")
	token := getToken(t, member)

	req, rec := newAuthRequest(http.MethodPost, "/v1/assignments/"+asg.ID+"/complete", token,
		marchallObj(t, map[string]bool{"completed": true}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cpl school.Completion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cpl))
	assert.True(t, cpl.Completed)
	assert.True(t, cpl.CompletedAt.Valid)

	// reflected in the member's listing
	req, rec = newAuthRequest(http.MethodGet, "/v1/assignments?class_id="+cls.ID, token)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var infos []school.AssignmentInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.True(t, infos[0].IsCompleted)

	// but not in the owner's
	req, rec = newAuthRequest(http.MethodGet, "/v1/assignments?class_id="+cls.ID, getToken(t, owner))
	app.server.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	assert.False(t, infos[0].IsCompleted)

	// un-complete
	req, rec = newAuthRequest(http.MethodPost, "/v1/assignments/"+asg.ID+"/complete", token,
		marchallObj(t, map[string]bool{"completed": false}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cpl))
	assert.False(t, cpl.Completed)
	assert.False(t, cpl.CompletedAt.Valid)

	// completed flag is required
	req, rec = newAuthRequest(http.MethodPost, "/v1/assignments/"+asg.ID+"/complete", token,
		marchallObj(t, map[string]string{}))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_assignmentApi_destroy(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "Owner")
	cls := app.createClass(t, owner.ID, "9B")
	sub := app.createSubject(t, owner.ID, cls.ID, "Algebra")
	asg := app.createAssignment(t, owner.ID, cls.ID, sub.ID, "2026-09-01", "p. 10")
	token := getToken(t, owner)

	req, rec := newAuthRequest(http.MethodDelete, "/v1/assignments/"+asg.ID, token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/assignments/"+asg.ID, token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: "assignment not found"}),
	}, rec)
}
