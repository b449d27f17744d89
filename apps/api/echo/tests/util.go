package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/kazi/apps/api/echo"
	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/school"
	"github.com/trezcool/kazi/core/user"
	logsvc "github.com/trezcool/kazi/services/logger"
	dummydb "github.com/trezcool/kazi/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server  Server
	usrRepo user.Repository
	schRepo school.Repository
	usrSvc  user.ServiceInterface
	schSvc  school.ServiceInterface
}

func setup(t *testing.T) *testApp {
	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := &core.Config{
		TestMode:  true,
		Env:       "TEST",
		AppName:   "Kazi",
		SecretKey: "sekrit",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	usrRepo := dummydb.NewUserRepository(db)
	schRepo := dummydb.NewSchoolRepository(db)
	usrSvc := user.NewService(conf, usrRepo)
	schSvc := school.NewService(schRepo)

	validate, translator := core.NewValidator()
	logger := logsvc.NewConsoleLogger(log.New(ioutil.Discard, "", 0))

	server := NewServer(
		&Options{
			DisableReqLogs: true,
			Conf:           conf,
			Logger:         logger,
			UserSvc:        usrSvc,
			SchoolSvc:      schSvc,
			Validate:       validate,
			Translator:     translator,
			SignalShutdown: func() {},
		},
	)

	return &testApp{
		server:  server,
		usrRepo: usrRepo,
		schRepo: schRepo,
		usrSvc:  usrSvc,
		schSvc:  schSvc,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (app *testApp) createUser(t *testing.T, name string) user.User {
	usr, err := app.usrRepo.CreateUser(context.Background(), user.User{
		Name:      name,
		Role:      user.RoleStudent,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return usr
}

func (app *testApp) createClass(t *testing.T, ownerID, name string) school.ClassInfo {
	info, err := app.schSvc.CreateClass(context.Background(), ownerID, school.NewClass{Name: name})
	require.NoError(t, err)
	return info
}

func (app *testApp) joinClass(t *testing.T, userID, code string) school.ClassInfo {
	info, err := app.schSvc.JoinClass(context.Background(), userID, school.JoinClass{InviteCode: code})
	require.NoError(t, err)
	return info
}

func (app *testApp) createSubject(t *testing.T, ownerID, classID, name string) school.Subject {
	sub, err := app.schSvc.CreateSubject(context.Background(), ownerID, school.NewSubject{
		ClassID: classID,
		Name:    name,
	})
	require.NoError(t, err)
	return sub
}

func (app *testApp) createAssignment(t *testing.T, ownerID, classID, subjectID, dueDate, content string) school.AssignmentInfo {
	info, err := app.schSvc.CreateAssignment(context.Background(), ownerID, school.NewAssignment{
		ClassID:   classID,
		SubjectID: subjectID,
		DueDate:   dueDate,
		Content:   content,
	})
	require.NoError(t, err)
	return info
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

// initData builds an unsigned Telegram WebApp payload; TestMode skips the signature.
func initData(t *testing.T, tgID int64, firstName, lastName string) string {
	usr, err := json.Marshal(map[string]interface{}{
		"id":         tgID,
		"first_name": firstName,
		"last_name":  lastName,
	})
	require.NoError(t, err)

	vals := make(url.Values)
	vals.Set("user", string(usr))
	vals.Set("auth_date", "1700000000")
	vals.Set("hash", "unchecked")
	return vals.Encode()
}

// validationErr builds the 400 envelope: field errors under "details".
func validationErr(t *testing.T, fldErrs map[string]string) []byte {
	return marchallObj(t, map[string]interface{}{"error": "validation failed", "details": fldErrs})
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if tt.wantCode == 0 {
		tt.wantCode = http.StatusOK
	}
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
