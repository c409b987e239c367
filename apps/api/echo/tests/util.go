package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/attendance/apps/api/echo"
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/user"
	"github.com/trezcool/attendance/services/events"
	"github.com/trezcool/attendance/storage/database/inmem"
	"github.com/trezcool/attendance/tests"
)

const today = "2024-03-05"

var errDown = errors.New("connection refused")

type testEnv struct {
	conf    *core.Config
	server  *Server
	usrRepo user.Repository
	attRepo attendance.Repository
	admin   user.User
	kavya   user.User
	sagar   user.User
	aakash  user.User
}

func newConfig() *core.Config {
	conf := &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "attendance-test",
		SecretKey: "test-secret",
		Timezone:  testutil.Timezone,
	}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.AllowQueryIdentity = true
	conf.Server.DisableReqLogs = true
	conf.Attendance.AnalyticsConcurrency = 4
	return conf
}

type setupOpts struct {
	conf    func(conf *core.Config)
	attRepo func(repo attendance.Repository) attendance.Repository
	store   core.Pinger
	deps    func(deps *Deps)
}

// setup starts a Server on an in-memory store holding an admin and three students.
func setup(t *testing.T, opts ...setupOpts) *testEnv {
	var opt setupOpts
	if len(opts) > 0 {
		opt = opts[0]
	}

	conf := newConfig()
	if opt.conf != nil {
		opt.conf(conf)
	}

	db, err := inmemdb.Open()
	require.NoError(t, err)
	env := &testEnv{
		conf:    conf,
		usrRepo: inmemdb.NewUserRepository(db),
		attRepo: inmemdb.NewAttendanceRepository(db),
	}
	env.admin = testutil.CreateUser(t, env.usrRepo, "admin", "Adm1n-pass", true)
	env.kavya = testutil.CreateUser(t, env.usrRepo, "Kavya", "s3cret-pass", false)
	env.sagar = testutil.CreateUser(t, env.usrRepo, "Sagar", "s3cret-pass", false)
	env.aakash = testutil.CreateUser(t, env.usrRepo, "Aakash", "s3cret-pass", false)

	attRepo := env.attRepo
	if opt.attRepo != nil {
		attRepo = opt.attRepo(attRepo)
	}
	var store core.Pinger = db
	if opt.store != nil {
		store = opt.store
	}

	logger := testutil.NewLogger()
	usrSvc := user.NewService(env.usrRepo)
	deps := &Deps{
		Store:   store,
		UserSvc: usrSvc,
		AttendanceSvc: attendance.NewService(attendance.ServiceDeps{
			Repo:     attRepo,
			Users:    usrSvc,
			Clock:    testutil.NewClock(t, 2024, time.March, 5, 10),
			Notifier: eventsvc.NopNotifier{},
			Logger:   logger,
		}, attendance.Options{
			RosterSize:   conf.Attendance.RosterSize,
			StrictRoster: conf.Attendance.StrictRoster,
			Concurrency:  conf.Attendance.AnalyticsConcurrency,
		}),
	}
	if opt.deps != nil {
		opt.deps(deps)
	}
	env.server = NewServer(conf, logger, deps)
	return env
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

// failingRepo fails every read and write.
type failingRepo struct{ attendance.Repository }

func (failingRepo) GetRecord(context.Context, string) (attendance.Record, error) {
	return attendance.Record{}, errDown
}

func (failingRepo) UpsertRecord(context.Context, attendance.Record) (attendance.Record, error) {
	return attendance.Record{}, errDown
}

func (failingRepo) QueryRecordsByUser(context.Context, string) ([]attendance.Record, error) {
	return nil, errDown
}

func (failingRepo) CountRecordsInMonth(context.Context, string) (int, error) { return 0, errDown }

func (failingRepo) Ping(context.Context) error { return errDown }

type httpErr struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func newHttpErr(msg string, fields ...map[string]string) httpErr {
	he := httpErr{Message: msg}
	if len(fields) > 0 {
		he.Errors = fields[0]
	}
	return he
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

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr, conf), conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
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
	l1, ok1 := j1.([]interface{})
	l2, ok2 := j2.([]interface{})
	if !ok1 || !ok2 {
		return false, nil
	}
	return assert.ElementsMatch(t, l1, l2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHttpTests(t *testing.T, env *testEnv, tests []httpTest) {
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			method := tc.method
			if method == "" {
				method = http.MethodGet
			}
			rec := env.do(newAuthRequest(method, tc.path, tc.token, tc.body))
			checkCodeAndData(t, tc, rec)
		})
	}
}
