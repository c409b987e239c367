package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/attendance/apps/api/echo"
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/user"
	"github.com/trezcool/attendance/services/ratelimit"
)

func Test_home(t *testing.T) {
	env := setup(t)
	rec := env.do(newRequest(http.MethodGet, "/"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Attendance API is running", rec.Body.String())
}

func Test_healthz(t *testing.T) {
	env := setup(t)
	runHttpTests(t, env, []httpTest{
		{name: "ok", path: "/healthz", wantCode: http.StatusOK, wantData: marshallObj(t, HealthResponse{Status: "ok"})},
	})
}

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	invalidCreds := marshallObj(t, newHttpErr("invalid credentials"))
	login := func(uname, pwd string) []byte {
		return marshallObj(t, LoginRequest{Username: uname, Password: pwd})
	}

	runHttpTests(t, env, []httpTest{
		{name: "wrong password", method: http.MethodPost, path: "/auth", body: login("admin", "wrong-pass"), wantCode: http.StatusUnauthorized, wantData: invalidCreds},
		{name: "unknown user", method: http.MethodPost, path: "/auth", body: login("Ghost", "s3cret-pass"), wantCode: http.StatusUnauthorized, wantData: invalidCreds},
		{name: "username is case sensitive", method: http.MethodPost, path: "/auth", body: login("kavya", "s3cret-pass"), wantCode: http.StatusUnauthorized, wantData: invalidCreds},
		{
			name: "missing fields", method: http.MethodPost, path: "/auth", body: login(" ", ""), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, newHttpErr("invalid request", map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			})),
		},
	})

	tests := []struct {
		name    string
		uname   string
		pwd     string
		isAdmin bool
	}{
		{name: "admin", uname: "admin", pwd: "Adm1n-pass", isAdmin: true},
		{name: "student", uname: "Kavya", pwd: "s3cret-pass"},
		{name: "username is trimmed", uname: " Kavya ", pwd: "s3cret-pass"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(newRequest(http.MethodPost, "/auth", login(tc.uname, tc.pwd)))
			require.Equal(t, http.StatusOK, rec.Code)

			var res LoginResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.True(t, res.Success)
			assert.Equal(t, tc.isAdmin, res.IsAdmin)
			require.NotEmpty(t, res.Token)

			// the token identifies its holder
			rec = env.do(newAuthRequest(http.MethodGet, "/attendance/user/"+res.Username, res.Token))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		rec := env.do(newRequest(http.MethodPost, "/auth", []byte(`{"username": `)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_userApi_login_rateLimited(t *testing.T) {
	env := setup(t, setupOpts{deps: func(deps *Deps) {
		deps.LoginLimiter = ratelimit.NewMemoryLimiter(2, time.Hour)
	}})
	body := marshallObj(t, LoginRequest{Username: "admin", Password: "wrong-pass"})

	runHttpTests(t, env, []httpTest{
		{name: "first", method: http.MethodPost, path: "/auth", body: body, wantCode: http.StatusUnauthorized, wantData: marshallObj(t, newHttpErr("invalid credentials"))},
		{name: "second", method: http.MethodPost, path: "/auth", body: body, wantCode: http.StatusUnauthorized, wantData: marshallObj(t, newHttpErr("invalid credentials"))},
		{
			name: "third", method: http.MethodPost, path: "/auth", body: body, wantCode: http.StatusTooManyRequests,
			wantData: marshallObj(t, newHttpErr("too many login attempts, try again later")),
		},
	})
}

func Test_userApi_login_forwardedFor(t *testing.T) {
	limited := func(proxies ...string) setupOpts {
		return setupOpts{
			conf: func(conf *core.Config) { conf.Server.TrustedProxies = proxies },
			deps: func(deps *Deps) { deps.LoginLimiter = ratelimit.NewMemoryLimiter(2, time.Hour) },
		}
	}
	body := marshallObj(t, LoginRequest{Username: "admin", Password: "wrong-pass"})
	login := func(env *testEnv, forwardedFor string) int {
		req := newRequest(http.MethodPost, "/auth", body)
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
		req.Header.Set(echo.HeaderXRealIP, forwardedFor)
		return env.do(req).Code
	}

	t.Run("untrusted peer", func(t *testing.T) {
		env := setup(t, limited())
		codes := make([]int, 0, 4)
		for i := 1; i <= 4; i++ {
			codes = append(codes, login(env, fmt.Sprintf("10.9.9.%d", i)))
		}
		assert.Equal(t, []int{
			http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusTooManyRequests,
		}, codes)
	})

	t.Run("trusted proxy", func(t *testing.T) {
		env := setup(t, limited("192.0.2.0/24")) // httptest peer
		for i := 1; i <= 4; i++ {
			assert.Equal(t, http.StatusUnauthorized, login(env, fmt.Sprintf("203.0.113.%d", i)))
		}
		assert.Equal(t, http.StatusUnauthorized, login(env, "203.0.113.9"))
		assert.Equal(t, http.StatusUnauthorized, login(env, "203.0.113.9"))
		assert.Equal(t, http.StatusTooManyRequests, login(env, "203.0.113.9"))
	})
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) { return false, errDown }

func Test_userApi_login_limiterDown(t *testing.T) {
	env := setup(t, setupOpts{deps: func(deps *Deps) { deps.LoginLimiter = brokenLimiter{} }})
	rec := env.do(newRequest(http.MethodPost, "/auth", marshallObj(t, LoginRequest{Username: "admin", Password: "Adm1n-pass"})))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// failingUserRepo fails every call.
type failingUserRepo struct{}

func (failingUserRepo) GetUser(context.Context, string) (user.User, error) {
	return user.User{}, errDown
}

func (failingUserRepo) UpsertUser(context.Context, user.User) (user.User, error) {
	return user.User{}, errDown
}

func (failingUserRepo) QueryUsers(context.Context, user.QueryFilter) ([]user.User, error) {
	return nil, errDown
}

func Test_userApi_students(t *testing.T) {
	t.Run("listed", func(t *testing.T) {
		env := setup(t)
		runHttpTests(t, env, []httpTest{
			{name: "students", path: "/students", wantCode: http.StatusOK, wantData: marshallObj(t, []string{"Aakash", "Kavya", "Sagar"})},
		})
	})

	failingUsers := func(deps *Deps) {
		deps.UserSvc = user.NewService(failingUserRepo{})
	}

	t.Run("store unavailable", func(t *testing.T) {
		env := setup(t, setupOpts{deps: failingUsers})
		unavailable := marshallObj(t, newHttpErr("store unavailable"))
		runHttpTests(t, env, []httpTest{
			{name: "students", path: "/students", wantCode: http.StatusServiceUnavailable, wantData: unavailable},
			{
				name: "login", method: http.MethodPost, path: "/auth", wantCode: http.StatusServiceUnavailable, wantData: unavailable,
				body: marshallObj(t, LoginRequest{Username: "admin", Password: "Adm1n-pass"}),
			},
		})
	})

	t.Run("degraded", func(t *testing.T) {
		env := setup(t, setupOpts{
			conf: func(conf *core.Config) { conf.Server.DegradeReads = true },
			deps: failingUsers,
		})
		runHttpTests(t, env, []httpTest{
			{name: "students", path: "/students", wantCode: http.StatusOK, wantData: []byte(`[]`)},
		})
	})
}
