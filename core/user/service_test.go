package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/user"
	"github.com/trezcool/attendance/storage/database/inmem"
	"github.com/trezcool/attendance/tests"
)

type failingRepo struct{ user.Repository }

func (failingRepo) GetUser(context.Context, string) (user.User, error) {
	return user.User{}, errors.New("connection refused")
}

func newService(t *testing.T) (*user.Service, user.Repository) {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	repo := inmemdb.NewUserRepository(db)
	return user.NewService(repo), repo
}

func TestService_Authenticate(t *testing.T) {
	svc, repo := newService(t)
	testutil.CreateUser(t, repo, "Kavya", "s3cret-pass", false)
	admin := testutil.CreateUser(t, repo, "admin", "Adm1n-pass", true)

	tests := []struct {
		name      string
		uname     string
		pwd       string
		wantUname string
		wantAdmin bool
		wantErr   error
	}{
		{name: "student", uname: "Kavya", pwd: "s3cret-pass", wantUname: "Kavya"},
		{name: "admin", uname: " admin ", pwd: "Adm1n-pass", wantUname: admin.Username, wantAdmin: true},
		{name: "wrong password", uname: "Kavya", pwd: "nope", wantErr: user.ErrInvalidCredentials},
		{name: "unknown user", uname: "Sagar", pwd: "s3cret-pass", wantErr: user.ErrInvalidCredentials},
		{name: "case sensitive", uname: "kavya", pwd: "s3cret-pass", wantErr: user.ErrInvalidCredentials},
		{name: "empty", wantErr: user.ErrInvalidCredentials},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			usr, err := svc.Authenticate(context.Background(), tc.uname, tc.pwd)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantUname, usr.Username)
			assert.Equal(t, tc.wantAdmin, usr.IsAdmin)
		})
	}
}

func TestService_Authenticate_StoreUnavailable(t *testing.T) {
	svc := user.NewService(failingRepo{})
	_, err := svc.Authenticate(context.Background(), "Kavya", "s3cret-pass")
	assert.True(t, core.IsStoreUnavailable(err))
	assert.NotEqual(t, user.ErrInvalidCredentials, err)
}

func TestService_Provision(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	t.Run("create", func(t *testing.T) {
		usr, err := svc.Provision(ctx, user.NewUser{Username: " Kavya ", Password: "s3cret-pass"})
		require.NoError(t, err)
		assert.Equal(t, "Kavya", usr.Username)
		assert.False(t, usr.IsAdmin)
		assert.NoError(t, usr.CheckPassword("s3cret-pass"))
	})

	t.Run("replace", func(t *testing.T) {
		orig, err := svc.GetByUsername(ctx, "Kavya")
		require.NoError(t, err)

		usr, err := svc.Provision(ctx, user.NewUser{Username: "Kavya", Password: "an0ther-pass", IsAdmin: true})
		require.NoError(t, err)
		assert.True(t, usr.IsAdmin)
		assert.Equal(t, orig.CreatedAt, usr.CreatedAt)

		_, err = svc.Authenticate(ctx, "Kavya", "s3cret-pass")
		assert.Equal(t, user.ErrInvalidCredentials, err)
		_, err = svc.Authenticate(ctx, "Kavya", "an0ther-pass")
		assert.NoError(t, err)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name  string
			nu    user.NewUser
			field string
			tag   string
		}{
			{name: "username required", nu: user.NewUser{Password: "s3cret-pass"}, field: "username", tag: "required"},
			{name: "username charset", nu: user.NewUser{Username: "ka-vya", Password: "s3cret-pass"}, field: "username", tag: "alphanum_"},
			{name: "password required", nu: user.NewUser{Username: "Sagar"}, field: "password", tag: "required"},
			{name: "password too short", nu: user.NewUser{Username: "Sagar", Password: "abc1"}, field: "password", tag: "pwdminlen"},
			{name: "password with space", nu: user.NewUser{Username: "Sagar", Password: "abc 12345"}, field: "password", tag: "pwdnospace"},
			{name: "password numeric", nu: user.NewUser{Username: "Sagar", Password: "1234567890"}, field: "password", tag: "pwdnotallnum"},
			{name: "password like username", nu: user.NewUser{Username: "Sagarika", Password: "sagarika1"}, field: "password", tag: "pwdtoosim"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.Provision(ctx, tc.nu)
				var vErrs validator.ValidationErrors
				require.True(t, errors.As(err, &vErrs), "err = %v", err)
				require.Len(t, vErrs, 1)
				assert.Equal(t, tc.field, vErrs[0].Field())
				assert.Equal(t, tc.tag, vErrs[0].Tag())
			})
		}
	})
}

func TestService_ResetPassword(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	testutil.CreateUser(t, repo, "Kavya", "s3cret-pass", false)

	err := svc.ResetPassword(ctx, user.ResetUserPassword{Username: "Kavya", Password: "n3w-password"})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "Kavya", "n3w-password")
	assert.NoError(t, err)

	err = svc.ResetPassword(ctx, user.ResetUserPassword{Username: "Sagar", Password: "n3w-password"})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_QueryStudents(t *testing.T) {
	svc, repo := newService(t)
	testutil.CreateUser(t, repo, "Kavya", "", false)
	testutil.CreateUser(t, repo, "admin", "", true)
	testutil.CreateUser(t, repo, "Aakash", "", false)

	students, err := svc.QueryStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Aakash", students[0].Username)
	assert.Equal(t, "Kavya", students[1].Username)
}
