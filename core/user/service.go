package user

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/attendance/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	dummyHash     []byte
	dummyHashOnce sync.Once
)

type (
	Repository interface {
		GetUser(ctx context.Context, username string) (User, error)
		// UpsertUser creates the User or replaces the one with the same Username.
		UpsertUser(ctx context.Context, usr User) (User, error)
		// QueryUsers returns the Users matching filter, ordered by username.
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
	}

	Service struct {
		repo    Repository
		nowFunc func() time.Time
	}
)

func NewService(repo Repository) *Service {
	getDummyHash() // unknown usernames must not pay for hashing it
	return &Service{repo: repo, nowFunc: time.Now}
}

// Authenticate returns the User matching the given credentials.
// Unknown usernames and wrong passwords both fail with ErrInvalidCredentials, after the same amount of work.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, core.CleanString(uname))
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, core.NewStoreError(err, "getting user")
		}
		_ = bcrypt.CompareHashAndPassword(getDummyHash(), []byte(pwd))
		return User{}, ErrInvalidCredentials
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

// Provision creates the User or replaces an existing one with the same username.
func (svc *Service) Provision(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(); err != nil {
		return User{}, err
	}

	now := svc.nowFunc().UTC()
	usr := User{
		Username:  nu.Username,
		IsAdmin:   nu.IsAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.UpsertUser(ctx, usr)
	if err != nil {
		return User{}, core.NewStoreError(err, "upserting user")
	}
	return usr, nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	if err := rp.Validate(); err != nil {
		return err
	}
	usr, err := svc.GetByUsername(ctx, rp.Username)
	if err != nil {
		return err
	}
	if err := usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = svc.nowFunc().UTC()
	if _, err := svc.repo.UpsertUser(ctx, usr); err != nil {
		return core.NewStoreError(err, "upserting user")
	}
	return nil
}

// GetByUsername returns ErrNotFound if no such User exists.
func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, core.CleanString(uname))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrNotFound
		}
		return User{}, core.NewStoreError(err, "getting user")
	}
	return usr, nil
}

// QueryStudents returns the non-admin accounts, ordered by username.
func (svc *Service) QueryStudents(ctx context.Context) ([]User, error) {
	users, err := svc.repo.QueryUsers(ctx, Students())
	if err != nil {
		return nil, core.NewStoreError(err, "querying users")
	}
	return users, nil
}

func getDummyHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("attendance.core.user.dummy"), PasswordHashCost)
	})
	return dummyHash
}
