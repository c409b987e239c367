package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/attendance/core"
)

// PasswordHashCost is the bcrypt cost of stored password hashes.
var PasswordHashCost = bcrypt.DefaultCost

type User struct {
	Username     string    `json:"username"`
	IsAdmin      bool      `json:"isAdmin"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), PasswordHashCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// NewUser contains information needed to provision (create or replace) a User.
type NewUser struct {
	Username string `json:"username" validate:"required,max=64,alphanum_"`
	Password string `json:"password" validate:"required"`
	IsAdmin  bool   `json:"isAdmin"`
}

func (nu *NewUser) Validate() error {
	nu.Username = core.CleanString(nu.Username)
	return core.Validate.Struct(nu)
}

type ResetUserPassword struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (rp *ResetUserPassword) Validate() error {
	rp.Username = core.CleanString(rp.Username)
	return core.Validate.Struct(rp)
}

type QueryFilter struct {
	IsAdmin *bool
}

// Students selects the non-admin accounts.
func Students() QueryFilter {
	isAdmin := false
	return QueryFilter{IsAdmin: &isAdmin}
}

func (qf QueryFilter) Match(usr User) bool {
	return qf.IsAdmin == nil || *qf.IsAdmin == usr.IsAdmin
}
