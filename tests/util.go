package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/user"
	"github.com/trezcool/attendance/services/logger"
)

// Timezone the test clocks run in.
const Timezone = "Asia/Kolkata"

func init() {
	user.PasswordHashCost = bcrypt.MinCost
}

// NewLogger returns a logger that discards everything.
func NewLogger() core.Logger {
	conf := &core.Config{Env: "TEST", TestMode: true, AppName: "attendance-test"}
	conf.Log.Level = "disabled"
	return logsvc.NewRollbarLogger(io.Discard, conf)
}

// NewClock returns a Clock frozen at the given local wall time.
func NewClock(t *testing.T, year int, month time.Month, day, hour int) *core.Clock {
	clock, err := core.NewClock(Timezone)
	if err != nil {
		t.Fatalf("NewClock(): %v", err)
	}
	now := time.Date(year, month, day, hour, 0, 0, 0, clock.Location())
	return clock.WithNow(func() time.Time { return now })
}

func CreateUser(t *testing.T, repo user.Repository, uname, pwd string, isAdmin bool) user.User {
	tstamp := time.Now().UTC().Truncate(time.Millisecond)
	usr := user.User{
		Username:  uname,
		IsAdmin:   isAdmin,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.UpsertUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func MarkRecord(t *testing.T, repo attendance.Repository, date string, users ...string) attendance.Record {
	if users == nil {
		users = []string{}
	}
	rec, err := repo.UpsertRecord(context.Background(), attendance.Record{
		Date:      date,
		Users:     users,
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	})
	if err != nil {
		t.Fatalf("MarkRecord() failed: %v", err)
	}
	return rec
}
