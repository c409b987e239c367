package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/user"
)

type (
	DB struct {
		user       *userTable
		attendance *attendanceTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User // by username
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Record // by date
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		attendance: &attendanceTable{table: make(map[string]*attendance.Record)},
	}
	return db, nil
}

func (db *DB) Ping(context.Context) error { return nil }

func (db *DB) Close(context.Context) error { return nil }

// Reset drops every stored user and record.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.attendance.Lock()
	db.attendance.table = make(map[string]*attendance.Record)
	db.attendance.Unlock()
}
