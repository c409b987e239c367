package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/user"
	"github.com/trezcool/attendance/storage/database/inmem"
	"github.com/trezcool/attendance/storage/database/mongo"
	"github.com/trezcool/attendance/storage/database/sqlx"
)

const (
	EngineMongo    = "mongo"
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

// DB is an open store and the repositories bound to it.
type DB struct {
	core.Store
	Users      user.Repository
	Attendance attendance.Repository
}

// Open connects to the store selected by conf.Database.Engine.
// The postgres schema is migrated up before returning.
func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	switch conf.Database.Engine {
	case EngineMongo:
		db, err := mongorepos.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		return &DB{
			Store:      db,
			Users:      mongorepos.NewUserRepository(db),
			Attendance: mongorepos.NewAttendanceRepository(db),
		}, nil
	case EnginePostgres:
		db, err := sqlxrepos.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = sqlxrepos.Migrate(ctx, db, "up"); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
		return &DB{
			Store:      db,
			Users:      sqlxrepos.NewUserRepository(db),
			Attendance: sqlxrepos.NewAttendanceRepository(db),
		}, nil
	case EngineMemory:
		db, err := inmemdb.Open()
		if err != nil {
			return nil, err
		}
		return &DB{
			Store:      db,
			Users:      inmemdb.NewUserRepository(db),
			Attendance: inmemdb.NewAttendanceRepository(db),
		}, nil
	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}
