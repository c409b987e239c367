package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/storage/database/sqlx/migrations"
)

const driverName = "postgres"

// DB is a PostgreSQL connection pool.
type DB struct {
	*sqlx.DB
}

var _ core.Store = (*DB)(nil)

// Open connects to conf.Database.URI and waits for the database to be ready.
func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	db, err := sqlx.Open(driverName, conf.Database.URI)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(ctx, db, conf.Database.ConnectTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{DB: db}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close(context.Context) error {
	return db.DB.Close()
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var err error
	for attempts := 1; ; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(err, "DB ping timeout")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
}

// Migrate runs a goose command ("up", "status") against the embedded migrations.
func Migrate(ctx context.Context, db *DB, command string, args ...string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(driverName); err != nil {
		return errors.Wrap(err, "setting dialect")
	}
	if err := goose.RunContext(ctx, command, db.DB.DB, ".", args...); err != nil {
		return errors.Wrapf(err, "running migrations: %s", command)
	}
	return nil
}
