package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/storage/database/sqlx"
)

var (
	migrateFunc = migrateStore // mockable

	errNotMigratable = errors.New("migrations only apply to the postgres engine")
)

func migrateStore(ctx context.Context, store core.Store, command string) error {
	db, ok := store.(*sqlxrepos.DB)
	if !ok {
		return errNotMigratable
	}
	return sqlxrepos.Migrate(ctx, db, command)
}

func (cli *commandLine) migrate(args []string) error {
	switch args[0] {
	case "up", "status":
	default:
		return fmt.Errorf("%q: no such command", args[0])
	}
	return migrateFunc(context.Background(), cli.db.Store, args[0])
}
