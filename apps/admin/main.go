package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/user"
	logsvc "github.com/trezcool/attendance/services/logger"
	"github.com/trezcool/attendance/storage/database"
)

func main() {
	os.Exit(run())
}

func run() int {
	conf, err := core.NewConfig()
	if err != nil {
		log.Println(err)
		return 1
	}
	logger := logsvc.NewRollbarLogger(os.Stderr, conf)

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.ConnectTimeout)
	db, err := database.Open(ctx, conf)
	cancel()
	if err != nil {
		logger.Error("setting up database", err)
		return 1
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			logger.Error("failed to close database", err)
		}
	}()

	// start CLI
	cli := commandLine{
		db:     db,
		usrSvc: user.NewService(db.Users),
		out:    os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		return 1
	}
	return 0
}
