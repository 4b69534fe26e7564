package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/user"
	logsvc "github.com/trezcool/masomo/services/logger"
	"github.com/trezcool/masomo/storage/database"
	inmemdb "github.com/trezcool/masomo/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	cli := commandLine{
		conf:       conf,
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}

	// set up DB
	if conf.Database.InMemory() {
		logger.Warn("database.host is not set: changes are lost on exit")
		cli.usrSvc = user.NewService(inmemdb.NewUserRepository(inmemdb.Open()))
	} else {
		db, err := database.Open(context.Background(), conf)
		if err != nil {
			logger.Fatal("setting up database", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("closing database", err)
			}
		}()
		cli.usrSvc = user.NewService(sqlxrepos.NewUserRepository(db))
		cli.migrate = func(command string, args ...string) error {
			return database.RunMigrations(db, command, args...)
		}
	}

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(err.Error(), err)
		}
		os.Exit(1)
	}
}
