package main

import (
	"bptracker/cmd/migration/initialize"
	"bptracker/cmd/migration/seed"
	"bptracker/config"
	"bptracker/internal/database"
	"bptracker/internal/logger"
	"context"
	"flag"
	"fmt"
	"os"
	"time"
)

const usage = `usage: migration [-steps n] <command>

commands:
  up      apply pending migrations and initialize reference data
  down    roll back the last n migrations (default 1)
  seed    apply migrations and load development data
`

func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *steps); err != nil {
		os.Exit(1)
	}
}

func run(command string, steps int) error {
	log := logger.New("migration").Function("run")

	config, err := config.InitConfig()
	if err != nil {
		return log.Err("failed to initialize config", err)
	}
	logger.Setup(config.Environment, config.LogLevel)

	db, err := database.New(config)
	if err != nil {
		return log.Err("failed to connect to database", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "up":
		return initialize.InitializeTables(ctx, db, log)
	case "down":
		rolledBack, err := database.Rollback(db.SQL, db.Driver, steps)
		if err != nil {
			return log.Err("failed to roll back migrations", err, "steps", steps)
		}
		log.Info("Rolled back migrations", "count", rolledBack)
		return db.FlushAllCaches()
	case "seed":
		if err := initialize.InitializeTables(ctx, db, log); err != nil {
			return err
		}
		return seed.Seed(ctx, db, config, log)
	default:
		return log.Error("unknown command", "command", command)
	}
}
