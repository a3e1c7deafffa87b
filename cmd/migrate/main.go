package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"consultations/config"
	"consultations/internal/repository/postgres"
)

const usage = `usage: migrate <command>

commands:
  up       apply all pending migrations
  down     roll back the latest migration
  version  print the current schema version`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.Environment, "migrate")
	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrator, err := postgres.NewMigrator(db, logger)
	if err != nil {
		log.Fatalf("Failed to prepare migrations: %v", err)
	}

	switch cmd := flag.Arg(0); cmd {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "version":
		var version int64
		version, err = migrator.Version(ctx)
		if err == nil {
			fmt.Println(version)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}
