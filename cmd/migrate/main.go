// Command migrate applies the SQL schema migrations to the Postgres database
// configured by DATABASE_URL.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"os"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

func main() {
	var (
		dir  = flag.String("dir", "internal/store/postgres/migrations", "Directory containing migration files")
		down = flag.Bool("down", false, "Roll back all migrations instead of applying them")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.PingContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to reach database")
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{SchemaName: "public"})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migration driver")
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+*dir, "postgres", driver)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load migrations")
	}

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}

	switch {
	case err == nil:
		log.Info().Bool("down", *down).Msg("Migrations applied")
	case errors.Is(err, migrate.ErrNoChange):
		log.Info().Msg("No new migrations to apply")
	default:
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			log.Error().Int("version", dirty.Version).Msg("Database is dirty, fix it manually before retrying")
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
