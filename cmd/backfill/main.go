// Command backfill re-exports a user's stored transactions into the BigQuery
// warehouse. Useful after enabling the exporter on an existing database or
// after a warehouse reset; the export stream keeps only the latest row per
// transaction, so re-running it is safe.
package main

import (
	"context"
	"flag"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/analytics"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/store/postgres"
)

const pageSize = 100

func main() {
	owner := flag.String("owner", "", "Owner user id whose transactions to export")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}
	if cfg.BQProject == "" {
		log.Fatal().Msg("BQ_PROJECT is required")
	}

	ownerID, err := uuid.Parse(*owner)
	if err != nil {
		log.Fatal().Err(err).Msg("A valid -owner user id is required")
	}

	ctx := context.Background()

	store, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	defer store.Close()

	reader := store.Transactions()
	exporter, err := analytics.NewExporter(ctx, cfg.BQProject, cfg.BQDataset, reader, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create warehouse exporter")
	}
	defer exporter.Close()

	exported := 0
	for offset := 0; ; offset += pageSize {
		txns, total, err := reader.List(ctx, ownerID, pageSize, offset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list transactions")
		}
		if len(txns) == 0 {
			break
		}

		for _, txn := range txns {
			job := &jobs.ExportTransactionJob{
				JobID:         uuid.New().String(),
				TransactionID: txn.ID,
				OwnerID:       ownerID,
				Op:            jobs.ExportOpUpdated,
			}
			if err := exporter.Handle(ctx, job); err != nil {
				log.Fatal().
					Err(err).
					Str("transaction_id", txn.ID.String()).
					Msg("Export failed")
			}
			exported++
		}

		log.Info().Int("exported", exported).Int("total", total).Msg("Backfill progress")
	}

	log.Info().Int("exported", exported).Msg("Backfill complete")
}
