// Package analytics mirrors committed ledger mutations into a BigQuery
// dataset for reporting. The warehouse is derived data: export jobs run after
// commit and are retried by the queue, but the ledger never waits on them.
package analytics

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/ledger"
)

const transactionsTable = "ledger_transactions"

// TransactionRow is one warehouse record. Deletions are written as tombstone
// rows (Deleted = true) rather than removed, so reports can reconstruct
// history; readers keep the latest exported_ts per transaction_id.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	OwnerID       string `bigquery:"owner_id"`       // REQUIRED

	FromAccountID bigquery.NullString `bigquery:"from_account_id"` // NULLABLE
	ToAccountID   bigquery.NullString `bigquery:"to_account_id"`   // NULLABLE
	CategoryID    bigquery.NullString `bigquery:"category_id"`     // NULLABLE (tombstones)

	Amount          *big.Rat   `bigquery:"amount"`           // NUMERIC; nil on tombstones
	Description     string     `bigquery:"description"`      // NULLABLE
	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED in schema
	Type            string     `bigquery:"type"`             // NULLABLE

	Op      string `bigquery:"op"` // created | updated | deleted
	Deleted bool   `bigquery:"deleted"`

	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}

// Exporter consumes export jobs and writes warehouse rows.
type Exporter struct {
	client  *bigquery.Client
	dataset string
	reader  ledger.TransactionStore
	log     zerolog.Logger
}

// NewExporter creates an exporter with a shared BigQuery client.
func NewExporter(ctx context.Context, projectID, datasetID string, reader ledger.TransactionStore, log zerolog.Logger) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: creating client: %w", err)
	}
	return &Exporter{
		client:  client,
		dataset: datasetID,
		reader:  reader,
		log:     log,
	}, nil
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Handle processes one export job. It satisfies jobs.JobHandler.
func (e *Exporter) Handle(ctx context.Context, job jobs.Job) error {
	exportJob, ok := job.(*jobs.ExportTransactionJob)
	if !ok {
		return fmt.Errorf("Handle: unexpected job type: %T", job)
	}

	row, err := e.buildRow(ctx, exportJob)
	if err != nil {
		return err
	}
	if row == nil {
		// The transaction vanished between commit and export; the pending
		// deletion job will write the tombstone.
		e.log.Debug().
			Str("transaction_id", exportJob.TransactionID.String()).
			Msg("Skipping export of missing transaction")
		return nil
	}

	inserter := e.client.Dataset(e.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("Handle: inserting row: %w", err)
	}
	return nil
}

func (e *Exporter) buildRow(ctx context.Context, job *jobs.ExportTransactionJob) (*TransactionRow, error) {
	now := time.Now().UTC()

	if job.Op == jobs.ExportOpDeleted {
		return &TransactionRow{
			TransactionID:   job.TransactionID.String(),
			OwnerID:         job.OwnerID.String(),
			TransactionDate: civil.DateOf(now),
			Op:              string(job.Op),
			Deleted:         true,
			ExportedTS:      now,
		}, nil
	}

	txn, err := e.reader.Find(ctx, job.OwnerID, job.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("buildRow: loading transaction: %w", err)
	}
	if txn == nil {
		return nil, nil
	}

	row := &TransactionRow{
		TransactionID:   txn.ID.String(),
		OwnerID:         txn.OwnerID.String(),
		CategoryID:      bigquery.NullString{StringVal: txn.CategoryID.String(), Valid: true},
		Amount:          txn.Amount.Rat(),
		Description:     txn.Description,
		TransactionDate: civil.DateOf(txn.Date),
		Type:            string(txn.Type),
		Op:              string(job.Op),
		ExportedTS:      now,
	}
	if txn.FromAccountID != nil {
		row.FromAccountID = bigquery.NullString{StringVal: txn.FromAccountID.String(), Valid: true}
	}
	if txn.ToAccountID != nil {
		row.ToAccountID = bigquery.NullString{StringVal: txn.ToAccountID.String(), Valid: true}
	}
	return row, nil
}

// ListRecent queries the latest exported rows for one owner, newest first.
// Tombstoned transactions are excluded.
func (e *Exporter) ListRecent(ctx context.Context, ownerID string, limit int) ([]*TransactionRow, error) {
	q := e.client.Query(fmt.Sprintf(`
		SELECT * EXCEPT (rn) FROM (
			SELECT t.*, ROW_NUMBER() OVER (
				PARTITION BY transaction_id ORDER BY exported_ts DESC
			) AS rn
			FROM %s.%s t
			WHERE owner_id = @owner_id
		)
		WHERE rn = 1 AND deleted = FALSE
		ORDER BY transaction_date DESC
		LIMIT @row_limit
	`, e.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "owner_id", Value: ownerID},
		{Name: "row_limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecent: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecent: iterating: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
