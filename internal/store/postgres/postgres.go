// Package postgres implements every store interface on PostgreSQL through
// database/sql over the pgx driver. A ledger unit of work maps to one
// database transaction; account reads inside a scope take row-level locks so
// concurrent ledger operations on the same account serialize instead of
// losing updates.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dvloznov/finance-ledger/internal/ledger"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// Store wraps the connection pool and hands out typed sub-stores.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: opening database: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: pinging database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Accounts returns the non-transactional account store.
func (s *Store) Accounts() *AccountStore { return &AccountStore{q: s.db} }

// Categories returns the non-transactional category store.
func (s *Store) Categories() *CategoryStore { return &CategoryStore{q: s.db} }

// Transactions returns the non-transactional transaction store.
func (s *Store) Transactions() *TransactionStore { return &TransactionStore{q: s.db} }

// Users returns the user store.
func (s *Store) Users() *UserStore { return &UserStore{q: s.db} }

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// the same store code runs inside and outside a unit of work.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Begin opens a unit of work backed by one database transaction.
func (s *Store) Begin(ctx context.Context) (ledger.Scope, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Begin: starting transaction: %w", err)
	}
	return &scope{tx: tx}, nil
}

// scope is one open database transaction.
type scope struct {
	tx   *sql.Tx
	done bool
}

// Accounts implements ledger.Scope. Scoped account reads lock the row.
func (sc *scope) Accounts() ledger.AccountStore {
	return &AccountStore{q: sc.tx, forUpdate: true}
}

// Categories implements ledger.Scope.
func (sc *scope) Categories() ledger.CategoryStore {
	return &CategoryStore{q: sc.tx}
}

// Transactions implements ledger.Scope.
func (sc *scope) Transactions() ledger.TransactionStore {
	return &TransactionStore{q: sc.tx}
}

// Commit makes the scope's writes durable.
func (sc *scope) Commit() error {
	if sc.done {
		return nil
	}
	sc.done = true
	if err := sc.tx.Commit(); err != nil {
		return fmt.Errorf("Commit: %w", err)
	}
	return nil
}

// Rollback discards the scope's writes. Safe to call after Commit.
func (sc *scope) Rollback() error {
	if sc.done {
		return nil
	}
	sc.done = true
	if err := sc.tx.Rollback(); err != nil {
		return fmt.Errorf("Rollback: %w", err)
	}
	return nil
}

// Release rolls back anything still open. Always called, idempotent.
func (sc *scope) Release() {
	if sc.done {
		return
	}
	sc.done = true
	_ = sc.tx.Rollback()
}
