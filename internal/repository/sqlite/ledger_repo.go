// Package sqlite exports finished ledgers to a SQLite file. The engine never
// reads these snapshots back; every run starts from its supplied initial state.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"payments_ledger/internal/domain"
	"payments_ledger/internal/repository"
	"payments_ledger/pkg/money"
)

var _ repository.LedgerRepository = (*LedgerRepository)(nil)

// Migrations returns the schema statements, one statement per string.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ledger_runs (
			run_id     TEXT PRIMARY KEY,
			clients    INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_balances (
			run_id    TEXT NOT NULL REFERENCES ledger_runs(run_id),
			client    INTEGER NOT NULL,
			available TEXT NOT NULL,
			held      TEXT NOT NULL,
			total     TEXT NOT NULL,
			locked    INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, client)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_balances_locked ON ledger_balances(run_id, locked)`,
	}
}

type LedgerRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the database at path and applies the schema.
func Open(path string, logger *slog.Logger) (*LedgerRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	for _, stmt := range Migrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
	}

	return &LedgerRepository{db: db, logger: logger}, nil
}

func (r *LedgerRepository) Close() error {
	return r.db.Close()
}

// SaveLedger writes ledger as the snapshot of runID. A run id can be saved
// only once.
func (r *LedgerRepository) SaveLedger(ctx context.Context, runID uuid.UUID, ledger domain.Ledger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger export: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM ledger_runs WHERE run_id = ?`, runID.String()).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("run %s: %w", runID, repository.ErrDuplicate)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check run %s: %w", runID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_runs (run_id, clients, created_at) VALUES (?, ?, ?)`,
		runID.String(), len(ledger), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_balances (run_id, client, available, held, total, locked)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare balances: %w", err)
	}
	defer stmt.Close()

	for _, row := range ledger {
		locked := 0
		if row.Locked {
			locked = 1
		}
		if _, err := stmt.ExecContext(ctx, runID.String(), int(row.Client),
			row.Available.String(), row.Held.String(), row.Total.String(), locked,
		); err != nil {
			return fmt.Errorf("insert client %d: %w", row.Client, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger export: %w", err)
	}

	r.logger.InfoContext(ctx, "Ledger exported",
		slog.String("run_id", runID.String()),
		slog.Int("clients", len(ledger)))
	return nil
}

// GetLedger returns the snapshot of runID ordered by client id.
func (r *LedgerRepository) GetLedger(ctx context.Context, runID uuid.UUID) (domain.Ledger, error) {
	var clients int
	err := r.db.QueryRowContext(ctx, `SELECT clients FROM ledger_runs WHERE run_id = ?`, runID.String()).Scan(&clients)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT client, available, held, total, locked
		FROM ledger_balances WHERE run_id = ? ORDER BY client
	`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	ledger := make(domain.Ledger, 0, clients)
	for rows.Next() {
		var (
			client                 int
			available, held, total string
			locked                 int
		)
		if err := rows.Scan(&client, &available, &held, &total, &locked); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}

		row := domain.ClientLedger{Client: domain.ClientID(client), Locked: locked == 1}
		for _, f := range []struct {
			dst *money.Amount
			src string
		}{{&row.Available, available}, {&row.Held, held}, {&row.Total, total}} {
			if *f.dst, err = money.Parse(f.src); err != nil {
				return nil, fmt.Errorf("client %d: %w", client, err)
			}
		}
		ledger = append(ledger, row)
	}
	return ledger, rows.Err()
}
