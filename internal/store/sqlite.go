package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"yupan/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ LedgerStore = (*SQLiteStore)(nil)

// SQLiteStore implements LedgerStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS ledger_trades (
	run_id      TEXT    NOT NULL,
	seq         INTEGER NOT NULL,
	symbol      TEXT    NOT NULL,
	mode        TEXT    NOT NULL,
	side        TEXT    NOT NULL,
	trade_date  TEXT    NOT NULL,
	shares      INTEGER NOT NULL,
	price       REAL    NOT NULL,
	notional    REAL    NOT NULL,
	cash        REAL    NOT NULL,
	return_pct  REAL    NOT NULL,
	commission  REAL    NOT NULL,
	description TEXT    NOT NULL,
	created_at  TEXT    NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_ledger_symbol ON ledger_trades(symbol);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// LedgerStore implementation
// ---------------------------------------------------------------------------

// SaveLedger inserts the trades of one run in a single transaction. Saving
// the same run again replaces it.
func (s *SQLiteStore) SaveLedger(ctx context.Context, runID, symbol, mode string, trades []domain.Trade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_trades WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("clearing run %s: %w", runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ledger_trades
		(run_id, seq, symbol, mode, side, trade_date, shares, price, notional, cash, return_pct, commission, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, t := range trades {
		if _, err := stmt.ExecContext(ctx,
			runID, i, symbol, mode, string(t.Side), t.Date.Format(domain.DateLayout),
			t.Shares, t.Price, t.Notional, t.Cash, t.ReturnPct, t.Commission, t.Description, now,
		); err != nil {
			return fmt.Errorf("inserting trade %d of run %s: %w", i, runID, err)
		}
	}
	return tx.Commit()
}

// ListTrades returns the trades of a run ordered by ledger sequence.
func (s *SQLiteStore) ListTrades(ctx context.Context, runID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT side, trade_date, shares, price, notional, cash, return_pct, commission, description
		FROM ledger_trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var (
			t    domain.Trade
			side string
			date string
		)
		if err := rows.Scan(&side, &date, &t.Shares, &t.Price, &t.Notional, &t.Cash, &t.ReturnPct, &t.Commission, &t.Description); err != nil {
			return nil, err
		}
		t.Side = domain.Side(side)
		if t.Date, err = domain.ParseDate(date); err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
