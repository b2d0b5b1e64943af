// Package store defines storage interfaces for persisting and retrieving
// bar series, static stock info and backtest ledgers.
package store

import (
	"context"
	"time"

	"yupan/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars merges a batch of bars into storage, keeping the last bar
	// seen for each (symbol, session).
	WriteBars(ctx context.Context, market domain.Market, interval domain.Interval, bars []domain.Bar) error

	// ReadBars returns bars for symbol within [start, end], ascending. A
	// zero start or end leaves that side unbounded.
	ReadBars(ctx context.Context, symbol string, market domain.Market, interval domain.Interval, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with bars for the market and
	// interval.
	ListSymbols(ctx context.Context, market domain.Market, interval domain.Interval) ([]string, error)
}

// InfoStore persists the static per-symbol records used to derive market
// capitalization.
type InfoStore interface {
	// WriteInfo merges info records, keeping the last record seen for each
	// (symbol, change date).
	WriteInfo(ctx context.Context, market domain.Market, infos []domain.StockInfo) error

	// ReadInfo returns every record for symbol ordered by change date.
	ReadInfo(ctx context.Context, symbol string, market domain.Market) ([]domain.StockInfo, error)
}

// LedgerStore persists simulator ledgers.
type LedgerStore interface {
	// SaveLedger records the trades of one backtest run.
	SaveLedger(ctx context.Context, runID, symbol, mode string, trades []domain.Trade) error

	// ListTrades returns the trades of a run in ledger order.
	ListTrades(ctx context.Context, runID string) ([]domain.Trade, error)
}
