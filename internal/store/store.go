// Package store defines storage interfaces for persisting and retrieving
// daily stock and index bars, and the set of tracked exchange codes.
package store

import (
	"context"
	"time"

	"kabu/internal/domain"
)

// BarStore persists and retrieves daily bar data. Writes are append-only:
// a bar whose key already exists fails the whole batch.
type BarStore interface {
	// AppendStockBars persists a batch of stock bars in one transaction.
	AppendStockBars(ctx context.Context, bars []domain.StockBar) error

	// AppendIndexBars persists a batch of index bars in one transaction.
	AppendIndexBars(ctx context.Context, bars []domain.IndexBar) error

	// LatestTradeDate returns the maximum trade date across the stock and
	// index tables. ok is false when neither table holds a row.
	LatestTradeDate(ctx context.Context) (latest time.Time, ok bool, err error)

	// ReadStockBars returns all bars for symbol in trade-date order.
	ReadStockBars(ctx context.Context, symbol string) ([]domain.StockBar, error)

	// ReadIndexBars returns all index bars in trade-date order.
	ReadIndexBars(ctx context.Context) ([]domain.IndexBar, error)
}

// SymbolStore persists the set of exchange codes the gatherer tracks.
type SymbolStore interface {
	// ListTrackedSymbols returns tracked codes in ascending order.
	ListTrackedSymbols(ctx context.Context) ([]string, error)

	// AddTrackedSymbols registers codes; already-tracked codes are ignored.
	AddTrackedSymbols(ctx context.Context, symbols []string) error
}
