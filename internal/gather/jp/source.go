package jp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kabu/internal/config"
	"kabu/internal/domain"
)

var (
	// ErrUnknownSeries is returned when the provider has no dataset for the
	// requested code.
	ErrUnknownSeries = errors.New("unknown series")

	// ErrEmptySymbol is returned when a fetch is requested without a code.
	ErrEmptySymbol = errors.New("empty symbol")
)

// Source is a market-data provider. Each call issues one request for every
// bar dated on or after start, in the provider's order.
type Source interface {
	// Name identifies the provider in logs.
	Name() string

	// IndexName labels the index series the provider serves.
	IndexName() string

	// StockBars returns raw daily bars for one exchange code.
	StockBars(ctx context.Context, symbol string, start time.Time) ([]domain.RawBar, error)

	// IndexBars returns raw daily bars for the market index.
	IndexBars(ctx context.Context, start time.Time) ([]domain.RawBar, error)
}

// NewSource returns the provider selected by cfg.Provider.Name.
func NewSource(cfg *config.Config) (Source, error) {
	switch cfg.Provider.Name {
	case "", "quandl":
		return NewQuandlSource(cfg.Provider), nil
	case "alpaca":
		return NewAlpacaSource(cfg.Alpaca), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider.Name)
	}
}
