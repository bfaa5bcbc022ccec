package jp

import (
	"context"
	"strings"
	"time"

	"kabu/internal/domain"
	"kabu/internal/util"
)

// Fetcher pulls one series from a Source and cleans each row through the
// record mapper. It performs no retries; provider errors are returned as-is.
type Fetcher struct {
	source  Source
	limiter *util.RateLimiter
}

// NewFetcher wraps source. limiter may be nil for unpaced requests.
func NewFetcher(source Source, limiter *util.RateLimiter) *Fetcher {
	return &Fetcher{source: source, limiter: limiter}
}

// IndexName returns the source's label for the index series.
func (f *Fetcher) IndexName() string { return f.source.IndexName() }

// FetchSymbol returns every bar for symbol dated on or after start. An empty
// result means the provider had nothing new.
func (f *Fetcher) FetchSymbol(ctx context.Context, symbol string, start time.Time) ([]domain.StockBar, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, ErrEmptySymbol
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	raw, err := f.source.StockBars(ctx, symbol, domain.TruncateDate(start))
	if err != nil {
		return nil, err
	}

	bars := make([]domain.StockBar, 0, len(raw))
	for _, r := range raw {
		bars = append(bars, MapStockBar(symbol, r))
	}
	return bars, nil
}

// FetchIndex returns every index bar dated on or after start.
func (f *Fetcher) FetchIndex(ctx context.Context, start time.Time) ([]domain.IndexBar, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	raw, err := f.source.IndexBars(ctx, domain.TruncateDate(start))
	if err != nil {
		return nil, err
	}

	bars := make([]domain.IndexBar, 0, len(raw))
	for _, r := range raw {
		bars = append(bars, MapIndexBar(r))
	}
	return bars, nil
}
