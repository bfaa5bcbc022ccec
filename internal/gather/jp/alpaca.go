package jp

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"kabu/internal/config"
	"kabu/internal/domain"
)

var _ Source = (*AlpacaSource)(nil)

// ---------------------------------------------------------------------------
// AlpacaSource: daily bars from the Alpaca market-data API.
// ---------------------------------------------------------------------------

// AlpacaSource serves the same pipeline from Alpaca, tracking Alpaca-listed
// tickers and an index proxy (for example a country ETF) instead of the TSE
// datasets.
type AlpacaSource struct {
	client      *marketdata.Client
	feed        marketdata.Feed
	indexSymbol string
}

// NewAlpacaSource creates an AlpacaSource configured with the given Alpaca
// credentials and data endpoint.
func NewAlpacaSource(cfg config.Alpaca) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		opts.BaseURL = cfg.DataURL
	}
	indexSymbol := cfg.IndexSymbol
	if indexSymbol == "" {
		indexSymbol = config.DefaultAlpacaIndex
	}

	return &AlpacaSource{
		client:      marketdata.NewClient(opts),
		feed:        marketdata.Feed(cfg.Feed),
		indexSymbol: indexSymbol,
	}
}

// Name returns the provider identifier.
func (a *AlpacaSource) Name() string { return "alpaca" }

// IndexName returns the ticker standing in for the index.
func (a *AlpacaSource) IndexName() string { return a.indexSymbol }

// StockBars fetches unadjusted daily bars for symbol from start.
func (a *AlpacaSource) StockBars(ctx context.Context, symbol string, start time.Time) ([]domain.RawBar, error) {
	bars, err := a.getBars(ctx, symbol, start)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RawBar, 0, len(bars))
	for _, b := range bars {
		out = append(out, rawFromAlpaca(b))
	}
	return out, nil
}

// IndexBars fetches unadjusted daily bars for the index proxy. Alpaca bars
// carry no separate adjusted close, so the raw close fills both columns.
func (a *AlpacaSource) IndexBars(ctx context.Context, start time.Time) ([]domain.RawBar, error) {
	bars, err := a.getBars(ctx, a.indexSymbol, start)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RawBar, 0, len(bars))
	for _, b := range bars {
		rb := rawFromAlpaca(b)
		rb.AdjustedClose = b.Close
		out = append(out, rb)
	}
	return out, nil
}

func (a *AlpacaSource) getBars(ctx context.Context, symbol string, start time.Time) ([]marketdata.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars, err := a.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.Raw,
		Start:      start,
		Feed:       a.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca GetBars %s: %w", symbol, err)
	}
	return bars, nil
}

func rawFromAlpaca(b marketdata.Bar) domain.RawBar {
	return domain.RawBar{
		Date:          b.Timestamp,
		Open:          b.Open,
		High:          b.High,
		Low:           b.Low,
		Close:         b.Close,
		Volume:        float64(b.Volume),
		AdjustedClose: math.NaN(),
	}
}
