package jp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kabu/internal/domain"
	"kabu/internal/gather"
	"kabu/internal/store"
)

// ---------------------------------------------------------------------------
// Compile-time interface check
// ---------------------------------------------------------------------------

var _ gather.Gatherer = (*DailyBarGatherer)(nil)

// RunSummary reports what a single pass wrote.
type RunSummary struct {
	RunID   string
	Start   time.Time
	Series  int // index plus every tracked symbol fetched
	Rows    int
	Commits int
}

// ---------------------------------------------------------------------------
// DailyBarGatherer: appends new daily bars for the index and tracked codes.
// ---------------------------------------------------------------------------

// DailyBarGatherer resumes from the newest stored trade date, fetches the
// index and then each tracked symbol in turn, and commits each non-empty
// series as one batch. The first error aborts the pass; series committed
// before it stay committed, so a re-run picks up from there.
//
// Only one pass may run against a store at a time: the watermark read and
// the inserts are not coordinated across processes.
type DailyBarGatherer struct {
	fetcher *Fetcher
	bars    store.BarStore
	symbols store.SymbolStore
	epoch   time.Time
	log     *slog.Logger
}

// NewDailyBarGatherer creates a DailyBarGatherer. epoch is the first date
// requested when the store is empty.
func NewDailyBarGatherer(fetcher *Fetcher, bars store.BarStore, symbols store.SymbolStore, epoch time.Time, log *slog.Logger) *DailyBarGatherer {
	if log == nil {
		log = slog.Default()
	}
	return &DailyBarGatherer{
		fetcher: fetcher,
		bars:    bars,
		symbols: symbols,
		epoch:   domain.TruncateDate(epoch),
		log:     log.With("gatherer", "jp-daily"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "jp-daily" }

// Run performs one pass. See Gather for the summary.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
	_, err := g.Gather(ctx)
	return err
}

// Gather performs one pass and returns what it wrote. On error the summary
// covers the series committed before the failure.
func (g *DailyBarGatherer) Gather(ctx context.Context) (RunSummary, error) {
	sum := RunSummary{RunID: uuid.NewString()}
	log := g.log.With("run_id", sum.RunID)

	start, err := ResolveStart(ctx, g.bars, g.epoch)
	if err != nil {
		return sum, err
	}
	sum.Start = start
	log.Info("starting jp-daily", "start", domain.FormatDate(start))

	// Index series.
	indexName := g.fetcher.IndexName()
	log.Info("download", "series", indexName)
	index, err := g.fetcher.FetchIndex(ctx, start)
	if err != nil {
		return sum, fmt.Errorf("fetching %s: %w", indexName, err)
	}
	sum.Series++
	if len(index) > 0 {
		logBatch(log, indexName, len(index), index[0].TradeDate, index[len(index)-1].TradeDate)
		for _, b := range index {
			log.Debug("bar", "series", indexName, "date", domain.FormatDate(b.TradeDate),
				"open", b.Open, "high", b.High, "low", b.Low, "close", b.Close,
				"volume", b.Volume, "adjClose", b.AdjustedClose)
		}
		if err := g.bars.AppendIndexBars(ctx, index); err != nil {
			return sum, fmt.Errorf("writing %s: %w", indexName, err)
		}
		sum.Rows += len(index)
		sum.Commits++
	}

	// Tracked symbols, in store order.
	codes, err := g.symbols.ListTrackedSymbols(ctx)
	if err != nil {
		return sum, err
	}
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		log.Info("download", "series", code)
		bars, err := g.fetcher.FetchSymbol(ctx, code, start)
		if err != nil {
			return sum, fmt.Errorf("fetching %s: %w", code, err)
		}
		sum.Series++
		if len(bars) == 0 {
			continue
		}

		logBatch(log, code, len(bars), bars[0].TradeDate, bars[len(bars)-1].TradeDate)
		for _, b := range bars {
			log.Debug("bar", "series", code, "date", domain.FormatDate(b.TradeDate),
				"open", b.Open, "high", b.High, "low", b.Low, "close", b.Close, "volume", b.Volume)
		}
		if err := g.bars.AppendStockBars(ctx, bars); err != nil {
			return sum, fmt.Errorf("writing %s: %w", code, err)
		}
		sum.Rows += len(bars)
		sum.Commits++
	}

	log.Info("complete", "series", sum.Series, "rows", sum.Rows, "commits", sum.Commits)
	return sum, nil
}

func logBatch(log *slog.Logger, series string, rows int, first, last time.Time) {
	log.Info("commit",
		"series", series,
		"rows", rows,
		"first", domain.FormatDate(first),
		"last", domain.FormatDate(last),
	)
}

// ResolveStart returns the day after the newest stored trade date across
// both bar tables, or epoch when the store holds no bars.
func ResolveStart(ctx context.Context, bars store.BarStore, epoch time.Time) (time.Time, error) {
	latest, ok, err := bars.LatestTradeDate(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolving watermark: %w", err)
	}
	if !ok {
		return domain.TruncateDate(epoch), nil
	}
	return domain.NextDay(latest), nil
}
