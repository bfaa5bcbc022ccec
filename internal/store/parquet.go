package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"kabu/internal/domain"
)

// ParquetExporter mirrors stored bars into Parquet files for offline
// analysis. Files are merged on write, so repeated exports are idempotent.
type ParquetExporter struct {
	DataDir string
	Market  domain.Market
}

// NewParquetExporter creates an exporter rooted at the given data directory.
func NewParquetExporter(dataDir string) *ParquetExporter {
	return &ParquetExporter{DataDir: dataDir, Market: domain.MarketJP}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// StockBarRecord is the Parquet schema for daily stock bars.
type StockBarRecord struct {
	Symbol    string  `parquet:"symbol"`
	TradeDate int64   `parquet:"trade_date,timestamp(millisecond)"` // Unix ms, UTC midnight
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// IndexBarRecord is the Parquet schema for daily index bars.
type IndexBarRecord struct {
	TradeDate     int64   `parquet:"trade_date,timestamp(millisecond)"`
	Open          float64 `parquet:"open"`
	High          float64 `parquet:"high"`
	Low           float64 `parquet:"low"`
	Close         float64 `parquet:"close"`
	Volume        float64 `parquet:"volume"`
	AdjustedClose float64 `parquet:"adjusted_close"`
}

// ExportSummary counts what an export run wrote.
type ExportSummary struct {
	Symbols   int
	StockBars int
	IndexBars int
}

// Export copies the index series and every listed symbol from src.
func (e *ParquetExporter) Export(ctx context.Context, src BarStore, symbols []string) (ExportSummary, error) {
	var sum ExportSummary

	index, err := src.ReadIndexBars(ctx)
	if err != nil {
		return sum, fmt.Errorf("reading index bars: %w", err)
	}
	if err := e.WriteIndexBars(index); err != nil {
		return sum, err
	}
	sum.IndexBars = len(index)

	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		bars, err := src.ReadStockBars(ctx, sym)
		if err != nil {
			return sum, fmt.Errorf("reading %s: %w", sym, err)
		}
		if err := e.WriteStockBars(bars); err != nil {
			return sum, err
		}
		sum.Symbols++
		sum.StockBars += len(bars)
	}
	return sum, nil
}

// WriteStockBars writes bars to Parquet files organized by symbol and year:
//
//	<DataDir>/<market>/daily/<SYMBOL>/<YYYY>.parquet
func (e *ParquetExporter) WriteStockBars(bars []domain.StockBar) error {
	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]StockBarRecord)
	for _, b := range bars {
		k := key{symbol: b.Symbol, year: b.TradeDate.Year()}
		groups[k] = append(groups[k], StockBarRecord{
			Symbol:    b.Symbol,
			TradeDate: b.TradeDate.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	for k, records := range groups {
		path := e.stockPath(k.symbol, k.year)

		existing, err := readExisting[StockBarRecord](path)
		if err != nil {
			return fmt.Errorf("merging bars for %s/%d: %w", k.symbol, k.year, err)
		}
		merged := mergeByDate(existing, records, func(r StockBarRecord) int64 { return r.TradeDate })

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// WriteIndexBars writes index bars grouped by year:
//
//	<DataDir>/<market>/index/<YYYY>.parquet
func (e *ParquetExporter) WriteIndexBars(bars []domain.IndexBar) error {
	groups := make(map[int][]IndexBarRecord)
	for _, b := range bars {
		y := b.TradeDate.Year()
		groups[y] = append(groups[y], IndexBarRecord{
			TradeDate:     b.TradeDate.UnixMilli(),
			Open:          b.Open,
			High:          b.High,
			Low:           b.Low,
			Close:         b.Close,
			Volume:        b.Volume,
			AdjustedClose: b.AdjustedClose,
		})
	}

	for year, records := range groups {
		path := e.indexPath(year)

		existing, err := readExisting[IndexBarRecord](path)
		if err != nil {
			return fmt.Errorf("merging index bars for %d: %w", year, err)
		}
		merged := mergeByDate(existing, records, func(r IndexBarRecord) int64 { return r.TradeDate })

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing index bars for %d: %w", year, err)
		}
	}
	return nil
}

// ReadStockBars reads every exported year for symbol.
func (e *ParquetExporter) ReadStockBars(symbol string) ([]domain.StockBar, error) {
	files, err := filepath.Glob(filepath.Join(e.DataDir, string(e.Market), "daily", strings.ToUpper(symbol), "*.parquet"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var bars []domain.StockBar
	for _, f := range files {
		records, err := readParquetFile[StockBarRecord](f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		for _, r := range records {
			bars = append(bars, domain.StockBar{
				Symbol:    r.Symbol,
				TradeDate: time.UnixMilli(r.TradeDate).UTC(),
				Open:      r.Open,
				High:      r.High,
				Low:       r.Low,
				Close:     r.Close,
				Volume:    r.Volume,
			})
		}
	}
	return bars, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

func (e *ParquetExporter) stockPath(symbol string, year int) string {
	return filepath.Join(e.DataDir, string(e.Market), "daily", strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

func (e *ParquetExporter) indexPath(year int) string {
	return filepath.Join(e.DataDir, string(e.Market), "index", fmt.Sprintf("%d.parquet", year))
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// readExisting returns the records already exported to path. A missing file
// is empty; any other read failure is returned so the file is not replaced.
func readExisting[T any](path string) ([]T, error) {
	records, err := readParquetFile[T](path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return records, nil
}

// mergeByDate deduplicates records by trade date, preferring incoming over
// existing, and sorts the result by date.
func mergeByDate[T any](existing, incoming []T, date func(T) int64) []T {
	seen := make(map[int64]T, len(existing)+len(incoming))
	for _, r := range existing {
		seen[date(r)] = r
	}
	for _, r := range incoming {
		seen[date(r)] = r
	}

	merged := make([]T, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return date(merged[i]) < date(merged[j])
	})
	return merged
}
