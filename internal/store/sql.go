package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kabu/internal/domain"
)

// Compile-time interface checks.
var _ BarStore = (*SQLStore)(nil)
var _ SymbolStore = (*SQLStore)(nil)

// Dialect captures the few places where SQLite and PostgreSQL disagree.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// schema is valid for both dialects. Dates are ISO YYYY-MM-DD text so MAX()
// compares lexicographically on either backend.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS stock_bars (
		symbol     TEXT NOT NULL,
		trade_date TEXT NOT NULL,
		open       DOUBLE PRECISION NOT NULL,
		high       DOUBLE PRECISION NOT NULL,
		low        DOUBLE PRECISION NOT NULL,
		close      DOUBLE PRECISION NOT NULL,
		volume     DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS index_bars (
		trade_date     TEXT NOT NULL PRIMARY KEY,
		open           DOUBLE PRECISION NOT NULL,
		high           DOUBLE PRECISION NOT NULL,
		low            DOUBLE PRECISION NOT NULL,
		close          DOUBLE PRECISION NOT NULL,
		volume         DOUBLE PRECISION NOT NULL,
		adjusted_close DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tracked_symbols (
		symbol TEXT NOT NULL PRIMARY KEY
	)`,
}

// SQLStore implements BarStore and SymbolStore on a database/sql handle.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func newSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Migrate creates the bar and symbol tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// AppendStockBars inserts bars in a single transaction. Any failure, such as
// a duplicate (symbol, trade_date), rolls back the whole batch.
func (s *SQLStore) AppendStockBars(ctx context.Context, bars []domain.StockBar) error {
	if len(bars) == 0 {
		return nil
	}
	q := s.rebind(`INSERT INTO stock_bars (symbol, trade_date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range bars {
			if _, err := stmt.ExecContext(ctx, b.Symbol, domain.FormatDate(b.TradeDate),
				b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
				return fmt.Errorf("insert %s %s: %w", b.Symbol, domain.FormatDate(b.TradeDate), err)
			}
		}
		return nil
	})
}

// AppendIndexBars inserts index bars in a single transaction.
func (s *SQLStore) AppendIndexBars(ctx context.Context, bars []domain.IndexBar) error {
	if len(bars) == 0 {
		return nil
	}
	q := s.rebind(`INSERT INTO index_bars (trade_date, open, high, low, close, volume, adjusted_close)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range bars {
			if _, err := stmt.ExecContext(ctx, domain.FormatDate(b.TradeDate),
				b.Open, b.High, b.Low, b.Close, b.Volume, b.AdjustedClose); err != nil {
				return fmt.Errorf("insert index %s: %w", domain.FormatDate(b.TradeDate), err)
			}
		}
		return nil
	})
}

// LatestTradeDate returns the newest trade date stored in either bar table.
func (s *SQLStore) LatestTradeDate(ctx context.Context) (time.Time, bool, error) {
	const q = `SELECT MAX(d) FROM (
		SELECT MAX(trade_date) AS d FROM stock_bars
		UNION ALL
		SELECT MAX(trade_date) AS d FROM index_bars
	) AS latest`

	var latest sql.NullString
	if err := s.db.QueryRowContext(ctx, q).Scan(&latest); err != nil {
		return time.Time{}, false, fmt.Errorf("latest trade date: %w", err)
	}
	if !latest.Valid || latest.String == "" {
		return time.Time{}, false, nil
	}
	t, err := domain.ParseDate(latest.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest trade date %q: %w", latest.String, err)
	}
	return t, true, nil
}

// ReadStockBars returns all stored bars for symbol ordered by trade date.
func (s *SQLStore) ReadStockBars(ctx context.Context, symbol string) ([]domain.StockBar, error) {
	q := s.rebind(`SELECT symbol, trade_date, open, high, low, close, volume
		FROM stock_bars WHERE symbol = ? ORDER BY trade_date`)

	rows, err := s.db.QueryContext(ctx, q, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.StockBar
	for rows.Next() {
		var (
			b    domain.StockBar
			date string
		)
		if err := rows.Scan(&b.Symbol, &date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		if b.TradeDate, err = domain.ParseDate(date); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ReadIndexBars returns all stored index bars ordered by trade date.
func (s *SQLStore) ReadIndexBars(ctx context.Context) ([]domain.IndexBar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT trade_date, open, high, low, close, volume, adjusted_close
		FROM index_bars ORDER BY trade_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.IndexBar
	for rows.Next() {
		var (
			b    domain.IndexBar
			date string
		)
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.AdjustedClose); err != nil {
			return nil, err
		}
		if b.TradeDate, err = domain.ParseDate(date); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ---------------------------------------------------------------------------
// SymbolStore implementation
// ---------------------------------------------------------------------------

// ListTrackedSymbols returns tracked codes in ascending order.
func (s *SQLStore) ListTrackedSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM tracked_symbols ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list tracked symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// AddTrackedSymbols registers codes in one transaction, skipping blanks and
// codes that are already tracked.
func (s *SQLStore) AddTrackedSymbols(ctx context.Context, symbols []string) error {
	q := s.rebind(`INSERT INTO tracked_symbols (symbol) VALUES (?) ON CONFLICT (symbol) DO NOTHING`)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, sym := range symbols {
			sym = strings.TrimSpace(sym)
			if sym == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, q, sym); err != nil {
				return fmt.Errorf("track %s: %w", sym, err)
			}
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// inTx runs fn inside a transaction, committing on success and rolling back
// on any error.
func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $N for postgres.
func (s *SQLStore) rebind(q string) string {
	if s.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
