// Package domain defines the core types shared by the gatherer, the store
// and the exporter.
package domain

import (
	"time"
)

// DateLayout is the calendar-date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// Market identifies the exchange a series belongs to.
type Market string

const (
	MarketJP Market = "jp"
)

// StockBar is one trading day of OHLCV data for a single exchange code.
type StockBar struct {
	Symbol    string
	TradeDate time.Time // UTC midnight
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// IndexBar is one trading day of the market index series.
type IndexBar struct {
	TradeDate     time.Time // UTC midnight
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        float64
	AdjustedClose float64
}

// RawBar is a row as decoded from a market-data provider, before cleaning.
// Numeric fields may be NaN where the provider had no value.
type RawBar struct {
	Date          time.Time
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        float64
	AdjustedClose float64
}

// TruncateDate drops the time-of-day component of t, keeping the calendar
// date as seen in t's own location, and returns it as UTC midnight.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextDay returns the calendar day after t.
func NextDay(t time.Time) time.Time {
	return TruncateDate(t).AddDate(0, 0, 1)
}

// ParseDate parses a YYYY-MM-DD string as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
