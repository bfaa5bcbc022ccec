package jp

import (
	"math"

	"kabu/internal/domain"
)

// MapStockBar converts a provider row into a StockBar. NaN fields become 0;
// the provider's "missing" marker is not preserved.
func MapStockBar(symbol string, raw domain.RawBar) domain.StockBar {
	return domain.StockBar{
		Symbol:    symbol,
		TradeDate: domain.TruncateDate(raw.Date),
		Open:      zeroNaN(raw.Open),
		High:      zeroNaN(raw.High),
		Low:       zeroNaN(raw.Low),
		Close:     zeroNaN(raw.Close),
		Volume:    zeroNaN(raw.Volume),
	}
}

// MapIndexBar converts a provider row into an IndexBar, zeroing NaN fields.
func MapIndexBar(raw domain.RawBar) domain.IndexBar {
	return domain.IndexBar{
		TradeDate:     domain.TruncateDate(raw.Date),
		Open:          zeroNaN(raw.Open),
		High:          zeroNaN(raw.High),
		Low:           zeroNaN(raw.Low),
		Close:         zeroNaN(raw.Close),
		Volume:        zeroNaN(raw.Volume),
		AdjustedClose: zeroNaN(raw.AdjustedClose),
	}
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
