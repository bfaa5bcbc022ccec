package jp

import (
	"context"
	"math"
	"time"

	"kabu/internal/domain"
)

// fakeSource serves canned rows, filtered by start date like a real
// provider, and records the start date of every call.
type fakeSource struct {
	index  []domain.RawBar
	stocks map[string][]domain.RawBar
	errs   map[string]error

	calls []fakeCall
}

type fakeCall struct {
	series string
	start  time.Time
}

// fakeIndex is the index label fakeSource reports.
const fakeIndex = "N225"

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) IndexName() string { return fakeIndex }

func (f *fakeSource) StockBars(_ context.Context, symbol string, start time.Time) ([]domain.RawBar, error) {
	f.calls = append(f.calls, fakeCall{series: symbol, start: start})
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return since(f.stocks[symbol], start), nil
}

func (f *fakeSource) IndexBars(_ context.Context, start time.Time) ([]domain.RawBar, error) {
	f.calls = append(f.calls, fakeCall{series: fakeIndex, start: start})
	if err := f.errs[fakeIndex]; err != nil {
		return nil, err
	}
	return since(f.index, start), nil
}

func since(rows []domain.RawBar, start time.Time) []domain.RawBar {
	var out []domain.RawBar
	for _, r := range rows {
		if !r.Date.Before(start) {
			out = append(out, r)
		}
	}
	return out
}

func rawBar(date string, close float64) domain.RawBar {
	d, err := domain.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return domain.RawBar{
		Date: d, Open: close - 10, High: close + 20, Low: close - 30, Close: close,
		Volume: 1000, AdjustedClose: math.NaN(),
	}
}

func day(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
