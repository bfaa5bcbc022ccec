package jp

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"kabu/internal/config"
	"kabu/internal/domain"
)

var _ Source = (*QuandlSource)(nil)

// ---------------------------------------------------------------------------
// QuandlSource: Quandl / Nasdaq Data Link v3 time-series API.
// ---------------------------------------------------------------------------

// QuandlSource reads daily bars from the Quandl datasets API. Stock codes are
// looked up as <StockDatabase>/<code>; the index uses IndexSeries verbatim.
type QuandlSource struct {
	client        *resty.Client
	apiKey        string
	stockDatabase string
	indexSeries   string
}

// NewQuandlSource creates a QuandlSource from provider config. An empty API
// key sends anonymous requests, which Quandl serves at a lower quota.
func NewQuandlSource(cfg config.Provider) *QuandlSource {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultQuandlURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	stockDB := cfg.StockDatabase
	if stockDB == "" {
		stockDB = config.DefaultStockDatabase
	}
	indexSeries := cfg.IndexSeries
	if indexSeries == "" {
		indexSeries = config.DefaultIndexSeries
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &QuandlSource{
		client:        client,
		apiKey:        cfg.APIKey,
		stockDatabase: stockDB,
		indexSeries:   indexSeries,
	}
}

// Name returns the provider identifier.
func (q *QuandlSource) Name() string { return "quandl" }

// IndexName returns the index dataset code.
func (q *QuandlSource) IndexName() string { return q.indexSeries }

// StockBars fetches <StockDatabase>/<symbol> from start.
func (q *QuandlSource) StockBars(ctx context.Context, symbol string, start time.Time) ([]domain.RawBar, error) {
	return q.fetch(ctx, q.stockDatabase+"/"+symbol, start, false)
}

// IndexBars fetches the index series from start.
func (q *QuandlSource) IndexBars(ctx context.Context, start time.Time) ([]domain.RawBar, error) {
	return q.fetch(ctx, q.indexSeries, start, true)
}

// datasetResponse is the body of GET /datasets/{db}/{code}/data.json.
type datasetResponse struct {
	DatasetData struct {
		ColumnNames []string `json:"column_names"`
		Data        [][]any  `json:"data"`
	} `json:"dataset_data"`
}

// errorResponse is the body Quandl sends with non-2xx statuses.
type errorResponse struct {
	QuandlError struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"quandl_error"`
}

func (q *QuandlSource) fetch(ctx context.Context, series string, start time.Time, adjusted bool) ([]domain.RawBar, error) {
	params := map[string]string{
		"start_date": domain.FormatDate(start),
		"order":      "asc",
	}
	if q.apiKey != "" {
		params["api_key"] = q.apiKey
	}

	var body datasetResponse
	var errBody errorResponse
	resp, err := q.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&body).
		SetError(&errBody).
		Get("/datasets/" + series + "/data.json")
	if err != nil {
		return nil, fmt.Errorf("quandl %s: %w", series, err)
	}
	if resp.IsError() {
		if resp.StatusCode() == http.StatusNotFound {
			return nil, fmt.Errorf("quandl %s: %w", series, ErrUnknownSeries)
		}
		// Error bodies are best-effort; a proxy may answer with HTML and
		// leave errBody empty.
		if qe := errBody.QuandlError; qe.Code != "" {
			return nil, fmt.Errorf("quandl %s: status %d: %s %s", series, resp.StatusCode(), qe.Code, qe.Message)
		}
		return nil, fmt.Errorf("quandl %s: status %d", series, resp.StatusCode())
	}

	bars, err := decodeDataset(body.DatasetData.ColumnNames, body.DatasetData.Data, adjusted)
	if err != nil {
		return nil, fmt.Errorf("quandl %s: %w", series, err)
	}
	return bars, nil
}

// decodeDataset resolves the OHLCV columns by name and converts each row.
// JSON null cells decode as NaN.
func decodeDataset(columns []string, rows [][]any, adjusted bool) ([]domain.RawBar, error) {
	want := []string{"Date", "Open", "High", "Low", "Close", "Volume"}
	if adjusted {
		want = append(want, "Adjusted Close")
	}

	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	idx := make([]int, len(want))
	for i, name := range want {
		p, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q in %v", name, columns)
		}
		idx[i] = p
	}

	bars := make([]domain.RawBar, 0, len(rows))
	for n, row := range rows {
		vals := make([]float64, len(want))
		var date time.Time
		for i, p := range idx {
			if p >= len(row) {
				return nil, fmt.Errorf("row %d: missing %q cell", n, want[i])
			}
			if i == 0 {
				s, ok := row[p].(string)
				if !ok {
					return nil, fmt.Errorf("row %d: date %v is not a string", n, row[p])
				}
				d, err := domain.ParseDate(s)
				if err != nil {
					return nil, fmt.Errorf("row %d: %w", n, err)
				}
				date = d
				continue
			}
			v, err := cellFloat(row[p])
			if err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", n, want[i], err)
			}
			vals[i] = v
		}

		bar := domain.RawBar{
			Date:          date,
			Open:          vals[1],
			High:          vals[2],
			Low:           vals[3],
			Close:         vals[4],
			Volume:        vals[5],
			AdjustedClose: math.NaN(),
		}
		if adjusted {
			bar.AdjustedClose = vals[6]
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func cellFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("unexpected value %v (%T)", v, v)
	}
}
