// Package ingest retrieves quarterly statements and market capitalization
// history from Financial Modeling Prep.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reit_valuation/pkg/core/statement"
	"reit_valuation/pkg/core/utils"
	"reit_valuation/pkg/core/valuation"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrDataSourceUnavailable covers transport failures, non-2xx responses and
// payloads the provider returned in place of data.
var ErrDataSourceUnavailable = errors.New("data source unavailable")

// Fragments are the three statement feeds for one ticker, each ascending by date.
type Fragments struct {
	Income   statement.Series
	CashFlow statement.Series
	Balance  statement.Series
}

// Source is the data-provider contract the pipeline depends on.
type Source interface {
	Statements(ctx context.Context, ticker string) (Fragments, error)
	MarketCap(ctx context.Context, ticker string) (valuation.MarketCapSeries, error)
}

// Config holds provider settings. The API key is passed in, never read from the environment here.
type Config struct {
	BaseURL           string
	APIKey            string
	StatementLimit    int
	MarketCapLimit    int
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerSecond float64
	Burst             int
}

// FMPClient implements Source against the FMP v3 REST API.
type FMPClient struct {
	cfg     Config
	client  *http.Client
	cache   *cache.Cache
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewFMPClient creates a client. A zero CacheTTL disables response caching.
func NewFMPClient(cfg Config, log zerolog.Logger) *FMPClient {
	if cfg.StatementLimit <= 0 {
		cfg.StatementLimit = 100
	}
	if cfg.MarketCapLimit <= 0 {
		cfg.MarketCapLimit = 6000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &FMPClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, cfg.Burst),
		log:     log.With().Str("client", "fmp").Logger(),
	}
	if cfg.CacheTTL > 0 {
		c.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return c
}

// Statements fetches the income, cash flow and balance sheet feeds.
func (c *FMPClient) Statements(ctx context.Context, ticker string) (Fragments, error) {
	var frags Fragments
	feeds := []struct {
		path string
		dst  *statement.Series
	}{
		{"income-statement", &frags.Income},
		{"cash-flow-statement", &frags.CashFlow},
		{"balance-sheet-statement", &frags.Balance},
	}

	params := url.Values{}
	params.Set("period", "quarter")
	params.Set("limit", strconv.Itoa(c.cfg.StatementLimit))

	for _, f := range feeds {
		rows, err := c.fetchRows(ctx, f.path, ticker, params)
		if err != nil {
			return Fragments{}, err
		}
		series, err := toSeries(rows)
		if err != nil {
			return Fragments{}, fmt.Errorf("%w: %s for %s: %v", ErrDataSourceUnavailable, f.path, ticker, err)
		}
		*f.dst = series
	}

	c.log.Debug().
		Str("ticker", ticker).
		Int("income", len(frags.Income)).
		Int("cash_flow", len(frags.CashFlow)).
		Int("balance", len(frags.Balance)).
		Msg("Fetched statements")
	return frags, nil
}

// MarketCap fetches the historical market capitalization series.
func (c *FMPClient) MarketCap(ctx context.Context, ticker string) (valuation.MarketCapSeries, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.cfg.MarketCapLimit))

	rows, err := c.fetchRows(ctx, "historical-market-capitalization", ticker, params)
	if err != nil {
		return nil, err
	}

	caps := make(valuation.MarketCapSeries, 0, len(rows))
	for _, row := range rows {
		ds, _ := row["date"].(string)
		date, err := statement.ParseDate(ds)
		if err != nil {
			return nil, fmt.Errorf("%w: market cap for %s: %v", ErrDataSourceUnavailable, ticker, err)
		}
		v, ok := row["marketCap"].(float64)
		if !ok {
			continue
		}
		caps = append(caps, valuation.Observation{Date: date, MarketCap: v})
	}
	return caps.Sorted(), nil
}

func (c *FMPClient) fetchRows(ctx context.Context, path, ticker string, params url.Values) ([]map[string]interface{}, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	endpoint := fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.cfg.BaseURL, "/"), path, url.PathEscape(ticker))
	cacheKey := endpoint + "?" + params.Encode()

	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey); ok {
			c.log.Debug().Str("endpoint", path).Str("ticker", ticker).Msg("Cache hit")
			return cached.([]map[string]interface{}), nil
		}
	}

	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s for %s: %v", ErrDataSourceUnavailable, path, ticker, err)
	}

	var rows []map[string]interface{}
	if _, err := utils.SmartParse(string(body), &rows); err != nil {
		return nil, fmt.Errorf("%w: %s for %s: %s", ErrDataSourceUnavailable, path, ticker, providerMessage(body))
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, rows, cache.DefaultExpiration)
	}
	return rows, nil
}

func (c *FMPClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("apikey", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// toSeries converts provider rows to records: the date becomes the key,
// numbers become fields and strings become metadata. Rows arrive newest first.
func toSeries(rows []map[string]interface{}) (statement.Series, error) {
	s := make(statement.Series, 0, len(rows))
	for _, row := range rows {
		ds, _ := row["date"].(string)
		date, err := statement.ParseDate(ds)
		if err != nil {
			return nil, err
		}
		rec := statement.Record{Date: date, Fields: map[string]float64{}, Meta: map[string]string{}}
		for k, v := range row {
			if k == "date" {
				continue
			}
			switch val := v.(type) {
			case float64:
				rec.Fields[k] = val
			case string:
				rec.Meta[k] = val
			}
		}
		s = append(s, rec)
	}
	return s.Sorted(), nil
}

func providerMessage(body []byte) string {
	var obj map[string]interface{}
	if _, err := utils.SmartParse(string(body), &obj); err == nil {
		for _, k := range []string{"Error Message", "error", "message"} {
			if msg, ok := obj[k].(string); ok {
				return msg
			}
		}
	}
	const max = 120
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return "unexpected payload: " + s
}
