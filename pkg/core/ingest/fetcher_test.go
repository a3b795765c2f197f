package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reit_valuation/pkg/core/statement"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const incomeJSON = `[
  {"date":"2023-06-30","symbol":"O","period":"Q2","netIncome":11,"revenue":55,"depreciationAndAmortization":2},
  {"date":"2023-03-31","symbol":"O","period":"Q1","netIncome":10,"revenue":50,"depreciationAndAmortization":2}
]`

const cashFlowJSON = `[
  {"date":"2023-06-30","netIncome":11,"netCashUsedForInvestingActivites":-1,"depreciationAndAmortization":2},
  {"date":"2023-03-31","netIncome":10,"netCashUsedForInvestingActivites":-2,"depreciationAndAmortization":2},
]`

const balanceJSON = `[
  {"date":"2023-06-30","totalAssets":1100,"reportedCurrency":"USD"},
  {"date":"2023-03-31","totalAssets":1000,"reportedCurrency":"USD"}
]`

const marketCapJSON = `[
  {"symbol":"O","date":"2024-01-10","marketCap":200},
  {"symbol":"O","date":"2024-01-01","marketCap":100}
]`

func newTestServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	respond := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(hits, 1)
			assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/income-statement/O", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "quarter", r.URL.Query().Get("period"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		respond(incomeJSON)(w, r)
	})
	mux.HandleFunc("/cash-flow-statement/O", respond(cashFlowJSON))
	mux.HandleFunc("/balance-sheet-statement/O", respond(balanceJSON))
	mux.HandleFunc("/historical-market-capitalization/O", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "6000", r.URL.Query().Get("limit"))
		respond(marketCapJSON)(w, r)
	})
	mux.HandleFunc("/income-statement/BAD", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Error Message": "Invalid API KEY. Please retry or visit our documentation."}`))
	})
	mux.HandleFunc("/income-statement/DOWN", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(baseURL string, ttl time.Duration) *FMPClient {
	return NewFMPClient(Config{
		BaseURL:  baseURL,
		APIKey:   "test-key",
		Timeout:  5 * time.Second,
		CacheTTL: ttl,
	}, zerolog.Nop())
}

func TestStatements(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	client := newTestClient(srv.URL, 0)

	frags, err := client.Statements(context.Background(), "o")
	require.NoError(t, err)

	require.Len(t, frags.Income, 2)
	require.Len(t, frags.CashFlow, 2, "trailing comma repaired")
	require.Len(t, frags.Balance, 2)

	first := frags.Income[0]
	assert.Equal(t, "2023-03-31", first.Date.Format(statement.DateLayout), "sorted ascending")
	assert.Equal(t, 10.0, first.Fields[statement.FieldNetIncome])
	assert.Equal(t, "Q1", first.Meta["period"])
	assert.Equal(t, -2.0, frags.CashFlow[0].Fields[statement.FieldInvestingCashFlow])
	assert.Equal(t, "USD", frags.Balance[1].Meta["reportedCurrency"])

	merged, report, err := statement.Merge(frags.Income, frags.CashFlow, frags.Balance, statement.MergeOptions{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Kept)
	assert.Equal(t, 1100.0, merged[1].Fields[statement.FieldTotalAssets])
}

func TestMarketCap(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	client := newTestClient(srv.URL, 0)

	caps, err := client.MarketCap(context.Background(), "O")
	require.NoError(t, err)
	require.Len(t, caps, 2)
	assert.Equal(t, 100.0, caps[0].MarketCap)
	assert.Equal(t, 200.0, caps[1].MarketCap)
}

func TestCache(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	client := newTestClient(srv.URL, time.Minute)

	_, err := client.MarketCap(context.Background(), "O")
	require.NoError(t, err)
	_, err = client.MarketCap(context.Background(), "O")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDataSourceUnavailable(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	client := newTestClient(srv.URL, 0)

	tests := []struct {
		ticker      string
		expectedErr string
	}{
		{"DOWN", "status 503"},
		{"BAD", "Invalid API KEY"},
		{"MISSING", "status 404"},
	}

	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			_, err := client.Statements(context.Background(), tt.ticker)
			require.ErrorIs(t, err, ErrDataSourceUnavailable)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		c := newTestClient("http://127.0.0.1:1", 0)
		_, err := c.MarketCap(context.Background(), "O")
		assert.ErrorIs(t, err, ErrDataSourceUnavailable)
	})
}
