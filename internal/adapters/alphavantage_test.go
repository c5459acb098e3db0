package adapters

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aaplEnvelope = `{
  "Global Quote": {
    "01. symbol": "AAPL",
    "02. open": "175.43",
    "03. high": "176.24",
    "04. low": "174.93",
    "05. price": "175.84",
    "06. volume": "48591690",
    "07. latest trading day": "2024-01-15",
    "08. previous close": "175.43",
    "09. change": "0.41",
    "10. change percent": "0.23%"
  }
}`

func newTestSource(t *testing.T, handler http.HandlerFunc) *AlphaVantageSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	src, err := NewAlphaVantageSource(AlphaVantageConfig{APIKey: "test-key", BaseURL: srv.URL, TimeoutSeconds: 5})
	require.NoError(t, err)
	return src
}

func TestAlphaVantageSource_FetchQuote(t *testing.T) {
	var gotQuery map[string]string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"function": q.Get("function"),
			"symbol":   q.Get("symbol"),
			"apikey":   q.Get("apikey"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(aaplEnvelope))
	})

	quote, err := src.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"function": "GLOBAL_QUOTE", "symbol": "AAPL", "apikey": "test-key"}, gotQuery)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, SourceAlphaVantage, quote.Source)
	assert.True(t, quote.Price.Equal(d("175.84")))
	assert.True(t, quote.PreviousClose.Equal(d("175.43")))
	assert.True(t, quote.ChangePercent.Equal(d("0.23")), "percent sign must be stripped")
	assert.Equal(t, int64(48591690), quote.Volume)
	assert.Equal(t, "2024-01-15", quote.LatestTradingDay)
	assert.WithinDuration(t, time.Now(), quote.AsOf, 5*time.Second)
	assert.True(t, quote.Consistent())
}

func TestAlphaVantageSource_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind error
	}{
		{"empty record", http.StatusOK, `{"Global Quote": {}}`, ErrEmptyResponse},
		{"missing record", http.StatusOK, `{}`, ErrEmptyResponse},
		{"throttle note", http.StatusOK, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`, ErrEmptyResponse},
		{"information", http.StatusOK, `{"Information": "rate limit"}`, ErrEmptyResponse},
		{"error message", http.StatusOK, `{"Error Message": "Invalid API call"}`, ErrEmptyResponse},
		{"malformed json", http.StatusOK, `{"Global Quote": `, ErrEmptyResponse},
		{"malformed number", http.StatusOK, `{"Global Quote": {"01. symbol": "AAPL", "05. price": "abc"}}`, ErrEmptyResponse},
		{"server error", http.StatusInternalServerError, `oops`, ErrTransport},
		{"rate limited status", http.StatusTooManyRequests, ``, ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			quote, err := src.FetchQuote(context.Background(), "AAPL")
			assert.Nil(t, quote)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind), "got %v", err)
		})
	}
}

func TestAlphaVantageSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src, err := NewAlphaVantageSource(AlphaVantageConfig{APIKey: "k", BaseURL: url, TimeoutSeconds: 1})
	require.NoError(t, err)

	_, err = src.FetchQuote(context.Background(), "AAPL")
	assert.True(t, errors.Is(err, ErrTransport), "got %v", err)
}

func TestAlphaVantageConfig(t *testing.T) {
	_, err := NewAlphaVantageSource(AlphaVantageConfig{})
	assert.Error(t, err)

	src, err := NewAlphaVantageSource(AlphaVantageConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultAlphaVantageURL, src.baseURL)
}

func TestAlphaVantageLive(t *testing.T) {
	apiKey := os.Getenv("ALPHA_VANTAGE_API_KEY")
	if apiKey == "" || testing.Short() {
		t.Skip("Skipping Alpha Vantage live test - no API key provided")
	}

	src, err := NewAlphaVantageSource(AlphaVantageConfig{APIKey: apiKey, TimeoutSeconds: 10})
	require.NoError(t, err)

	quote, err := src.FetchQuote(context.Background(), "AAPL")
	if err != nil {
		// the free tier throttles aggressively
		t.Logf("FetchQuote() error = %v (may be rate limited)", err)
		return
	}
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.NoError(t, ValidateQuote(quote))
}
