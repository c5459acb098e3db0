package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const DefaultAlphaVantageURL = "https://www.alphavantage.co/query"

// AlphaVantageConfig holds configuration for the Alpha Vantage source
type AlphaVantageConfig struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int // 0 leaves the transport default (no timeout)
}

// AlphaVantageSource fetches GLOBAL_QUOTE records. It performs exactly one
// HTTP call per FetchQuote; pacing and fallback belong to QuoteClient.
type AlphaVantageSource struct {
	apiKey  string
	baseURL string
	client  *resty.Client
	now     func() time.Time
}

func NewAlphaVantageSource(config AlphaVantageConfig) (*AlphaVantageSource, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Alpha Vantage API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultAlphaVantageURL
	}
	client := resty.New().
		SetTimeout(time.Duration(config.TimeoutSeconds) * time.Second).
		SetHeader("Accept", "application/json")

	return &AlphaVantageSource{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		client:  client,
		now:     time.Now,
	}, nil
}

func (av *AlphaVantageSource) Name() string { return SourceAlphaVantage }

// FetchQuote makes the actual API request to Alpha Vantage
func (av *AlphaVantageSource) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	resp, err := av.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   av.apiKey,
		}).
		Get(av.baseURL)
	if err != nil {
		return nil, NewTransportError(symbol, "request failed", err)
	}
	if resp.IsError() {
		return nil, NewTransportError(symbol, fmt.Sprintf("HTTP %d", resp.StatusCode()), nil)
	}
	return parseGlobalQuote(resp.Body(), symbol, av.now())
}

// globalQuoteEnvelope is the GLOBAL_QUOTE response. Throttled or rejected
// calls come back as 200 with Note/Information/Error Message set instead.
type globalQuoteEnvelope struct {
	GlobalQuote  map[string]string `json:"Global Quote"`
	Note         string            `json:"Note"`
	Information  string            `json:"Information"`
	ErrorMessage string            `json:"Error Message"`
}

func parseGlobalQuote(body []byte, symbol string, asOf time.Time) (*Quote, error) {
	var env globalQuoteEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, NewEmptyResponseError(symbol, "malformed envelope: "+err.Error())
	}
	switch {
	case env.ErrorMessage != "":
		return nil, NewEmptyResponseError(symbol, env.ErrorMessage)
	case env.Note != "":
		return nil, NewEmptyResponseError(symbol, env.Note)
	case env.Information != "":
		return nil, NewEmptyResponseError(symbol, env.Information)
	case len(env.GlobalQuote) == 0:
		return nil, NewEmptyResponseError(symbol, "no quote data returned")
	}

	rec := env.GlobalQuote
	p := fieldParser{rec: rec}
	q := &Quote{
		Symbol:           symbol,
		Open:             p.decimal("02. open"),
		High:             p.decimal("03. high"),
		Low:              p.decimal("04. low"),
		Price:            p.decimal("05. price"),
		Volume:           p.int("06. volume"),
		LatestTradingDay: rec["07. latest trading day"],
		PreviousClose:    p.decimal("08. previous close"),
		Change:           p.decimal("09. change"),
		ChangePercent:    p.decimal("10. change percent"),
		AsOf:             asOf,
		Source:           SourceAlphaVantage,
	}
	if s := NormalizeSymbol(rec["01. symbol"]); s != "" {
		q.Symbol = s
	}
	if p.err != nil {
		return nil, NewEmptyResponseError(symbol, p.err.Error())
	}
	if err := ValidateQuote(q); err != nil {
		return nil, NewEmptyResponseError(symbol, err.Error())
	}
	return q, nil
}

// fieldParser keeps the first parse error so the record is rejected whole.
type fieldParser struct {
	rec map[string]string
	err error
}

func (p *fieldParser) decimal(key string) decimal.Decimal {
	raw := strings.TrimSuffix(strings.TrimSpace(p.rec[key]), "%")
	d, err := decimal.NewFromString(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("field %q: %w", key, err)
	}
	return d
}

func (p *fieldParser) int(key string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(p.rec[key]), 10, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("field %q: %w", key, err)
	}
	return n
}
