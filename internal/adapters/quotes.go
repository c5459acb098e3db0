package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LiveSource fetches a quote from an external market data provider.
type LiveSource interface {
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
	Name() string
}

const (
	SourceAlphaVantage = "alphavantage"
	SourceSynthetic    = "synthetic"
)

// Quote is a point-in-time snapshot for one symbol. Values are never mutated
// after construction; a newer fetch produces a new Quote.
type Quote struct {
	Symbol           string          `json:"symbol"`
	Open             decimal.Decimal `json:"open"`
	High             decimal.Decimal `json:"high"`
	Low              decimal.Decimal `json:"low"`
	Price            decimal.Decimal `json:"price"`
	PreviousClose    decimal.Decimal `json:"previous_close"`
	Volume           int64           `json:"volume"`
	Change           decimal.Decimal `json:"change"`
	ChangePercent    decimal.Decimal `json:"change_percent"`
	LatestTradingDay string          `json:"latest_trading_day"` // YYYY-MM-DD
	AsOf             time.Time       `json:"as_of"`
	Source           string          `json:"source"`
}

var hundred = decimal.NewFromInt(100)

// ChangeFor returns price-previousClose and the matching percent, both
// rounded to 2 places.
func ChangeFor(price, previousClose decimal.Decimal) (change, percent decimal.Decimal) {
	change = price.Sub(previousClose).Round(2)
	if previousClose.IsZero() {
		return change, decimal.Zero
	}
	percent = change.Div(previousClose).Mul(hundred).Round(2)
	return change, percent
}

// Consistent reports whether Change and ChangePercent agree with Price and
// PreviousClose at 2-decimal precision. One cent of slack absorbs provider
// rounding on live data.
func (q *Quote) Consistent() bool {
	change, percent := ChangeFor(q.Price, q.PreviousClose)
	tol := decimal.New(1, -2)
	return q.Change.Round(2).Sub(change).Abs().LessThanOrEqual(tol) &&
		q.ChangePercent.Round(2).Sub(percent).Abs().LessThanOrEqual(tol)
}

// ValidateQuote rejects quotes that cannot be shown.
func ValidateQuote(quote *Quote) error {
	if quote == nil {
		return fmt.Errorf("quote is nil")
	}
	if strings.TrimSpace(quote.Symbol) == "" {
		return fmt.Errorf("empty symbol")
	}
	if !quote.Price.IsPositive() {
		return fmt.Errorf("invalid price %s", quote.Price)
	}
	if quote.PreviousClose.IsNegative() {
		return fmt.Errorf("invalid previous close %s", quote.PreviousClose)
	}
	if quote.Volume < 0 {
		return fmt.Errorf("negative volume: %d", quote.Volume)
	}
	return nil
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ErrorKind classifies quote failures.
type ErrorKind string

const (
	KindTransport      ErrorKind = "transport"
	KindEmptyResponse  ErrorKind = "empty_response"
	KindSymbolNotFound ErrorKind = "symbol_not_found"
	KindInvalidSymbol  ErrorKind = "invalid_symbol"
)

var (
	ErrTransport      = errors.New("transport failure")
	ErrEmptyResponse  = errors.New("empty response")
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrInvalidSymbol  = errors.New("invalid symbol")
)

var kindSentinels = map[ErrorKind]error{
	KindTransport:      ErrTransport,
	KindEmptyResponse:  ErrEmptyResponse,
	KindSymbolNotFound: ErrSymbolNotFound,
	KindInvalidSymbol:  ErrInvalidSymbol,
}

// QuoteError represents different types of quote fetch errors
type QuoteError struct {
	Kind    ErrorKind
	Symbol  string
	Message string
	Cause   error
}

func (e *QuoteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error for %s: %s (%v)", e.Kind, e.Symbol, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error for %s: %s", e.Kind, e.Symbol, e.Message)
}

func (e *QuoteError) Unwrap() error { return e.Cause }

// Is lets errors.Is match a QuoteError against the kind sentinels.
func (e *QuoteError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

func NewTransportError(symbol, message string, cause error) *QuoteError {
	return &QuoteError{Kind: KindTransport, Symbol: symbol, Message: message, Cause: cause}
}

func NewEmptyResponseError(symbol, message string) *QuoteError {
	return &QuoteError{Kind: KindEmptyResponse, Symbol: symbol, Message: message}
}

func NewSymbolNotFoundError(symbol string, cause error) *QuoteError {
	return &QuoteError{Kind: KindSymbolNotFound, Symbol: symbol, Message: fmt.Sprintf("stock %s not found", symbol), Cause: cause}
}

func NewInvalidSymbolError(symbol, message string) *QuoteError {
	return &QuoteError{Kind: KindInvalidSymbol, Symbol: symbol, Message: message}
}
