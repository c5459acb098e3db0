package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rajchodisetti/quotedash/internal/observ"
)

// QuoteClient is the single entry point for quotes: it paces calls through
// the shared RateLimiter, tries the live source once, and substitutes a
// synthetic quote from the fallback table when the live call fails or comes
// back empty. There are no retries and no recovery probe.
type QuoteClient struct {
	live      LiveSource
	limiter   *RateLimiter
	generator *SyntheticGenerator
	lookup    func(symbol string) (Quote, bool)
}

func NewQuoteClient(live LiveSource, limiter *RateLimiter, generator *SyntheticGenerator) *QuoteClient {
	if live == nil {
		live = OfflineSource{}
	}
	if limiter == nil {
		limiter = NewRateLimiter(DefaultRateLimitInterval)
	}
	if generator == nil {
		generator = NewSyntheticGenerator(DefaultSyntheticVolatility, nil)
	}
	return &QuoteClient{
		live:      live,
		limiter:   limiter,
		generator: generator,
		lookup:    FallbackQuote,
	}
}

// GetQuote returns a live or synthetic quote for symbol. The only errors
// surfaced are ErrInvalidSymbol, ErrSymbolNotFound and a cancelled ctx while
// waiting on the rate limiter.
func (c *QuoteClient) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, NewInvalidSymbolError(symbol, "empty symbol")
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait for %s: %w", symbol, err)
	}

	start := time.Now()
	quote, err := c.live.FetchQuote(ctx, symbol)
	observ.RecordDuration("quote_fetch", time.Since(start), map[string]string{"source": c.live.Name()})
	if err == nil {
		observ.IncCounter("quote_fetch_total", map[string]string{"source": SourceAlphaVantage})
		return quote, nil
	}

	reason := string(KindTransport)
	var qe *QuoteError
	if errors.As(err, &qe) {
		reason = string(qe.Kind)
	}
	observ.IncCounter("quote_fallback_total", map[string]string{"reason": reason})
	observ.Log("quote_fallback", map[string]any{
		"symbol": symbol,
		"reason": reason,
		"error":  err.Error(),
	})
	return c.fallback(symbol, err)
}

func (c *QuoteClient) fallback(symbol string, liveErr error) (q *Quote, err error) {
	defer func() {
		if r := recover(); r != nil {
			q, err = nil, NewSymbolNotFoundError(symbol, fmt.Errorf("fallback failed: %v", r))
		}
		if err != nil {
			observ.IncCounter("quote_not_found_total", nil)
		}
	}()

	base, ok := c.lookup(symbol)
	if !ok {
		return nil, NewSymbolNotFoundError(symbol, liveErr)
	}
	synth := c.generator.Generate(base)
	observ.IncCounter("quote_fetch_total", map[string]string{"source": SourceSynthetic})
	return &synth, nil
}

// OfflineSource is a LiveSource that is always unreachable, so every quote
// is synthetic.
type OfflineSource struct{}

func (OfflineSource) Name() string { return "offline" }

func (OfflineSource) FetchQuote(_ context.Context, symbol string) (*Quote, error) {
	return nil, NewTransportError(symbol, "live source disabled", nil)
}
