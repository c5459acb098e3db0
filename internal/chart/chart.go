// Package chart produces the synthetic price walk drawn by the detail view.
// The points are cosmetic; they are not derived from historical data.
package chart

import (
	"fmt"
	"iter"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Rajchodisetti/quotedash/internal/adapters"
)

type Timeframe string

const (
	OneDay   Timeframe = "1D"
	OneWeek  Timeframe = "1W"
	OneMonth Timeframe = "1M"
)

// StepVolatility is the full width of the per-point uniform move.
const StepVolatility = 0.01

var defaultBase = decimal.NewFromInt(100)

func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(strings.ToUpper(strings.TrimSpace(s))); tf {
	case OneDay, OneWeek, OneMonth:
		return tf, nil
	case "":
		return OneDay, nil
	default:
		return "", fmt.Errorf("unsupported timeframe %q", s)
	}
}

// Points is the fixed number of points for the timeframe.
func (tf Timeframe) Points() int {
	switch tf {
	case OneWeek:
		return 7
	case OneMonth:
		return 30
	default:
		return 24
	}
}

// Step is the spacing between consecutive points.
func (tf Timeframe) Step() time.Duration {
	if tf == OneDay {
		return time.Hour
	}
	return 24 * time.Hour
}

type Point struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// Series walks from base in time order, ending at now. The returned sequence
// yields its points once; ranging it again yields nothing.
func Series(base decimal.Decimal, tf Timeframe, now time.Time, rnd *rand.Rand) iter.Seq[Point] {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(now.UnixNano()))
	}
	n, step := tf.Points(), tf.Step()
	var used atomic.Bool

	return func(yield func(Point) bool) {
		if used.Swap(true) {
			return
		}
		price := base
		for i := n - 1; i >= 0; i-- {
			u := (rnd.Float64() - 0.5) * StepVolatility
			price = price.Mul(decimal.NewFromFloat(1 + u))
			p := Point{Time: now.Add(-time.Duration(i) * step), Price: price.Round(2)}
			if !yield(p) {
				return
			}
		}
	}
}

// PriceLookup reports the last known price for a symbol.
type PriceLookup interface {
	LastPrice(symbol string) (decimal.Decimal, bool)
}

// BasePrice seeds the walk: the watched price if there is one, then the
// fallback baseline, then 100.
func BasePrice(symbol string, watched PriceLookup) decimal.Decimal {
	symbol = adapters.NormalizeSymbol(symbol)
	if watched != nil {
		if p, ok := watched.LastPrice(symbol); ok && p.IsPositive() {
			return p
		}
	}
	if q, ok := adapters.FallbackQuote(symbol); ok {
		return q.Price
	}
	return defaultBase
}
