package adapters

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSyntheticVolatility is the full width of the uniform jitter band (2%).
const DefaultSyntheticVolatility = 0.02

// SyntheticGenerator perturbs baseline quotes so fallback data ticks like a
// live feed. The output carries no predictive value.
type SyntheticGenerator struct {
	volatility float64

	mu     sync.Mutex
	random *rand.Rand
	now    func() time.Time
}

// NewSyntheticGenerator creates a generator. A nil src seeds from the clock;
// volatility <= 0 selects DefaultSyntheticVolatility.
func NewSyntheticGenerator(volatility float64, src rand.Source) *SyntheticGenerator {
	if volatility <= 0 {
		volatility = DefaultSyntheticVolatility
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &SyntheticGenerator{
		volatility: volatility,
		random:     rand.New(src),
		now:        time.Now,
	}
}

// Generate returns a copy of baseline with price' = price*(1+u),
// u ~ U[-volatility/2, +volatility/2], and change fields recomputed against
// the baseline's previous close.
func (g *SyntheticGenerator) Generate(baseline Quote) Quote {
	g.mu.Lock()
	u := (g.random.Float64() - 0.5) * g.volatility
	g.mu.Unlock()

	q := baseline
	q.Price = baseline.Price.Mul(decimal.NewFromFloat(1 + u)).Round(2)
	q.Change, q.ChangePercent = ChangeFor(q.Price, baseline.PreviousClose)
	q.AsOf = g.now()
	q.Source = SourceSynthetic
	return q
}
