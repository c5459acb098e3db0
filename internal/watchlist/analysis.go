package watchlist

import (
	"github.com/shopspring/decimal"

	"github.com/Rajchodisetti/quotedash/internal/adapters"
)

const (
	Bullish = "BULLISH"
	Bearish = "BEARISH"
)

var (
	confidenceBase = decimal.NewFromInt(70)
	confidenceCap  = decimal.NewFromInt(95)
	two            = decimal.NewFromInt(2)
)

// Analysis is a descriptive read of one quote. It is a restatement of the
// day's move, not a forecast.
type Analysis struct {
	Direction     string          `json:"direction"`
	Volatility    decimal.Decimal `json:"volatility"`
	Confidence    decimal.Decimal `json:"confidence"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        int64           `json:"volume"`
	Timeframe     string          `json:"timeframe"`
}

// Analyze: direction is BULLISH only for a positive change; confidence is
// 70 + 2*|change%|, capped at 95.
func Analyze(q *adapters.Quote) Analysis {
	vol := q.ChangePercent.Abs()
	dir := Bearish
	if q.Change.IsPositive() {
		dir = Bullish
	}
	return Analysis{
		Direction:     dir,
		Volatility:    vol,
		Confidence:    decimal.Min(confidenceCap, confidenceBase.Add(vol.Mul(two))).Round(1),
		ChangePercent: q.ChangePercent.Round(2),
		Volume:        q.Volume,
		Timeframe:     "24H",
	}
}
