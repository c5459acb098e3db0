package watchlist

import (
	"github.com/shopspring/decimal"
)

// Stats are portfolio-level figures derived from the current entries.
type Stats struct {
	TotalValue     decimal.Decimal `json:"total_value"`
	GainerCount    int             `json:"gainer_count"`
	LoserCount     int             `json:"loser_count"`
	MeanVolatility decimal.Decimal `json:"mean_volatility"`
}

// ComputeStats scans entries that have a quote. Entries without one are
// ignored; an unchanged quote counts as neither gainer nor loser.
func ComputeStats(entries []Entry) Stats {
	var (
		st         Stats
		volatility decimal.Decimal
		n          int64
	)
	for _, e := range entries {
		q := e.Quote
		if q == nil {
			continue
		}
		n++
		st.TotalValue = st.TotalValue.Add(q.Price)
		switch q.Change.Sign() {
		case 1:
			st.GainerCount++
		case -1:
			st.LoserCount++
		}
		volatility = volatility.Add(q.ChangePercent.Abs())
	}
	if n > 0 {
		st.MeanVolatility = volatility.Div(decimal.NewFromInt(n)).Round(4)
	}
	return st
}
