package watchlist

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Rajchodisetti/quotedash/internal/adapters"
)

func quoted(symbol, price, change, pct string) Entry {
	return Entry{Symbol: symbol, Quote: &adapters.Quote{
		Symbol:        symbol,
		Price:         decimal.RequireFromString(price),
		Change:        decimal.RequireFromString(change),
		ChangePercent: decimal.RequireFromString(pct),
	}}
}

func TestComputeStats(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		st := ComputeStats(nil)
		assert.True(t, st.TotalValue.IsZero())
		assert.True(t, st.MeanVolatility.IsZero())
		assert.Zero(t, st.GainerCount)
		assert.Zero(t, st.LoserCount)
	})

	t.Run("mixed", func(t *testing.T) {
		entries := []Entry{
			quoted("A", "100", "1", "1"),
			quoted("B", "50", "-1", "-2"),
			quoted("C", "25", "0", "0"),
			{Symbol: "D"},
		}
		st := ComputeStats(entries)
		assert.True(t, st.TotalValue.Equal(decimal.NewFromInt(175)), st.TotalValue.String())
		assert.Equal(t, 1, st.GainerCount)
		assert.Equal(t, 1, st.LoserCount)
		assert.Equal(t, "1", st.MeanVolatility.String())
	})

	t.Run("only unquoted entries", func(t *testing.T) {
		st := ComputeStats([]Entry{{Symbol: "X"}, {Symbol: "Y"}})
		assert.True(t, st.TotalValue.IsZero())
		assert.True(t, st.MeanVolatility.IsZero())
	})

	t.Run("mean is rounded", func(t *testing.T) {
		st := ComputeStats([]Entry{
			quoted("A", "1", "1", "1"),
			quoted("B", "1", "1", "1"),
			quoted("C", "1", "1", "2"),
		})
		assert.Equal(t, "1.3333", st.MeanVolatility.String())
		assert.Equal(t, 3, st.GainerCount)
	})
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		change     string
		pct        string
		direction  string
		confidence string
	}{
		{"small gain", "0.41", "0.23", Bullish, "70.5"},
		{"loss", "-3.20", "-1.25", Bearish, "72.5"},
		{"flat is bearish", "0", "0", Bearish, "70"},
		{"capped", "40", "15", Bullish, "95"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &adapters.Quote{
				Change:        decimal.RequireFromString(tt.change),
				ChangePercent: decimal.RequireFromString(tt.pct),
				Volume:        1000,
			}
			a := Analyze(q)
			assert.Equal(t, tt.direction, a.Direction)
			assert.Equal(t, tt.confidence, a.Confidence.String())
			assert.True(t, a.Volatility.Equal(q.ChangePercent.Abs()))
			assert.Equal(t, int64(1000), a.Volume)
			assert.Equal(t, "24H", a.Timeframe)
		})
	}
}
