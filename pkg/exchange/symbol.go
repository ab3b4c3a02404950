package exchange

import (
	"strings"
)

// SymbolInfo describes a tradable ticker. Cash for fills in the ticker is
// booked in Currency.
type SymbolInfo struct {
	Ticker   string
	Currency string
}

// Key normalises a ticker for map lookups.
func Key(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
