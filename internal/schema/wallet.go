package schema

import "github.com/shopspring/decimal"

// Balance mirrors one wallet entry, keyed by currency symbol.
type Balance struct {
	// Wallet is the venue wallet bucket the balance lives in ("exchange",
	// "margin", "funding").
	Wallet    string
	Currency  string
	Total     decimal.Decimal
	Available decimal.Decimal
	Unsettled decimal.Decimal
	// AvailableKnown is false when the venue omitted the available field;
	// the engine then asks the venue to compute it.
	AvailableKnown bool
}
