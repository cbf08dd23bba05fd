package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade records one execution against the account. Amount is signed: positive
// buys, negative sells. Fee fields are populated only once the enriched update
// variant arrives.
type Trade struct {
	ID          int64
	OrderID     int64
	Pair        Pair
	Executed    time.Time
	Amount      decimal.Decimal
	Price       decimal.Decimal
	Maker       bool
	Fee         decimal.Decimal
	FeeCurrency string
}
