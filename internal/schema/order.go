package schema

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus reflects the venue-reported lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusActive          OrderStatus = "ACTIVE"
	OrderStatusExecuted        OrderStatus = "EXECUTED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusUnknown         OrderStatus = "UNKNOWN"
)

// ParseOrderStatus maps a raw venue status string onto the known set. Venue
// status strings carry trailing detail ("EXECUTED @ 123.0(0.5)"), so only the
// leading token is significant.
func ParseOrderStatus(raw string) OrderStatus {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(upper, string(OrderStatusActive)):
		return OrderStatusActive
	case strings.HasPrefix(upper, string(OrderStatusExecuted)):
		return OrderStatusExecuted
	case strings.HasPrefix(upper, string(OrderStatusPartiallyFilled)):
		return OrderStatusPartiallyFilled
	case strings.HasPrefix(upper, string(OrderStatusCanceled)):
		return OrderStatusCanceled
	default:
		return OrderStatusUnknown
	}
}

// OrderType identifies the venue order type.
type OrderType string

const (
	OrderTypeLimit          OrderType = "LIMIT"
	OrderTypeMarket         OrderType = "MARKET"
	OrderTypeStop           OrderType = "STOP"
	OrderTypeStopLimit      OrderType = "STOP LIMIT"
	OrderTypeTrailingStop   OrderType = "TRAILING STOP"
	OrderTypeExchangeLimit  OrderType = "EXCHANGE LIMIT"
	OrderTypeExchangeMarket OrderType = "EXCHANGE MARKET"
)

// Order mirrors one live venue order. Amount is the signed remaining size:
// positive buys, negative sells.
type Order struct {
	ID            int64
	ClientOrderID string
	Pair          Pair
	Created       time.Time
	Updated       time.Time
	Amount        decimal.Decimal
	AmountOrig    decimal.Decimal
	Type          OrderType
	Status        OrderStatus
	Price         decimal.Decimal
	PriceTrailing decimal.Decimal
}

// Side reports the order direction implied by the sign of the original amount.
func (o Order) Side() TradeSide {
	if o.AmountOrig.Sign() < 0 {
		return TradeSideSell
	}
	return TradeSideBuy
}

// TradeSide distinguishes buys from sells.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)
