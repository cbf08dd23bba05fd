// Package wire decodes the venue's array-framed JSON tuples into domain
// types. The same tuple shapes appear on websocket channel frames and in REST
// response bodies, so both transports share this codec.
package wire

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/quantfold/venuelink/errs"
	"github.com/quantfold/venuelink/internal/book"
	"github.com/quantfold/venuelink/internal/schema"
)

var nullLiteral = []byte("null")

// IsNull reports whether the raw JSON value is the null literal.
func IsNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), nullLiteral)
}

// IsNestedArray reports whether the raw value is itself an array of arrays,
// distinguishing a snapshot payload from a single flat update tuple.
func IsNestedArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return false
	}
	inner := bytes.TrimLeft(trimmed[1:], " \t\r\n")
	return len(inner) > 0 && inner[0] == '['
}

// Decimal parses a JSON number (or numeric string) without a float64
// round-trip, keeping venue price precision intact.
func Decimal(venue string, raw json.RawMessage) (decimal.Decimal, error) {
	trimmed := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if trimmed == "" || trimmed == "null" {
		return decimal.Decimal{}, errs.New(venue, errs.CodeData, errs.WithMessage("missing numeric field"))
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Decimal{}, errs.New(venue, errs.CodeData,
			errs.WithMessage("malformed numeric field"), errs.WithCause(err))
	}
	return value, nil
}

// Int parses a JSON integer field.
func Int(venue string, raw json.RawMessage) (int64, error) {
	trimmed := strings.TrimSpace(string(raw))
	value, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		// some venues frame integers as 1.0
		dec, derr := Decimal(venue, raw)
		if derr != nil {
			return 0, errs.New(venue, errs.CodeData,
				errs.WithMessage("malformed integer field"), errs.WithCause(err))
		}
		return dec.IntPart(), nil
	}
	return value, nil
}

// String parses a JSON string field.
func String(venue string, raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errs.New(venue, errs.CodeData,
			errs.WithMessage("malformed string field"), errs.WithCause(err))
	}
	return s, nil
}

// Split shallow-decodes one JSON array into its raw elements.
func Split(venue string, raw json.RawMessage) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errs.New(venue, errs.CodeData,
			errs.WithMessage("malformed array payload"), errs.WithCause(err))
	}
	return items, nil
}

// BookLevel decodes a [price, count, amount] tuple with signed amount.
func BookLevel(venue string, raw json.RawMessage) (book.SignedLevel, error) {
	fields, err := Split(venue, raw)
	if err != nil {
		return book.SignedLevel{}, err
	}
	if len(fields) != 3 {
		return book.SignedLevel{}, errs.New(venue, errs.CodeData,
			errs.WithMessage("book level arity"))
	}
	price, err := Decimal(venue, fields[0])
	if err != nil {
		return book.SignedLevel{}, err
	}
	count, err := Int(venue, fields[1])
	if err != nil {
		return book.SignedLevel{}, err
	}
	amount, err := Decimal(venue, fields[2])
	if err != nil {
		return book.SignedLevel{}, err
	}
	return book.SignedLevel{Price: price, Count: int(count), Amount: amount}, nil
}

// Candle decodes a [mts, open, close, high, low, volume] tuple.
func Candle(venue string, raw json.RawMessage) (schema.Candle, error) {
	fields, err := Split(venue, raw)
	if err != nil {
		return schema.Candle{}, err
	}
	if len(fields) != 6 {
		return schema.Candle{}, errs.New(venue, errs.CodeData,
			errs.WithMessage("candle arity"))
	}
	ts, err := Int(venue, fields[0])
	if err != nil {
		return schema.Candle{}, err
	}
	open, err := Decimal(venue, fields[1])
	if err != nil {
		return schema.Candle{}, err
	}
	cl, err := Decimal(venue, fields[2])
	if err != nil {
		return schema.Candle{}, err
	}
	high, err := Decimal(venue, fields[3])
	if err != nil {
		return schema.Candle{}, err
	}
	low, err := Decimal(venue, fields[4])
	if err != nil {
		return schema.Candle{}, err
	}
	volume, err := Decimal(venue, fields[5])
	if err != nil {
		return schema.Candle{}, err
	}
	return schema.Candle{Timestamp: ts, Open: open, High: high, Low: low, Close: cl, Volume: volume}, nil
}

// Balance decodes a wallet tuple's leading fields
// [walletType, currency, balance, unsettled, available]. A null or missing
// available leaves AvailableKnown false.
func Balance(venue string, raw json.RawMessage) (schema.Balance, error) {
	fields, err := Split(venue, raw)
	if err != nil {
		return schema.Balance{}, err
	}
	if len(fields) < 4 {
		return schema.Balance{}, errs.New(venue, errs.CodeData, errs.WithMessage("wallet tuple arity"))
	}
	walletType, err := String(venue, fields[0])
	if err != nil {
		return schema.Balance{}, err
	}
	currency, err := String(venue, fields[1])
	if err != nil {
		return schema.Balance{}, err
	}
	total, err := Decimal(venue, fields[2])
	if err != nil {
		return schema.Balance{}, err
	}
	unsettled, err := Decimal(venue, fields[3])
	if err != nil {
		return schema.Balance{}, err
	}
	balance := schema.Balance{
		Wallet:    walletType,
		Currency:  currency,
		Total:     total,
		Unsettled: unsettled,
	}
	if len(fields) > 4 && !IsNull(fields[4]) {
		available, err := Decimal(venue, fields[4])
		if err != nil {
			return schema.Balance{}, err
		}
		balance.Available = available
		balance.AvailableKnown = true
	}
	return balance, nil
}

// Order decodes a venue order tuple including the leading id field.
func Order(venue string, fields []json.RawMessage) (schema.Order, error) {
	if len(fields) < 17 {
		return schema.Order{}, errs.New(venue, errs.CodeData, errs.WithMessage("order tuple arity"))
	}
	id, err := Int(venue, fields[0])
	if err != nil {
		return schema.Order{}, err
	}
	symbol, err := String(venue, fields[3])
	if err != nil {
		return schema.Order{}, err
	}
	pair, err := schema.ParseSymbol(symbol)
	if err != nil {
		return schema.Order{}, err
	}
	created, err := Int(venue, fields[4])
	if err != nil {
		return schema.Order{}, err
	}
	updated, err := Int(venue, fields[5])
	if err != nil {
		return schema.Order{}, err
	}
	amount, err := Decimal(venue, fields[6])
	if err != nil {
		return schema.Order{}, err
	}
	amountOrig, err := Decimal(venue, fields[7])
	if err != nil {
		return schema.Order{}, err
	}
	orderType, err := String(venue, fields[8])
	if err != nil {
		return schema.Order{}, err
	}
	status, err := String(venue, fields[13])
	if err != nil {
		return schema.Order{}, err
	}
	price, err := Decimal(venue, fields[16])
	if err != nil {
		return schema.Order{}, err
	}
	order := schema.Order{
		ID:         id,
		Pair:       pair,
		Created:    time.UnixMilli(created),
		Updated:    time.UnixMilli(updated),
		Amount:     amount,
		AmountOrig: amountOrig,
		Type:       schema.OrderType(orderType),
		Status:     schema.ParseOrderStatus(status),
		Price:      price,
	}
	if len(fields) > 18 && !IsNull(fields[18]) {
		if trailing, err := Decimal(venue, fields[18]); err == nil {
			order.PriceTrailing = trailing
		}
	}
	if len(fields) > 2 && !IsNull(fields[2]) {
		if cid, err := Int(venue, fields[2]); err == nil {
			order.ClientOrderID = strconv.FormatInt(cid, 10)
		}
	}
	return order, nil
}

// Trade decodes an execution tuple. The enriched variant appends fee and fee
// currency after the maker flag.
func Trade(venue string, fields []json.RawMessage, enriched bool) (schema.Trade, error) {
	if len(fields) < 9 {
		return schema.Trade{}, errs.New(venue, errs.CodeData, errs.WithMessage("trade tuple arity"))
	}
	id, err := Int(venue, fields[0])
	if err != nil {
		return schema.Trade{}, err
	}
	symbol, err := String(venue, fields[1])
	if err != nil {
		return schema.Trade{}, err
	}
	pair, err := schema.ParseSymbol(symbol)
	if err != nil {
		return schema.Trade{}, err
	}
	executed, err := Int(venue, fields[2])
	if err != nil {
		return schema.Trade{}, err
	}
	orderID, err := Int(venue, fields[3])
	if err != nil {
		return schema.Trade{}, err
	}
	amount, err := Decimal(venue, fields[4])
	if err != nil {
		return schema.Trade{}, err
	}
	price, err := Decimal(venue, fields[5])
	if err != nil {
		return schema.Trade{}, err
	}
	maker, err := Int(venue, fields[8])
	if err != nil {
		return schema.Trade{}, err
	}
	trade := schema.Trade{
		ID:       id,
		OrderID:  orderID,
		Pair:     pair,
		Executed: time.UnixMilli(executed),
		Amount:   amount,
		Price:    price,
		Maker:    maker == 1,
	}
	if enriched && len(fields) >= 11 {
		if !IsNull(fields[9]) {
			fee, err := Decimal(venue, fields[9])
			if err != nil {
				return schema.Trade{}, err
			}
			trade.Fee = fee
		}
		if !IsNull(fields[10]) {
			feeCurrency, err := String(venue, fields[10])
			if err != nil {
				return schema.Trade{}, err
			}
			trade.FeeCurrency = feeCurrency
		}
	}
	return trade, nil
}
