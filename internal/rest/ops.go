package rest

import (
	"context"
	"net/url"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/quantfold/venuelink/errs"
	"github.com/quantfold/venuelink/internal/book"
	"github.com/quantfold/venuelink/internal/schema"
	"github.com/quantfold/venuelink/internal/wire"
)

// Markets lists the trading pairs the venue currently offers.
func (c *Client) Markets(ctx context.Context) ([]schema.Pair, error) {
	body, err := c.getPublic(ctx, "conf/pub:list:pair:exchange", nil)
	if err != nil {
		return nil, err
	}
	var outer []json.RawMessage
	if err := json.Unmarshal(body, &outer); err != nil || len(outer) != 1 {
		return nil, errs.New(c.cfg.Venue, errs.CodeData,
			errs.WithMessage("malformed market list"), errs.WithCause(err))
	}
	var symbols []string
	if err := json.Unmarshal(outer[0], &symbols); err != nil {
		return nil, errs.New(c.cfg.Venue, errs.CodeData,
			errs.WithMessage("malformed market list"), errs.WithCause(err))
	}
	pairs := make([]schema.Pair, 0, len(symbols))
	for _, symbol := range symbols {
		pair, err := schema.ParseSymbol(symbol)
		if err != nil {
			continue // skip listings the engine cannot model
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// BookSnapshot fetches the current book for a pair: signed levels, positive
// amounts bidding, negative asking.
func (c *Client) BookSnapshot(ctx context.Context, pair schema.Pair, precision string, length int) ([]book.SignedLevel, error) {
	if precision == "" {
		precision = "P0"
	}
	query := url.Values{}
	if length > 0 {
		query.Set("len", strconv.Itoa(length))
	}
	body, err := c.getPublic(ctx, "book/"+pair.Symbol()+"/"+precision, query)
	if err != nil {
		return nil, err
	}
	rows, err := wire.Split(c.cfg.Venue, body)
	if err != nil {
		return nil, err
	}
	levels := make([]book.SignedLevel, 0, len(rows))
	for _, row := range rows {
		level, err := wire.BookLevel(c.cfg.Venue, row)
		if err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// CandleHistoryQuery bounds a historical candle fetch. Zero fields are
// omitted from the request.
type CandleHistoryQuery struct {
	Limit int
	Start int64 // ms timestamp, inclusive
	End   int64 // ms timestamp, inclusive
}

// CandleHistory fetches historical candles for a series, returned oldest
// first regardless of the venue's ordering.
func (c *Client) CandleHistory(ctx context.Context, key schema.CandleSeriesKey, q CandleHistoryQuery) ([]schema.Candle, error) {
	query := url.Values{}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Start > 0 {
		query.Set("start", strconv.FormatInt(q.Start, 10))
	}
	if q.End > 0 {
		query.Set("end", strconv.FormatInt(q.End, 10))
	}
	body, err := c.getPublic(ctx, "candles/"+key.ChannelKey()+"/hist", query)
	if err != nil {
		return nil, err
	}
	rows, err := wire.Split(c.cfg.Venue, body)
	if err != nil {
		return nil, err
	}
	candles := make([]schema.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := wire.Candle(c.cfg.Venue, row)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })
	return candles, nil
}

// Wallets fetches every balance on the account.
func (c *Client) Wallets(ctx context.Context) ([]schema.Balance, error) {
	body, err := c.postPrivate(ctx, "auth/r/wallets", nil)
	if err != nil {
		return nil, err
	}
	rows, err := wire.Split(c.cfg.Venue, body)
	if err != nil {
		return nil, err
	}
	balances := make([]schema.Balance, 0, len(rows))
	for _, row := range rows {
		balance, err := wire.Balance(c.cfg.Venue, row)
		if err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}
	return balances, nil
}

// ActiveOrders fetches the live orders on the account.
func (c *Client) ActiveOrders(ctx context.Context) ([]schema.Order, error) {
	body, err := c.postPrivate(ctx, "auth/r/orders", nil)
	if err != nil {
		return nil, err
	}
	rows, err := wire.Split(c.cfg.Venue, body)
	if err != nil {
		return nil, err
	}
	orders := make([]schema.Order, 0, len(rows))
	for _, row := range rows {
		fields, err := wire.Split(c.cfg.Venue, row)
		if err != nil {
			return nil, err
		}
		order, err := wire.Order(c.cfg.Venue, fields)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// OrderRequest describes a new order. Amount is signed: positive buys,
// negative sells.
type OrderRequest struct {
	Pair          schema.Pair
	Type          schema.OrderType
	Amount        decimal.Decimal
	Price         decimal.Decimal
	ClientOrderID int64
}

type submitOrderBody struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
	Price  string `json:"price,omitempty"`
	CID    int64  `json:"cid,omitempty"`
}

// SubmitOrder places an order and returns the venue's view of it.
func (c *Client) SubmitOrder(ctx context.Context, req OrderRequest) (schema.Order, error) {
	if req.Amount.IsZero() {
		return schema.Order{}, errs.New(c.cfg.Venue, errs.CodeInvalid, errs.WithMessage("order amount required"))
	}
	orderType := req.Type
	if orderType == "" {
		orderType = schema.OrderTypeExchangeLimit
	}
	payload := submitOrderBody{
		Type:   string(orderType),
		Symbol: req.Pair.Symbol(),
		Amount: req.Amount.String(),
		CID:    req.ClientOrderID,
	}
	if !req.Price.IsZero() {
		payload.Price = req.Price.String()
	}
	body, err := c.postPrivate(ctx, "auth/w/order/submit", payload)
	if err != nil {
		return schema.Order{}, err
	}
	data, err := c.parseNotification(body)
	if err != nil {
		return schema.Order{}, err
	}
	rows, err := wire.Split(c.cfg.Venue, data)
	if err != nil || len(rows) == 0 {
		return schema.Order{}, errs.New(c.cfg.Venue, errs.CodeData,
			errs.WithMessage("submit reply missing order"), errs.WithCause(err))
	}
	fields, err := wire.Split(c.cfg.Venue, rows[0])
	if err != nil {
		return schema.Order{}, err
	}
	return wire.Order(c.cfg.Venue, fields)
}

// CancelOrder cancels a live order by venue id.
func (c *Client) CancelOrder(ctx context.Context, id int64) error {
	body, err := c.postPrivate(ctx, "auth/w/order/cancel", map[string]int64{"id": id})
	if err != nil {
		return err
	}
	_, err = c.parseNotification(body)
	return err
}

// CalcAvailableBalance asks the venue how much of a pair could be traded in
// the given direction at the given rate.
func (c *Client) CalcAvailableBalance(ctx context.Context, pair schema.Pair, side schema.TradeSide, price decimal.Decimal) (decimal.Decimal, error) {
	dir := 1
	if side == schema.TradeSideSell {
		dir = -1
	}
	payload := map[string]any{
		"symbol": pair.Symbol(),
		"dir":    dir,
		"rate":   price.String(),
		"type":   "EXCHANGE",
	}
	body, err := c.postPrivate(ctx, "auth/calc/order/avail", payload)
	if err != nil {
		return decimal.Decimal{}, err
	}
	fields, err := wire.Split(c.cfg.Venue, body)
	if err != nil || len(fields) == 0 {
		return decimal.Decimal{}, errs.New(c.cfg.Venue, errs.CodeData,
			errs.WithMessage("malformed avail reply"), errs.WithCause(err))
	}
	return wire.Decimal(c.cfg.Venue, fields[0])
}

// parseNotification unwraps a write-endpoint reply
// [mts, type, messageId, null, data, code, status, text] and returns the data
// element once the status is confirmed successful.
func (c *Client) parseNotification(body []byte) (json.RawMessage, error) {
	fields, err := wire.Split(c.cfg.Venue, body)
	if err != nil {
		return nil, err
	}
	if len(fields) < 8 {
		return nil, errs.New(c.cfg.Venue, errs.CodeData, errs.WithMessage("notification arity"))
	}
	status, err := wire.String(c.cfg.Venue, fields[6])
	if err != nil {
		return nil, err
	}
	if status != "SUCCESS" {
		text, _ := wire.String(c.cfg.Venue, fields[7])
		return nil, errs.New(c.cfg.Venue, errs.CodeExchange,
			errs.WithMessage("venue rejected operation"), errs.WithRawMessage(text))
	}
	return fields[4], nil
}
