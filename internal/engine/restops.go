package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/quantfold/venuelink/internal/book"
	"github.com/quantfold/venuelink/internal/rest"
	"github.com/quantfold/venuelink/internal/schema"
)

// Markets lists the pairs the venue currently trades.
func (e *Engine) Markets(ctx context.Context) ([]schema.Pair, error) {
	return e.rest.Markets(ctx)
}

// FetchBookSnapshot pulls the current book over REST and seeds the local
// store, replacing whatever the stream had built so far for the pair.
func (e *Engine) FetchBookSnapshot(ctx context.Context, pair schema.Pair, precision string, length int) (book.Book, error) {
	levels, err := e.rest.BookSnapshot(ctx, pair, precision, length)
	if err != nil {
		return book.Book{}, err
	}
	if err := e.books.ApplySnapshot(pair, levels); err != nil {
		return book.Book{}, err
	}
	e.OnBookUpdated(pair)
	snap, _ := e.books.Snapshot(pair)
	return snap, nil
}

// FetchCandleHistory pulls historical candles over REST and splices them into
// the local series.
func (e *Engine) FetchCandleHistory(ctx context.Context, key schema.CandleSeriesKey, q rest.CandleHistoryQuery) ([]schema.Candle, error) {
	batch, err := e.rest.CandleHistory(ctx, key, q)
	if err != nil {
		return nil, err
	}
	e.candles.ApplyHistory(key, batch)
	return batch, nil
}

// RefreshWallets pulls every balance over REST into the wallet mirror.
func (e *Engine) RefreshWallets(ctx context.Context) error {
	balances, err := e.rest.Wallets(ctx)
	if err != nil {
		return err
	}
	for _, balance := range balances {
		e.wallet.Upsert(balance)
		e.OnWalletUpdated(balance)
	}
	return nil
}

// RefreshOrders pulls the live order set over REST into the order mirror.
func (e *Engine) RefreshOrders(ctx context.Context) error {
	orders, err := e.rest.ActiveOrders(ctx)
	if err != nil {
		return err
	}
	for _, order := range orders {
		e.orders.ApplyNew(order)
		e.OnOrderUpdated(order)
	}
	return nil
}

// SubmitOrder places an order and records the venue's acknowledgement in the
// local mirror. A missing client order id is filled from the nonce sequence.
func (e *Engine) SubmitOrder(ctx context.Context, req rest.OrderRequest) (schema.Order, error) {
	if req.ClientOrderID == 0 {
		req.ClientOrderID = e.nonces.Next()
	}
	order, err := e.rest.SubmitOrder(ctx, req)
	if err != nil {
		return schema.Order{}, err
	}
	e.orders.ApplyNew(order)
	e.OnOrderUpdated(order)
	return order, nil
}

// CancelOrder requests cancellation of a live order. The mirror entry is
// removed when the venue confirms over the account stream.
func (e *Engine) CancelOrder(ctx context.Context, id int64) error {
	return e.rest.CancelOrder(ctx, id)
}

// CalcAvailableBalance asks the venue how much could be traded at a price.
func (e *Engine) CalcAvailableBalance(ctx context.Context, pair schema.Pair, side schema.TradeSide, price decimal.Decimal) (decimal.Decimal, error) {
	return e.rest.CalcAvailableBalance(ctx, pair, side, price)
}
