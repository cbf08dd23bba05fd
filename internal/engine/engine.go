// Package engine is the facade over the venue connectivity core: it owns the
// websocket connection, the local state mirrors, the REST client, and the
// observer fan-out.
package engine

import (
	"context"
	"sync"

	"github.com/quantfold/venuelink/config"
	"github.com/quantfold/venuelink/errs"
	"github.com/quantfold/venuelink/internal/account"
	"github.com/quantfold/venuelink/internal/auth"
	"github.com/quantfold/venuelink/internal/book"
	"github.com/quantfold/venuelink/internal/rest"
	"github.com/quantfold/venuelink/internal/schema"
	"github.com/quantfold/venuelink/internal/stream"
)

// Engine wires the transport, dispatcher, stores, and REST client into one
// connectivity unit for a single venue account.
type Engine struct {
	cfg   config.Settings
	venue string

	creds  auth.Credentials
	nonces *auth.NonceSource

	books   *book.Store
	wallet  *account.Wallet
	orders  *account.Orders
	trades  *account.Trades
	candles *account.Candles

	registry   *stream.Registry
	dispatcher *stream.Dispatcher
	rest       *rest.Client
	observers  *observers

	mu      sync.Mutex
	conn    *stream.Conn
	started bool
}

// New assembles an engine from settings. Nothing touches the network until
// Start.
func New(cfg config.Settings) *Engine {
	creds := auth.Credentials{Key: cfg.Credentials.APIKey, Secret: cfg.Credentials.APISecret}
	nonces := auth.NewNonceSource()
	e := &Engine{
		cfg:       cfg,
		venue:     cfg.Venue,
		creds:     creds,
		nonces:    nonces,
		books:     book.NewStore(cfg.Venue),
		wallet:    account.NewWallet(),
		orders:    account.NewOrders(),
		trades:    account.NewTrades(),
		candles:   account.NewCandles(),
		registry:  stream.NewRegistry(cfg.Venue),
		observers: newObservers(),
	}
	e.dispatcher = stream.NewDispatcher(cfg.Venue, e.registry, e)
	e.rest = rest.New(rest.Config{
		Venue:             cfg.Venue,
		PublicURL:         cfg.REST.PublicURL,
		PrivateURL:        cfg.REST.PrivateURL,
		RequestsPerSecond: cfg.REST.RequestsPerSecond,
		Timeout:           cfg.REST.Timeout,
		Credentials:       creds,
	}, nonces)
	return e
}

// Start opens the websocket connection and blocks until it is established or
// fails. ctx bounds the engine lifetime: cancelling it shuts the connection
// down.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errs.New(e.venue, errs.CodeInvalid, errs.WithMessage("engine already started"))
	}
	conn := stream.NewConn(ctx, stream.ConnConfig{
		Venue:                e.venue,
		URL:                  e.cfg.Websocket.URL,
		HandshakeTimeout:     e.cfg.Websocket.HandshakeTimeout,
		WriteTimeout:         e.cfg.Websocket.WriteTimeout,
		ReconnectCooldown:    e.cfg.Websocket.ReconnectCooldown,
		MaxReconnectCooldown: e.cfg.Websocket.MaxReconnectCooldown,
	}, e.registry, e, e.dispatcher.Dispatch)
	e.dispatcher.BindConn(conn)
	if err := conn.Start(); err != nil {
		return err
	}
	e.conn = conn
	e.started = true
	return nil
}

// Stop tears the connection down. The engine cannot be restarted.
func (e *Engine) Stop() {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn != nil {
		conn.Stop()
	}
}

func (e *Engine) sender() (*stream.Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return nil, errs.New(e.venue, errs.CodeInvalid, errs.WithMessage("engine not started"))
	}
	return e.conn, nil
}

// ConnState reports the transport state.
func (e *Engine) ConnState() stream.ConnState {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return stream.ConnStateNone
	}
	return conn.State()
}

// Maintenance reports whether the venue announced a maintenance window.
func (e *Engine) Maintenance() bool { return e.dispatcher.Maintenance() }

// OnEvent registers an observer and returns a handle for RemoveObserver.
func (e *Engine) OnEvent(fn Observer) string { return e.observers.add(fn) }

// RemoveObserver drops a previously registered observer.
func (e *Engine) RemoveObserver(id string) { e.observers.remove(id) }

// SubscribeOrderBook opens (or replaces) the book channel for a pair.
func (e *Engine) SubscribeOrderBook(ctx context.Context, pair schema.Pair, opts stream.BookOptions) error {
	conn, err := e.sender()
	if err != nil {
		return err
	}
	sub := stream.NewOrderBookSubscription(e.venue, conn, pair, opts, e.books, e)
	return e.registry.Add(ctx, sub)
}

// UnsubscribeOrderBook closes the book channel for a pair.
func (e *Engine) UnsubscribeOrderBook(ctx context.Context, pair schema.Pair) error {
	return e.registry.Remove(ctx, stream.BookSubscriptionKey(pair))
}

// SubscribeCandles opens (or replaces) the candle channel for a series.
func (e *Engine) SubscribeCandles(ctx context.Context, key schema.CandleSeriesKey) error {
	conn, err := e.sender()
	if err != nil {
		return err
	}
	sub := stream.NewCandleSubscription(e.venue, conn, key, e.candles, e)
	return e.registry.Add(ctx, sub)
}

// UnsubscribeCandles closes the candle channel for a series.
func (e *Engine) UnsubscribeCandles(ctx context.Context, key schema.CandleSeriesKey) error {
	return e.registry.Remove(ctx, stream.CandleSubscriptionKey(key))
}

// SubscribeAccount authenticates the connection and mirrors wallet, order,
// and trade state. Requires configured credentials.
func (e *Engine) SubscribeAccount(ctx context.Context) error {
	if !e.creds.Configured() {
		return errs.New(e.venue, errs.CodeAuth, errs.WithMessage("api credentials not configured"))
	}
	conn, err := e.sender()
	if err != nil {
		return err
	}
	sub := stream.NewAccountSubscription(e.venue, conn, e.creds, e.nonces,
		e.wallet, e.orders, e.trades, e)
	return e.registry.Add(ctx, sub)
}

// UnsubscribeAccount closes the authenticated account channel.
func (e *Engine) UnsubscribeAccount(ctx context.Context) error {
	return e.registry.Remove(ctx, stream.AccountSubscriptionKey)
}

// Book returns a copy of the reconstructed order book for a pair.
func (e *Engine) Book(pair schema.Pair) (book.Book, bool) { return e.books.Snapshot(pair) }

// Wallets returns a copy of every mirrored balance.
func (e *Engine) Wallets() []schema.Balance { return e.wallet.Balances() }

// Balance returns one mirrored balance by wallet bucket and currency.
func (e *Engine) Balance(wallet, currency string) (schema.Balance, bool) {
	return e.wallet.Balance(wallet, currency)
}

// Orders returns a copy of the live order set.
func (e *Engine) Orders() []schema.Order { return e.orders.All() }

// Order returns one live order by venue id.
func (e *Engine) Order(id int64) (schema.Order, bool) { return e.orders.Get(id) }

// Trades returns the mirrored execution history.
func (e *Engine) Trades() []schema.Trade { return e.trades.All() }

// Candles returns a copy of the mirrored series for a key.
func (e *Engine) Candles(key schema.CandleSeriesKey) []schema.Candle {
	return e.candles.Series(key)
}

// Sink implementation: the stream layer reports into the engine, which
// translates each notification into an observer event.

func (e *Engine) OnConnState(state stream.ConnState) {
	e.observers.emit(Event{Kind: EventConnState, Venue: e.venue, ConnState: state})
}

func (e *Engine) OnEngineError(err error) {
	e.observers.emit(Event{Kind: EventEngineError, Venue: e.venue, Err: err})
}

func (e *Engine) OnMaintenance(active bool) {
	e.observers.emit(Event{Kind: EventMaintenanceChanged, Venue: e.venue, Maintenance: active})
}

func (e *Engine) OnBookUpdated(pair schema.Pair) {
	e.observers.emit(Event{Kind: EventBookUpdated, Venue: e.venue, Pair: pair})
}

func (e *Engine) OnWalletUpdated(balance schema.Balance) {
	e.observers.emit(Event{Kind: EventWalletUpdated, Venue: e.venue, Balance: &balance})
}

func (e *Engine) OnOrderUpdated(order schema.Order) {
	e.observers.emit(Event{Kind: EventOrderUpdated, Venue: e.venue, Pair: order.Pair, Order: &order})
}

func (e *Engine) OnTradeExecuted(trade schema.Trade) {
	e.observers.emit(Event{Kind: EventTradeExecuted, Venue: e.venue, Pair: trade.Pair, Trade: &trade})
}

func (e *Engine) OnCandleUpdated(key schema.CandleSeriesKey, candle schema.Candle) {
	e.observers.emit(Event{Kind: EventCandleUpdated, Venue: e.venue, Pair: key.Pair, CandleKey: key, Candle: &candle})
}
