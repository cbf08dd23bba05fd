package stream

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/quantfold/venuelink/errs"
	"github.com/quantfold/venuelink/internal/account"
	"github.com/quantfold/venuelink/internal/auth"
	"github.com/quantfold/venuelink/internal/wire"
)

// Account stream message tags.
const (
	msgWalletSnapshot = "ws"
	msgWalletUpdate   = "wu"
	msgOrderSnapshot  = "os"
	msgOrderNew       = "on"
	msgOrderUpdate    = "ou"
	msgOrderCancel    = "oc"
	msgTradeExecuted  = "te"
	msgTradeUpdated   = "tu"
	msgNotification   = "n"
)

type accountVariant struct {
	venue  string
	conn   Sender
	creds  auth.Credentials
	nonces *auth.NonceSource
	filter []string
	wallet *account.Wallet
	orders *account.Orders
	trades *account.Trades
	sink   Sink
	userID int64
}

// NewAccountSubscription builds the authenticated account channel carrying
// wallet, order, and trade updates.
func NewAccountSubscription(venue string, conn Sender, creds auth.Credentials, nonces *auth.NonceSource,
	wallet *account.Wallet, orders *account.Orders, trades *account.Trades, sink Sink) *Subscription {
	return newSubscription(venue, conn, &accountVariant{
		venue:  venue,
		conn:   conn,
		creds:  creds,
		nonces: nonces,
		filter: []string{"wallet", "trading"},
		wallet: wallet,
		orders: orders,
		trades: trades,
		sink:   sink,
	})
}

// AccountSubscriptionKey is the registry identity of the account channel.
// There is at most one per connection.
const AccountSubscriptionKey = "account"

func (v *accountVariant) key() string { return AccountSubscriptionKey }

func (v *accountVariant) subscribePayload() (any, error) {
	if !v.creds.Configured() {
		return nil, errs.New(v.venue, errs.CodeAuth, errs.WithMessage("api credentials not configured"))
	}
	nonce := v.nonces.NextString()
	payload := "AUTH" + nonce
	return authRequest{
		Event:       "auth",
		APIKey:      v.creds.Key,
		AuthSig:     auth.SignHex(v.creds.Secret, payload),
		AuthPayload: payload,
		AuthNonce:   nonce,
		Filter:      v.filter,
	}, nil
}

func (v *accountVariant) matchesResponse(ev event) bool {
	return ev.Event == "auth"
}

func (v *accountVariant) onResponse(ev event) error {
	if ev.Status != "OK" {
		return errs.New(v.venue, errs.CodeAuth,
			errs.WithMessage("authentication rejected"), errs.WithRawMessage(ev.Msg))
	}
	v.userID = ev.UserID
	return nil
}

func (v *accountVariant) heartbeat() {}

func (v *accountVariant) parsePayload(ctx context.Context, items []json.RawMessage) error {
	if len(items) < 2 {
		return errs.New(v.venue, errs.CodeData, errs.WithMessage("account frame arity"))
	}
	tag, err := wire.String(v.venue, items[0])
	if err != nil {
		return err
	}
	payload := items[1]
	switch tag {
	case msgWalletSnapshot:
		rows, err := wire.Split(v.venue, payload)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := v.applyWallet(ctx, row); err != nil {
				return err
			}
		}
		return nil
	case msgWalletUpdate:
		return v.applyWallet(ctx, payload)
	case msgOrderSnapshot:
		rows, err := wire.Split(v.venue, payload)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := v.applyOrder(row, msgOrderNew); err != nil {
				return err
			}
		}
		return nil
	case msgOrderNew, msgOrderUpdate, msgOrderCancel:
		return v.applyOrder(payload, tag)
	case msgTradeExecuted, msgTradeUpdated:
		return v.applyTrade(payload, tag == msgTradeUpdated)
	case msgNotification:
		return nil // informational only
	default:
		// unknown account tags are tolerated: the venue adds stream kinds
		// (positions, funding) the engine does not mirror
		return nil
	}
}

// applyWallet upserts one wallet tuple. A null available triggers an outbound
// calc request so the venue computes the missing figure.
func (v *accountVariant) applyWallet(ctx context.Context, raw json.RawMessage) error {
	balance, err := wire.Balance(v.venue, raw)
	if err != nil {
		return err
	}
	needsCalc := v.wallet.Upsert(balance)
	v.sink.OnWalletUpdated(balance)
	if needsCalc && v.conn.IsOpen() {
		calc := []any{0, "calc", nil, [][]string{{"wallet_" + balance.Wallet + "_" + balance.Currency}}}
		if err := v.conn.Send(ctx, calc); err != nil {
			return err
		}
	}
	return nil
}

// applyOrder decodes a venue order tuple and routes it by tag.
func (v *accountVariant) applyOrder(raw json.RawMessage, tag string) error {
	fields, err := wire.Split(v.venue, raw)
	if err != nil {
		return err
	}
	order, err := wire.Order(v.venue, fields)
	if err != nil {
		return err
	}
	switch tag {
	case msgOrderCancel:
		// executed orders leave the live set the same way canceled ones do
		v.orders.ApplyCancel(order.ID)
	case msgOrderNew:
		v.orders.ApplyNew(order)
	default:
		v.orders.ApplyUpdate(order)
	}
	v.sink.OnOrderUpdated(order)
	return nil
}

// applyTrade decodes an execution tuple. The enriched "tu" variant carries
// the fee fields the first notification lacked.
func (v *accountVariant) applyTrade(raw json.RawMessage, enriched bool) error {
	fields, err := wire.Split(v.venue, raw)
	if err != nil {
		return err
	}
	trade, err := wire.Trade(v.venue, fields, enriched)
	if err != nil {
		return err
	}
	v.trades.Apply(trade)
	v.sink.OnTradeExecuted(trade)
	return nil
}
