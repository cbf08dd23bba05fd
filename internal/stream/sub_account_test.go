package stream

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/quantfold/venuelink/internal/account"
	"github.com/quantfold/venuelink/internal/auth"
	"github.com/quantfold/venuelink/internal/schema"
)

type accountFixture struct {
	sender *fakeSender
	wallet *account.Wallet
	orders *account.Orders
	trades *account.Trades
	sub    *Subscription
}

func newAccountFixture() *accountFixture {
	f := &accountFixture{
		sender: &fakeSender{open: true, gen: 1},
		wallet: account.NewWallet(),
		orders: account.NewOrders(),
		trades: account.NewTrades(),
	}
	creds := auth.Credentials{Key: "key", Secret: "secret"}
	f.sub = NewAccountSubscription("test", f.sender, creds, auth.NewNonceSource(),
		f.wallet, f.orders, f.trades, NoopSink{})
	return f
}

func TestAccountWalletSnapshotAndUpdate(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	err := f.sub.ParseUpdate(ctx, rawFrames(t,
		`"ws"`, `[["exchange","BTC","1.5",0,"1.2"],["exchange","USD","1000",0,"900"]]`))
	if err != nil {
		t.Fatalf("wallet snapshot error: %v", err)
	}
	balance, ok := f.wallet.Balance("exchange", "BTC")
	if !ok {
		t.Fatalf("BTC balance missing")
	}
	if !balance.Total.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("total = %s, want 1.5", balance.Total)
	}
	if !balance.AvailableKnown || !balance.Available.Equal(decimal.RequireFromString("1.2")) {
		t.Fatalf("available = %s (known=%v), want 1.2", balance.Available, balance.AvailableKnown)
	}

	if err := f.sub.ParseUpdate(ctx, rawFrames(t, `"wu"`, `["exchange","BTC","2.5",0,"2.0"]`)); err != nil {
		t.Fatalf("wallet update error: %v", err)
	}
	balance, _ = f.wallet.Balance("exchange", "BTC")
	if !balance.Total.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("total after update = %s, want 2.5", balance.Total)
	}
}

func TestAccountWalletNullAvailableEmitsCalc(t *testing.T) {
	f := newAccountFixture()
	before := f.sender.sentCount()

	err := f.sub.ParseUpdate(context.Background(), rawFrames(t, `"wu"`, `["exchange","BTC","2.5",0,null]`))
	if err != nil {
		t.Fatalf("wallet update error: %v", err)
	}
	if f.sender.sentCount() != before+1 {
		t.Fatalf("null available must trigger exactly one calc request")
	}
	calc, ok := f.sender.lastSent().([]any)
	if !ok || len(calc) != 4 {
		t.Fatalf("calc payload = %#v", f.sender.lastSent())
	}
	targets, ok := calc[3].([][]string)
	if !ok || len(targets) != 1 || targets[0][0] != "wallet_exchange_BTC" {
		t.Fatalf("calc target = %#v, want wallet_exchange_BTC", calc[3])
	}

	// last known available is carried while the venue computes the fresh one
	balance, _ := f.wallet.Balance("exchange", "BTC")
	if balance.AvailableKnown {
		t.Fatalf("available must be marked unknown until the venue answers")
	}
}

const orderTuple = `[10001,null,123,"tBTCUSD",1700000000000,1700000001000,"0.5","1.0","EXCHANGE LIMIT",null,null,null,0,"ACTIVE",null,null,"30000",0,0,0]`

func TestAccountOrderLifecycle(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	if err := f.sub.ParseUpdate(ctx, rawFrames(t, `"on"`, orderTuple)); err != nil {
		t.Fatalf("order new error: %v", err)
	}
	order, ok := f.orders.Get(10001)
	if !ok {
		t.Fatalf("order missing after on")
	}
	if order.Status != schema.OrderStatusActive {
		t.Fatalf("status = %v, want active", order.Status)
	}
	if order.ClientOrderID != "123" {
		t.Fatalf("client order id = %q, want 123", order.ClientOrderID)
	}
	if order.Side() != schema.TradeSideBuy {
		t.Fatalf("side = %v, want buy from positive original amount", order.Side())
	}
	if !order.Price.Equal(decimal.NewFromInt(30000)) {
		t.Fatalf("price = %s, want 30000", order.Price)
	}

	if err := f.sub.ParseUpdate(ctx, rawFrames(t, `"oc"`, orderTuple)); err != nil {
		t.Fatalf("order cancel error: %v", err)
	}
	if _, ok := f.orders.Get(10001); ok {
		t.Fatalf("order must leave the live set on oc")
	}
}

func TestAccountTradeEnrichment(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	te := `[555,"tBTCUSD",1700000002000,10001,"0.5","30000",null,null,1]`
	tu := `[555,"tBTCUSD",1700000002000,10001,"0.5","30000","EXCHANGE LIMIT","30000",1,"-0.001","BTC"]`

	if err := f.sub.ParseUpdate(ctx, rawFrames(t, `"te"`, te)); err != nil {
		t.Fatalf("te error: %v", err)
	}
	trade, ok := f.trades.Get(555)
	if !ok {
		t.Fatalf("trade missing after te")
	}
	if !trade.Fee.IsZero() {
		t.Fatalf("fee must be unset before tu")
	}

	if err := f.sub.ParseUpdate(ctx, rawFrames(t, `"tu"`, tu)); err != nil {
		t.Fatalf("tu error: %v", err)
	}
	if f.trades.Len() != 1 {
		t.Fatalf("te/tu must keep one entry per trade id, got %d", f.trades.Len())
	}
	trade, _ = f.trades.Get(555)
	if !trade.Fee.Equal(decimal.RequireFromString("-0.001")) || trade.FeeCurrency != "BTC" {
		t.Fatalf("fee = %s %s, want -0.001 BTC", trade.Fee, trade.FeeCurrency)
	}
	if !trade.Maker {
		t.Fatalf("maker flag lost")
	}
}

func TestAccountUnknownTagTolerated(t *testing.T) {
	f := newAccountFixture()
	if err := f.sub.ParseUpdate(context.Background(), rawFrames(t, `"ps"`, `[]`)); err != nil {
		t.Fatalf("unknown account tags must be tolerated, got %v", err)
	}
}
