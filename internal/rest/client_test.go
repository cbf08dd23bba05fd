package rest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfold/venuelink/errs"
	"github.com/quantfold/venuelink/internal/auth"
	"github.com/quantfold/venuelink/internal/schema"
)

type capturedRequest struct {
	path    string
	headers http.Header
	body    []byte
}

type venueServer struct {
	server *httptest.Server
	mu     sync.Mutex
	reqs   []capturedRequest
	reply  func(path string) (int, string)
}

func newVenueServer(t *testing.T, reply func(path string) (int, string)) *venueServer {
	t.Helper()
	v := &venueServer{reply: reply}
	v.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		v.mu.Lock()
		v.reqs = append(v.reqs, capturedRequest{path: r.URL.Path, headers: r.Header.Clone(), body: body})
		v.mu.Unlock()
		status, payload := v.reply(r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(v.server.Close)
	return v
}

func (v *venueServer) lastRequest(t *testing.T) capturedRequest {
	t.Helper()
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.reqs) == 0 {
		t.Fatalf("no requests captured")
	}
	return v.reqs[len(v.reqs)-1]
}

func newTestClient(v *venueServer, rps float64) *Client {
	return New(Config{
		Venue:             "test",
		PublicURL:         v.server.URL,
		PrivateURL:        v.server.URL,
		RequestsPerSecond: rps,
		Credentials:       auth.Credentials{Key: "api-key", Secret: "api-secret"},
	}, auth.NewNonceSource())
}

func TestThrottleLowerBound(t *testing.T) {
	venue := newVenueServer(t, func(string) (int, string) { return http.StatusOK, `[["BTCUSD"]]` })
	const rps, calls = 10.0, 4
	client := newTestClient(venue, rps)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < calls; i++ {
		if _, err := client.Markets(ctx); err != nil {
			t.Fatalf("Markets() error: %v", err)
		}
	}
	elapsed := time.Since(start)
	floor := time.Duration(float64(calls-1) / rps * float64(time.Second))
	if elapsed < floor {
		t.Fatalf("%d calls took %v, throttle requires at least %v", calls, elapsed, floor)
	}
}

func TestPrivateRequestSigning(t *testing.T) {
	venue := newVenueServer(t, func(string) (int, string) { return http.StatusOK, `[]` })
	client := newTestClient(venue, 100)

	if _, err := client.Wallets(context.Background()); err != nil {
		t.Fatalf("Wallets() error: %v", err)
	}
	req := venue.lastRequest(t)
	if req.path != "/v2/auth/r/wallets" {
		t.Fatalf("path = %s", req.path)
	}
	nonce := req.headers.Get("bfx-nonce")
	if nonce == "" {
		t.Fatalf("nonce header missing")
	}
	if got := req.headers.Get("bfx-apikey"); got != "api-key" {
		t.Fatalf("apikey header = %q", got)
	}
	want := auth.SignHex("api-secret", "/api/v2/auth/r/wallets"+nonce+string(req.body))
	if got := req.headers.Get("bfx-signature"); got != want {
		t.Fatalf("signature = %s, want %s", got, want)
	}
}

func TestPrivateNoncesIncreasePerRequest(t *testing.T) {
	venue := newVenueServer(t, func(string) (int, string) { return http.StatusOK, `[]` })
	client := newTestClient(venue, 100)
	ctx := context.Background()

	var nonces []string
	for i := 0; i < 3; i++ {
		if _, err := client.Wallets(ctx); err != nil {
			t.Fatalf("Wallets() error: %v", err)
		}
		nonces = append(nonces, venue.lastRequest(t).headers.Get("bfx-nonce"))
	}
	for i := 1; i < len(nonces); i++ {
		if nonces[i] <= nonces[i-1] {
			t.Fatalf("nonces not increasing: %v", nonces)
		}
	}
}

func TestMissingCredentialsRejectedLocally(t *testing.T) {
	venue := newVenueServer(t, func(string) (int, string) { return http.StatusOK, `[]` })
	client := New(Config{Venue: "test", PublicURL: venue.server.URL, PrivateURL: venue.server.URL,
		RequestsPerSecond: 100}, nil)

	_, err := client.Wallets(context.Background())
	if errs.CodeOf(err) != errs.CodeAuth {
		t.Fatalf("error code = %v, want auth", errs.CodeOf(err))
	}
}

func TestErrorBodyShapesTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   errs.Code
	}{
		{"server error with triple", http.StatusInternalServerError, `["error",10020,"symbol: invalid"]`, errs.CodeHTTP},
		{"rate limited", http.StatusTooManyRequests, `["error",11010,"ratelimit"]`, errs.CodeRateLimited},
		{"bad key", http.StatusUnauthorized, `["error",10100,"apikey: invalid"]`, errs.CodeAuth},
		{"missing", http.StatusNotFound, `not json`, errs.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			venue := newVenueServer(t, func(string) (int, string) { return tc.status, tc.body })
			client := newTestClient(venue, 100)
			_, err := client.Markets(context.Background())
			if errs.CodeOf(err) != tc.want {
				t.Fatalf("error code = %v, want %v", errs.CodeOf(err), tc.want)
			}
			var envelope *errs.E
			if tc.status == http.StatusInternalServerError {
				if ok := asEnvelope(err, &envelope); !ok || envelope.RawCode != "10020" {
					t.Fatalf("raw venue code not captured: %v", err)
				}
			}
		})
	}
}

func asEnvelope(err error, target **errs.E) bool {
	e, ok := err.(*errs.E)
	if ok {
		*target = e
	}
	return ok
}

func TestMarketsParsesSymbols(t *testing.T) {
	venue := newVenueServer(t, func(string) (int, string) {
		return http.StatusOK, `[["BTCUSD","DOGE:USD"]]`
	})
	client := newTestClient(venue, 100)
	pairs, err := client.Markets(context.Background())
	if err != nil {
		t.Fatalf("Markets() error: %v", err)
	}
	want := []schema.Pair{schema.NewPair("BTC", "USD"), schema.NewPair("DOGE", "USD")}
	if len(pairs) != len(want) || pairs[0] != want[0] || pairs[1] != want[1] {
		t.Fatalf("pairs = %v, want %v", pairs, want)
	}
}

func TestBookSnapshotKeepsSignedAmounts(t *testing.T) {
	venue := newVenueServer(t, func(path string) (int, string) {
		if path != "/v2/book/tBTCUSD/P1" {
			return http.StatusNotFound, `[]`
		}
		return http.StatusOK, `[[30000,2,"1.5"],[30100,1,"-0.7"]]`
	})
	client := newTestClient(venue, 100)
	levels, err := client.BookSnapshot(context.Background(), schema.NewPair("BTC", "USD"), "P1", 25)
	if err != nil {
		t.Fatalf("BookSnapshot() error: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("levels = %d, want 2", len(levels))
	}
	if levels[0].Amount.Sign() <= 0 || levels[1].Amount.Sign() >= 0 {
		t.Fatalf("signs lost: %+v", levels)
	}
}

func TestCandleHistoryOrderedOldestFirst(t *testing.T) {
	venue := newVenueServer(t, func(string) (int, string) {
		// venue returns newest first
		return http.StatusOK, `[[120000,"2","3","4","1","9"],[60000,"1","2","3","0.5","7"]]`
	})
	client := newTestClient(venue, 100)
	key := schema.CandleSeriesKey{Pair: schema.NewPair("BTC", "USD"), Timeframe: schema.Timeframe1m}
	candles, err := client.CandleHistory(context.Background(), key, CandleHistoryQuery{Limit: 2})
	if err != nil {
		t.Fatalf("CandleHistory() error: %v", err)
	}
	if len(candles) != 2 || candles[0].Timestamp != 60000 || candles[1].Timestamp != 120000 {
		t.Fatalf("candles not ascending: %+v", candles)
	}
}

func TestWalletsDecodesTuples(t *testing.T) {
	venue := newVenueServer(t, func(string) (int, string) {
		return http.StatusOK, `[["exchange","BTC","1.5",0,"1.2"],["margin","USD","100",0,null]]`
	})
	client := newTestClient(venue, 100)
	balances, err := client.Wallets(context.Background())
	if err != nil {
		t.Fatalf("Wallets() error: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("balances = %d, want 2", len(balances))
	}
	if !balances[0].AvailableKnown || balances[1].AvailableKnown {
		t.Fatalf("available flags wrong: %+v", balances)
	}
	if balances[1].Wallet != "margin" {
		t.Fatalf("wallet bucket lost: %+v", balances[1])
	}
}

const orderTupleJSON = `[10001,null,123,"tBTCUSD",1700000000000,1700000001000,"0.5","1.0","EXCHANGE LIMIT",null,null,null,0,"ACTIVE",null,null,"30000",0,0,0]`

func TestActiveOrders(t *testing.T) {
	venue := newVenueServer(t, func(string) (int, string) {
		return http.StatusOK, `[` + orderTupleJSON + `]`
	})
	client := newTestClient(venue, 100)
	orders, err := client.ActiveOrders(context.Background())
	if err != nil {
		t.Fatalf("ActiveOrders() error: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != 10001 || orders[0].Status != schema.OrderStatusActive {
		t.Fatalf("orders = %+v", orders)
	}
}

func TestSubmitOrderUnwrapsNotification(t *testing.T) {
	venue := newVenueServer(t, func(string) (int, string) {
		return http.StatusOK, `[1700000000000,"on-req",null,null,[` + orderTupleJSON + `],null,"SUCCESS","Submitting order."]`
	})
	client := newTestClient(venue, 100)
	order, err := client.SubmitOrder(context.Background(), OrderRequest{
		Pair:   schema.NewPair("BTC", "USD"),
		Amount: decimal.NewFromInt(1),
		Price:  decimal.NewFromInt(30000),
	})
	if err != nil {
		t.Fatalf("SubmitOrder() error: %v", err)
	}
	if order.ID != 10001 {
		t.Fatalf("order id = %d, want 10001", order.ID)
	}
}

func TestSubmitOrderVenueRejection(t *testing.T) {
	venue := newVenueServer(t, func(string) (int, string) {
		return http.StatusOK, `[1700000000000,"on-req",null,null,[],null,"ERROR","Invalid order: not enough balance"]`
	})
	client := newTestClient(venue, 100)
	_, err := client.SubmitOrder(context.Background(), OrderRequest{
		Pair:   schema.NewPair("BTC", "USD"),
		Amount: decimal.NewFromInt(1),
	})
	if errs.CodeOf(err) != errs.CodeExchange {
		t.Fatalf("error code = %v, want exchange_error", errs.CodeOf(err))
	}
}

func TestCancelOrder(t *testing.T) {
	venue := newVenueServer(t, func(string) (int, string) {
		return http.StatusOK, `[1700000000000,"oc-req",null,null,[` + orderTupleJSON + `],null,"SUCCESS","Submitted for cancellation."]`
	})
	client := newTestClient(venue, 100)
	if err := client.CancelOrder(context.Background(), 10001); err != nil {
		t.Fatalf("CancelOrder() error: %v", err)
	}
	req := venue.lastRequest(t)
	if req.path != "/v2/auth/w/order/cancel" {
		t.Fatalf("path = %s", req.path)
	}
	if string(req.body) != `{"id":10001}` {
		t.Fatalf("body = %s", req.body)
	}
}

func TestCalcAvailableBalance(t *testing.T) {
	venue := newVenueServer(t, func(string) (int, string) {
		return http.StatusOK, `["1.2345"]`
	})
	client := newTestClient(venue, 100)
	avail, err := client.CalcAvailableBalance(context.Background(),
		schema.NewPair("BTC", "USD"), schema.TradeSideBuy, decimal.NewFromInt(30000))
	if err != nil {
		t.Fatalf("CalcAvailableBalance() error: %v", err)
	}
	if !avail.Equal(decimal.RequireFromString("1.2345")) {
		t.Fatalf("avail = %s", avail)
	}
}
