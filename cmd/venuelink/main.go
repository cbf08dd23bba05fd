// Command venuelink connects to the venue, mirrors the requested channels,
// and logs every engine event. It doubles as a connectivity smoke test.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/quantfold/venuelink/config"
	"github.com/quantfold/venuelink/internal/engine"
	"github.com/quantfold/venuelink/internal/observability"
	"github.com/quantfold/venuelink/internal/rest"
	"github.com/quantfold/venuelink/internal/schema"
	"github.com/quantfold/venuelink/internal/stream"
	"github.com/quantfold/venuelink/internal/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

func main() {
	var (
		configPath = flag.String("config", "", "path to yaml settings file")
		pairsFlag  = flag.String("pairs", "BTC/USD", "comma-separated pairs to mirror books for")
		timeframe  = flag.String("candles", "", "candle timeframe to mirror for each pair (e.g. 1m), empty to skip")
		account    = flag.Bool("account", false, "subscribe to the authenticated account stream")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "venuelink ", log.LstdFlags|log.Lmsgprefix)
	observability.SetLogger(observability.NewStdLogger(observability.LevelInfo))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	settings, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	settings = settings.FromEnv()

	provider, shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		OTLPEndpoint: settings.Telemetry.OTLPEndpoint,
		ServiceName:  settings.Telemetry.ServiceName,
	})
	if err != nil {
		logger.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer shutdownCancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Printf("telemetry shutdown: %v", err)
		}
	}()
	if settings.Telemetry.OTLPEndpoint != "" {
		collector, err := telemetry.NewCollector(provider)
		if err != nil {
			logger.Fatalf("init metrics collector: %v", err)
		}
		observability.SetMetrics(collector)
	}

	pairs, err := parsePairs(*pairsFlag)
	if err != nil {
		logger.Fatalf("parse pairs: %v", err)
	}

	eng := engine.New(settings)
	eng.OnEvent(func(ev engine.Event) { logEvent(logger, ev) })

	if err := eng.Start(ctx); err != nil {
		logger.Fatalf("start engine: %v", err)
	}
	defer eng.Stop()
	logger.Printf("connected to %s", settings.Websocket.URL)

	for _, pair := range pairs {
		if err := eng.SubscribeOrderBook(ctx, pair, stream.BookOptions{}); err != nil {
			logger.Fatalf("subscribe book %s: %v", pair, err)
		}
		if *timeframe != "" {
			tf, err := schema.ParseTimeframe(*timeframe)
			if err != nil {
				logger.Fatalf("parse timeframe: %v", err)
			}
			key := schema.CandleSeriesKey{Pair: pair, Timeframe: tf}
			if err := eng.SubscribeCandles(ctx, key); err != nil {
				logger.Fatalf("subscribe candles %s: %v", pair, err)
			}
			if _, err := eng.FetchCandleHistory(ctx, key, rest.CandleHistoryQuery{Limit: 120}); err != nil {
				logger.Printf("backfill candles %s: %v", pair, err)
			}
		}
	}
	if *account {
		if err := eng.SubscribeAccount(ctx); err != nil {
			logger.Fatalf("subscribe account: %v", err)
		}
		if err := eng.RefreshWallets(ctx); err != nil {
			logger.Printf("refresh wallets: %v", err)
		}
		if err := eng.RefreshOrders(ctx); err != nil {
			logger.Printf("refresh orders: %v", err)
		}
	}

	<-ctx.Done()
	logger.Printf("shutting down")
}

func parsePairs(raw string) ([]schema.Pair, error) {
	var pairs []schema.Pair
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if base, quote, ok := strings.Cut(token, "/"); ok {
			pairs = append(pairs, schema.NewPair(base, quote))
			continue
		}
		pair, err := schema.ParseSymbol(token)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

func logEvent(logger *log.Logger, ev engine.Event) {
	switch ev.Kind {
	case engine.EventBookUpdated:
		logger.Printf("book updated %s", ev.Pair)
	case engine.EventWalletUpdated:
		logger.Printf("wallet %s %s total=%s available=%s",
			ev.Balance.Wallet, ev.Balance.Currency, ev.Balance.Total, ev.Balance.Available)
	case engine.EventOrderUpdated:
		logger.Printf("order %d %s %s status=%s", ev.Order.ID, ev.Order.Pair, ev.Order.Side(), ev.Order.Status)
	case engine.EventTradeExecuted:
		logger.Printf("trade %d %s amount=%s price=%s", ev.Trade.ID, ev.Trade.Pair, ev.Trade.Amount, ev.Trade.Price)
	case engine.EventCandleUpdated:
		logger.Printf("candle %s close=%s", ev.CandleKey.ChannelKey(), ev.Candle.Close)
	case engine.EventConnState:
		logger.Printf("connection %s", ev.ConnState)
	case engine.EventMaintenanceChanged:
		logger.Printf("maintenance=%v", ev.Maintenance)
	case engine.EventEngineError:
		logger.Printf("engine error: %v", ev.Err)
	}
}
