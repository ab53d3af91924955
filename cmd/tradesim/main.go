package main

import (
	"context"
	"flag"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"tradesim/internal/common"
	"tradesim/internal/config"
	"tradesim/internal/engine"
	"tradesim/internal/exchange"
	"tradesim/internal/publish"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	simulate := flag.Bool("simulate", false, "Drive the engine with random order flow")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.Log.Level).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	// Wire the engine to its collaborators: registry of books, trade
	// store and event feed behind the publisher, exchange on top.
	registry := engine.NewRegistry(cfg.Market.Symbols...)
	store := publish.NewMemoryStore()
	feed := publish.NewFeed(cfg.Publisher.Buffer)
	pub := publish.New(store, feed, publish.Options{
		Workers: cfg.Publisher.Workers,
		Buffer:  cfg.Publisher.Buffer,
		Retries: cfg.Publisher.Retries,
	})
	pub.Run(ctx)
	defer func() {
		if err := pub.Close(); err != nil {
			log.Error().Err(err).Msg("publisher shutdown")
		}
	}()

	ex := exchange.New(registry, pub)

	go consumeFeed(ctx, feed)

	log.Info().
		Str("environment", cfg.App.Environment).
		Strs("symbols", cfg.Market.Symbols).
		Msg("engine ready")

	if *simulate {
		go simulateFlow(ctx, ex, cfg.Market.Symbols)
	}

	<-ctx.Done()
}

// consumeFeed logs the published event stream so a smoke run shows the
// full path from submission to broadcast.
func consumeFeed(ctx context.Context, feed *publish.Feed) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-feed.Events():
			if event.Kind == publish.TradeEvent {
				log.Info().
					Str("symbol", event.Symbol).
					Int64("trade", event.Trade.TradeID).
					Str("price", event.Trade.Price.String()).
					Uint64("quantity", event.Trade.Quantity).
					Msg("trade")
			}
		}
	}
}

// simulateFlow submits randomized limit and market orders around a fixed
// mid price for each configured symbol.
func simulateFlow(ctx context.Context, ex *exchange.Exchange, symbols []string) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			req := exchange.OrderRequest{
				TraderID: int64(rng.Intn(16) + 1),
				Symbol:   symbols[rng.Intn(len(symbols))],
				Side:     common.Side(rng.Intn(2)),
				Type:     common.LimitOrder,
				Quantity: uint64(rng.Intn(90) + 10),
				Price:    decimal.NewFromInt(int64(95 + rng.Intn(11))),
			}
			if rng.Intn(10) == 0 {
				req.Type = common.MarketOrder
				req.Price = decimal.Decimal{}
			}
			if _, _, err := ex.SubmitOrder(req); err != nil {
				log.Warn().Err(err).Msg("simulated order rejected")
			}
		}
	}
}
