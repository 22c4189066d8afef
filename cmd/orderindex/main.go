package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/logging"
	"storefront/internal/orders"
	"storefront/internal/shutdown"
)

// orderindex projects the orders topic into the orders directory served by
// GET /api/orders/:id.
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log, err := logging.New(logging.Options{Service: "storefront-orderindex", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if cfg.KafkaBootstrap == "" {
		log.Fatal("kafka-bootstrap is required")
	}
	fs, err := orders.NewFileStore(cfg.OrdersDir)
	if err != nil {
		log.Fatal("init orders dir", zap.Error(err))
	}
	ix, err := orders.NewIndexer(cfg.KafkaBootstrap, cfg.OrderIndexGroup, cfg.TopicOrders, fs, log)
	if err != nil {
		log.Fatal("init indexer", zap.Error(err))
	}

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()
	log.Info("order indexer started",
		zap.String("topic", cfg.TopicOrders),
		zap.String("group", cfg.OrderIndexGroup),
		zap.String("dir", cfg.OrdersDir))
	if err := ix.Run(ctx); err != nil {
		log.Fatal("indexer stopped", zap.Error(err))
	}
	log.Info("bye")
}
