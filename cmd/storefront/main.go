package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/changelog"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/httpapi"
	"storefront/internal/logging"
	"storefront/internal/manifest"
	"storefront/internal/metrics"
	"storefront/internal/orders"
	"storefront/internal/profile"
	"storefront/internal/restore"
	"storefront/internal/session"
	"storefront/internal/shutdown"
	"storefront/internal/snapshot"
	"storefront/internal/state"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log, err := logging.New(logging.Options{Service: "storefront", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("storefront failed", zap.Error(err))
	}
}

// closers collects resources to release on shutdown, last opened first.
type closers []func() error

func (c *closers) add(f func() error) { *c = append(*c, f) }

func (c closers) closeAll(log *zap.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	log.Info("starting storefront",
		zap.String("http", cfg.HTTPAddr),
		zap.String("state_backend", cfg.StateBackend),
		zap.String("changelog_sink", cfg.ChangelogSink),
		zap.String("order_sink", cfg.OrderSink),
		zap.Duration("snapshot_interval", cfg.SnapshotInterval))

	var cl closers
	defer cl.closeAll(log)

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		c, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return err
		}
		cat = c
	}

	st, err := openStore(cfg, &cl)
	if err != nil {
		return err
	}
	clog, err := openChangelog(cfg, &cl)
	if err != nil {
		return err
	}
	mani, mReader := openManifest(cfg)
	pub, reader, err := openOrders(cfg, &cl)
	if err != nil {
		return err
	}

	mreg := metrics.NewRegistry()
	policy := cart.DefaultPolicy()
	policy.MRPFallback = cfg.MRPFallback
	policy.ClampFinalTotal = cfg.ClampTotal

	// An in-memory store starts empty: rebuild it from the last snapshot and
	// the file changelog before serving.
	if cfg.StateBackend == "memory" && (cfg.ChangelogSink == "file" || cfg.ChangelogSink == "both") {
		t0 := time.Now()
		r := restore.NewRestorer(st, mReader, cfg.SnapshotDir, log)
		res, err := r.RestoreAndReplay(filepath.Join(cfg.ChangelogDir, config.ChangelogFile), cart.WithPolicy(policy))
		if err != nil {
			return fmt.Errorf("startup recovery: %w", err)
		}
		mreg.Applied.Add(float64(res.Applied))
		mreg.Skipped.Add(float64(res.Skipped))
		mreg.TTRSec.Set(time.Since(t0).Seconds())
		log.Info("startup recovery done", zap.Int("applied", res.Applied), zap.Int("skipped", res.Skipped), zap.Int("carts", res.Carts))
	}

	profiles := profile.NewMemoryStore()
	mgr := session.NewManager(session.Options{
		Store:     st,
		Changelog: clog,
		Profiles:  profiles,
		Policy:    policy,
		Metrics:   mreg,
		Log:       log,
	})
	svc := checkout.NewService(checkout.Options{
		Payment:   checkout.MockGateway{Latency: cfg.PaymentLatency},
		Publisher: pub,
		Profiles:  profiles,
		Currency:  cfg.Currency,
		Metrics:   mreg,
		Log:       log,
	})
	api := httpapi.New(httpapi.Options{
		Catalog:  cat,
		Sessions: mgr,
		Checkout: svc,
		Orders:   reader,
		Metrics:  mreg,
		Currency: cfg.Currency,
		Log:      log,
	})
	server := api.HTTPServer(cfg.HTTPAddr)

	loop := &snapshot.Loop{
		Store:       st,
		Snapshotter: snapshot.NewFilesystemSnapshotter(cfg.SnapshotDir),
		Publisher:   mani,
		Interval:    cfg.SnapshotInterval,
		Log:         log,
		OnPublished: func(m manifest.Manifest) {
			mreg.SnapshotsPublished.Inc()
			mreg.LastManifestAgeSec.Set(0)
		},
	}

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return mgr.RunEviction(gctx, time.Minute, cfg.SessionIdleTTL) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("bye")
	return nil
}

func openStore(cfg config.Config, cl *closers) (state.Store, error) {
	switch cfg.StateBackend {
	case "pebble":
		ps, err := state.NewPebbleStore(cfg.StateDir)
		if err != nil {
			return nil, fmt.Errorf("init pebble: %w", err)
		}
		cl.add(ps.Close)
		return ps, nil
	case "badger":
		bs, err := state.NewBadgerStore(cfg.StateDir)
		if err != nil {
			return nil, fmt.Errorf("init badger: %w", err)
		}
		cl.add(bs.Close)
		return bs, nil
	}
	return state.NewInMemoryStore(), nil
}

func openChangelog(cfg config.Config, cl *closers) (changelog.Writer, error) {
	var ws []changelog.Writer
	if cfg.ChangelogSink == "file" || cfg.ChangelogSink == "both" {
		fw, err := changelog.NewFileWriter(cfg.ChangelogDir, config.ChangelogFile)
		if err != nil {
			return nil, fmt.Errorf("init changelog: %w", err)
		}
		ws = append(ws, fw)
	}
	if cfg.ChangelogSink == "kafka" || cfg.ChangelogSink == "both" {
		kw := changelog.NewKafkaWriter(cfg.KafkaBootstrap, cfg.TopicChangelog)
		cl.add(kw.Close)
		ws = append(ws, kw)
	}
	switch len(ws) {
	case 0:
		return nil, nil
	case 1:
		return ws[0], nil
	}
	return changelog.NewMultiWriter(ws...), nil
}

func openManifest(cfg config.Config) (manifest.Publisher, manifest.Reader) {
	fs := manifest.NewFilesystemManifest(cfg.SnapshotDir)
	switch cfg.ManifestSink {
	case "kafka":
		km := manifest.NewKafkaManifest(cfg.KafkaBootstrap, cfg.TopicSnapshots, "cart-snapshot-latest")
		return km, km
	case "both":
		km := manifest.NewKafkaManifest(cfg.KafkaBootstrap, cfg.TopicSnapshots, "cart-snapshot-latest")
		return manifest.NewMultiPublisher(fs, km), fs
	}
	return fs, fs
}

// openOrders always keeps the file store so orders can be read back by id.
func openOrders(cfg config.Config, cl *closers) (orders.Publisher, orders.Reader, error) {
	fs, err := orders.NewFileStore(cfg.OrdersDir)
	if err != nil {
		return nil, nil, fmt.Errorf("init orders: %w", err)
	}
	switch cfg.OrderSink {
	case "kafka":
		kp := orders.NewKafkaPublisher(cfg.KafkaBootstrap, cfg.TopicOrders)
		cl.add(kp.Close)
		return orders.NewMultiPublisher(fs, kp), fs, nil
	case "confluent":
		cp, err := orders.NewConfluentPublisher(cfg.KafkaBootstrap, cfg.TopicOrders)
		if err != nil {
			return nil, nil, err
		}
		cl.add(func() error { cp.Close(); return nil })
		return orders.NewMultiPublisher(fs, cp), fs, nil
	case "both":
		kp := orders.NewKafkaPublisher(cfg.KafkaBootstrap, cfg.TopicOrders)
		cl.add(kp.Close)
		cp, err := orders.NewConfluentPublisher(cfg.KafkaBootstrap, cfg.TopicOrders)
		if err != nil {
			return nil, nil, err
		}
		cl.add(func() error { cp.Close(); return nil })
		return orders.NewMultiPublisher(fs, kp, cp), fs, nil
	}
	return fs, fs, nil
}
