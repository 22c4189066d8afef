package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/changelog"
	"storefront/internal/logging"
	"storefront/internal/manifest"
	"storefront/internal/metrics"
	"storefront/internal/money"
	"storefront/internal/restore"
	"storefront/internal/shutdown"
	"storefront/internal/state"
)

func main() {
	var (
		bootstrap       string
		manifestSource  string
		changelogSource string
		topicSnapshots  string
		topicChangelog  string
		snapshotDir     string
		changelogPath   string
		httpAddr        string
		poll            time.Duration
		idle            time.Duration
		env             string
	)
	flag.StringVar(&bootstrap, "bootstrap", "localhost:19092", "kafka bootstrap")
	flag.StringVar(&manifestSource, "manifest-source", "file", "file|kafka")
	flag.StringVar(&changelogSource, "changelog-source", "file", "file|kafka")
	flag.StringVar(&topicSnapshots, "topic-snapshots", "storefront.cart-snapshots", "manifest topic")
	flag.StringVar(&topicChangelog, "topic-changelog", "storefront.cart-changelog", "changelog topic")
	flag.StringVar(&snapshotDir, "snapshot-dir", "./snapshots", "snapshot dir")
	flag.StringVar(&changelogPath, "changelog", filepath.Join("changelog", "cart.jsonl"), "changelog file for file mode")
	flag.StringVar(&httpAddr, "http", "", "serve /metrics on this address while polling")
	flag.DurationVar(&poll, "poll", 0, "repeat recovery at this interval; 0 runs once")
	flag.DurationVar(&idle, "idle", 3*time.Second, "stop kafka replay after this long without messages")
	flag.StringVar(&env, "env", "dev", "dev|prod logging")
	flag.Parse()

	log, err := logging.New(logging.Options{Service: "storefront-recover", Env: env, Level: "info"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	mreg := metrics.NewRegistry()
	if httpAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", mreg.Handler())
			if err := http.ListenAndServe(httpAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
	}

	var mReader manifest.Reader
	if manifestSource == "kafka" {
		mReader = manifest.NewKafkaManifest(bootstrap, topicSnapshots, "cart-snapshot-latest")
	} else {
		mReader = manifest.NewFilesystemManifest(snapshotDir)
	}

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	cycle := func() error {
		t1 := time.Now()
		st := state.NewInMemoryStore()
		r := restore.NewRestorer(st, mReader, snapshotDir, log)

		m, err := mReader.ReadLatest()
		if err != nil && !errors.Is(err, manifest.ErrNoManifest) {
			return fmt.Errorf("read manifest: %w", err)
		}
		if _, err := r.RestoreFromSnapshot(m.SnapshotID); err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}

		var res restore.RestoreResult
		if changelogSource == "kafka" {
			res = r.ReplayChangelogKafka(ctx, changelog.Brokers(bootstrap), topicChangelog, idle)
		} else {
			res = r.ReplayChangelog(changelogPath)
		}
		if res.Error != nil {
			return fmt.Errorf("replay: %w", res.Error)
		}

		mreg.Applied.Add(float64(res.Applied))
		mreg.Skipped.Add(float64(res.Skipped))
		mreg.TTRSec.Set(time.Since(t1).Seconds())
		if m.SnapshotID != "" {
			mreg.LastManifestAgeSec.Set(m.Age().Seconds())
		}
		log.Info("recovery cycle",
			zap.String("snapshot_id", m.SnapshotID),
			zap.Int("applied", res.Applied),
			zap.Int("skipped", res.Skipped),
			zap.Int("carts", res.Carts),
			zap.Duration("ttr", time.Since(t1)))
		return printCarts(st)
	}

	if poll <= 0 {
		if err := cycle(); err != nil {
			log.Fatal("recovery failed", zap.Error(err))
		}
		return
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		if err := cycle(); err != nil {
			log.Warn("recovery cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// printCarts writes one summary line per recovered cart, in key order.
func printCarts(st state.Store) error {
	type row struct {
		key string
		rec state.CartRecord
	}
	var rows []row
	err := st.Range(func(key string, rec state.CartRecord) error {
		rows = append(rows, row{key, rec})
		return nil
	})
	if err != nil {
		return fmt.Errorf("range state: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].key < rows[j].key })
	policy := cart.DefaultPolicy()
	for _, r := range rows {
		t := policy.Totals(r.rec.Lines, "")
		fmt.Printf("%s seq=%d lines=%d count=%d subtotal=%s\n",
			r.key, r.rec.Seq, len(r.rec.Lines), t.Count, money.Format(t.Subtotal, money.INR))
	}
	return nil
}
