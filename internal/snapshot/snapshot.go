package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"storefront/internal/manifest"
	"storefront/internal/state"
)

const dumpFile = "carts.json"

type Snapshotter interface {
	WriteSnapshot(snapshotID string, st state.Store) (manifest.Manifest, error)
}

type FilesystemSnapshotter struct {
	baseDir string
}

func NewFilesystemSnapshotter(baseDir string) *FilesystemSnapshotter {
	return &FilesystemSnapshotter{baseDir: baseDir}
}

// WriteSnapshot dumps every readable cart in st to <baseDir>/<id>/carts.json
// and returns a manifest describing the dump. Publishing it is up to the caller.
func (f *FilesystemSnapshotter) WriteSnapshot(snapshotID string, st state.Store) (manifest.Manifest, error) {
	if err := os.MkdirAll(filepath.Join(f.baseDir, snapshotID), 0o755); err != nil {
		return manifest.Manifest{}, fmt.Errorf("mkdir: %w", err)
	}
	dump := make(map[string]state.CartRecord)
	var maxSeq int64
	if err := st.Range(func(key string, rec state.CartRecord) error {
		dump[key] = rec
		if rec.Seq > maxSeq {
			maxSeq = rec.Seq
		}
		return nil
	}); err != nil {
		return manifest.Manifest{}, err
	}

	out, err := os.Create(filepath.Join(f.baseDir, snapshotID, dumpFile))
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("create: %w", err)
	}
	defer out.Close()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dump); err != nil {
		return manifest.Manifest{}, fmt.Errorf("encode: %w", err)
	}
	return manifest.Manifest{SnapshotID: snapshotID, Carts: len(dump), MaxSeq: maxSeq}, nil
}

// ReadSnapshot loads a dump written by WriteSnapshot. A missing snapshot
// yields an empty map and os.ErrNotExist.
func ReadSnapshot(baseDir, snapshotID string) (map[string]state.CartRecord, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, snapshotID, dumpFile))
	if err != nil {
		return map[string]state.CartRecord{}, fmt.Errorf("read snapshot: %w", err)
	}
	var dump map[string]state.CartRecord
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return dump, nil
}

// NewID names a snapshot after the time it was taken.
func NewID(t time.Time) string { return t.UTC().Format("20060102T150405.000Z") }

// Loop periodically snapshots a store and publishes the manifest.
type Loop struct {
	Store       state.Store
	Snapshotter Snapshotter
	Publisher   manifest.Publisher
	Interval    time.Duration
	Log         *zap.Logger
	// OnPublished is called after each successful publish. Optional.
	OnPublished func(manifest.Manifest)
}

// Once takes and publishes one snapshot.
func (l *Loop) Once(now time.Time) (manifest.Manifest, error) {
	id := NewID(now)
	m, err := l.Snapshotter.WriteSnapshot(id, l.Store)
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("write snapshot: %w", err)
	}
	m.CreatedAtEpochSecond = now.UTC().Unix()
	if err := l.Publisher.PublishLatest(m); err != nil {
		return manifest.Manifest{}, fmt.Errorf("publish manifest: %w", err)
	}
	if l.OnPublished != nil {
		l.OnPublished(m)
	}
	return m, nil
}

// Run snapshots every Interval until ctx is done. Failures are logged and
// the loop keeps going; the next tick retries.
func (l *Loop) Run(ctx context.Context) error {
	if l.Interval <= 0 {
		return nil
	}
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case now := <-ticker.C:
			m, err := l.Once(now)
			if err != nil {
				log.Warn("snapshot failed", zap.Error(err))
				continue
			}
			log.Info("snapshot published",
				zap.String("snapshot_id", m.SnapshotID),
				zap.Int("carts", m.Carts),
				zap.Int64("max_seq", m.MaxSeq))
		}
	}
}
