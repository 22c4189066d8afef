package restore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/changelog"
	"storefront/internal/manifest"
	"storefront/internal/snapshot"
	"storefront/internal/state"
)

type Restorer struct {
	stateStore      state.Store
	manifestReader  manifest.Reader
	snapshotBaseDir string
	log             *zap.Logger
}

func NewRestorer(st state.Store, mr manifest.Reader, snapshotBaseDir string, log *zap.Logger) *Restorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Restorer{
		stateStore:      st,
		manifestReader:  mr,
		snapshotBaseDir: snapshotBaseDir,
		log:             log,
	}
}

type RestoreResult struct {
	Applied int
	Skipped int
	Carts   int
	Error   error
}

// Load returns the persisted cart under key. A missing or unreadable record
// yields an empty cart; the failure is logged, not returned.
func (r *Restorer) Load(key string) ([]cart.Line, int64) {
	rec, ok, err := r.stateStore.Get(key)
	if err != nil {
		r.log.Warn("cart record unreadable, starting empty", zap.String("key", key), zap.Error(err))
		return nil, 0
	}
	if !ok {
		return nil, 0
	}
	return rec.Lines, rec.Seq
}

// RestoreFromSnapshot replaces the store contents with a snapshot dump.
// A missing snapshot is skipped.
func (r *Restorer) RestoreFromSnapshot(snapshotID string) (int, error) {
	if snapshotID == "" {
		return 0, nil
	}
	dump, err := snapshot.ReadSnapshot(r.snapshotBaseDir, snapshotID)
	if errors.Is(err, os.ErrNotExist) {
		r.log.Warn("snapshot not found, skipping", zap.String("snapshot_id", snapshotID))
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := r.stateStore.LoadAll(dump); err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}
	r.log.Info("snapshot loaded", zap.String("snapshot_id", snapshotID), zap.Int("carts", len(dump)))
	return len(dump), nil
}

// replayer applies changelog entries to per-key engines seeded from the store
// and writes the results back once the log is exhausted.
type replayer struct {
	r       *Restorer
	opts    []cart.Option
	engines map[string]*cart.Engine
	res     RestoreResult
}

func (r *Restorer) newReplayer(opts []cart.Option) *replayer {
	return &replayer{r: r, opts: opts, engines: make(map[string]*cart.Engine)}
}

func (p *replayer) apply(e changelog.Entry) {
	eng, ok := p.engines[e.Key]
	if !ok {
		eng = cart.NewEngine(p.opts...)
		lines, seq := p.r.Load(e.Key)
		eng.Restore(lines, seq)
		p.engines[e.Key] = eng
	}
	if eng.Apply(e.Event) {
		p.res.Applied++
	} else {
		p.res.Skipped++
	}
}

func (p *replayer) flush() error {
	for key, eng := range p.engines {
		rec := state.CartRecord{Lines: eng.Lines(), Seq: eng.Seq(), UpdatedAt: cart.NowUnix()}
		if _, err := p.r.stateStore.Put(key, rec); err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
	}
	p.res.Carts = len(p.engines)
	return nil
}

// ReplayChangelog re-applies a JSONL changelog on top of the store. Entries
// at or below a cart's stored sequence are skipped, so replay is idempotent.
func (r *Restorer) ReplayChangelog(changelogPath string, opts ...cart.Option) RestoreResult {
	file, err := os.Open(changelogPath)
	if errors.Is(err, os.ErrNotExist) {
		return RestoreResult{}
	}
	if err != nil {
		return RestoreResult{Error: fmt.Errorf("open changelog: %w", err)}
	}
	defer file.Close()
	return r.replayReader(file, opts)
}

func (r *Restorer) replayReader(src io.Reader, opts []cart.Option) RestoreResult {
	p := r.newReplayer(opts)
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e changelog.Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return RestoreResult{Applied: p.res.Applied, Skipped: p.res.Skipped, Error: fmt.Errorf("unmarshal line %d: %w", lineNum, err)}
		}
		p.apply(e)
	}
	if err := scanner.Err(); err != nil {
		return RestoreResult{Error: fmt.Errorf("scan changelog: %w", err)}
	}
	if err := p.flush(); err != nil {
		p.res.Error = err
	}
	return p.res
}

// kafkaMessageReader abstracts kafka.Reader for testability.
type kafkaMessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ReplayChangelogKafka consumes entries from partition 0 of topic until no
// message arrives within idle, then writes the replayed carts back.
func (r *Restorer) ReplayChangelogKafka(ctx context.Context, brokers []string, topic string, idle time.Duration, opts ...cart.Option) RestoreResult {
	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	return r.replayKafka(ctx, rd, idle, opts)
}

func (r *Restorer) replayKafka(ctx context.Context, rd kafkaMessageReader, idle time.Duration, opts []cart.Option) RestoreResult {
	defer rd.Close()
	p := r.newReplayer(opts)
	for {
		rctx, cancel := context.WithTimeout(ctx, idle)
		m, err := rd.ReadMessage(rctx)
		cancel()
		if err != nil {
			if rctx.Err() != nil {
				break
			}
			p.res.Error = fmt.Errorf("read kafka: %w", err)
			return p.res
		}
		var e changelog.Entry
		if err := json.Unmarshal(m.Value, &e); err != nil {
			p.res.Error = fmt.Errorf("unmarshal entry: %w", err)
			return p.res
		}
		p.apply(e)
	}
	if err := p.flush(); err != nil {
		p.res.Error = err
	}
	return p.res
}

// RestoreAndReplay loads the latest published snapshot and replays the file
// changelog on top of it.
func (r *Restorer) RestoreAndReplay(changelogPath string, opts ...cart.Option) (RestoreResult, error) {
	m, err := r.manifestReader.ReadLatest()
	if err != nil && !errors.Is(err, manifest.ErrNoManifest) {
		return RestoreResult{}, fmt.Errorf("read manifest: %w", err)
	}
	if _, err := r.RestoreFromSnapshot(m.SnapshotID); err != nil {
		return RestoreResult{}, fmt.Errorf("restore snapshot: %w", err)
	}
	result := r.ReplayChangelog(changelogPath, opts...)
	return result, result.Error
}
