package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/changelog"
	"storefront/internal/metrics"
	"storefront/internal/profile"
	"storefront/internal/restore"
	"storefront/internal/state"
)

// Manager owns live sessions. A session's cart is reloaded from the state
// store the first time its id is seen, and every later mutation is written
// through to the store and the changelog.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	lastSeen map[string]time.Time
	now      func() time.Time

	store     state.Store
	restorer  *restore.Restorer
	changelog changelog.Writer
	profiles  profile.Store
	policy    cart.Policy
	metrics   *metrics.Registry
	log       *zap.Logger
}

type Options struct {
	Store state.Store
	// Changelog is optional.
	Changelog changelog.Writer
	Profiles  profile.Store
	// Policy defaults to cart.DefaultPolicy when zero.
	Policy cart.Policy
	// Metrics is optional.
	Metrics *metrics.Registry
	Log     *zap.Logger
}

func NewManager(opts Options) *Manager {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	policy := opts.Policy
	if policy.MRPFallback == 0 && policy.Coupons == nil {
		policy = cart.DefaultPolicy()
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		lastSeen:  make(map[string]time.Time),
		now:       time.Now,
		store:     opts.Store,
		restorer:  restore.NewRestorer(opts.Store, nil, "", log),
		changelog: opts.Changelog,
		profiles:  opts.Profiles,
		policy:    policy,
		metrics:   opts.Metrics,
		log:       log,
	}
}

// NewID returns a fresh session id.
func NewID() string { return uuid.NewString() }

// Get returns the session for id, restoring its cart on first access.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeen[id] = m.now()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	key := state.CartKey(id)
	engine := cart.NewEngine(cart.WithPolicy(m.policy), cart.WithObserver(&writeThrough{m: m, key: key}))
	lines, seq := m.restorer.Load(key)
	engine.Restore(lines, seq)
	s := New(id, engine, m.profiles)
	if m.metrics != nil {
		s.onPendingReplayed = m.metrics.PendingReplayed.Inc
		m.metrics.ActiveSessions.Inc()
	}
	m.sessions[id] = s
	if len(lines) > 0 {
		m.log.Debug("cart restored", zap.String("session", id), zap.Int("lines", len(lines)), zap.Int64("seq", seq))
	}
	return s
}

// Drop forgets the in-memory session. The persisted cart stays.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return
	}
	m.drop(id)
}

func (m *Manager) drop(id string) {
	delete(m.sessions, id)
	delete(m.lastSeen, id)
	if m.metrics != nil {
		m.metrics.ActiveSessions.Dec()
	}
}

// EvictIdle drops sessions not requested for longer than ttl and returns
// how many went. Sessions with a checkout in flight are kept. Evicted carts
// stay persisted and are restored when the id comes back.
func (m *Manager) EvictIdle(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-ttl)
	n := 0
	for id, seen := range m.lastSeen {
		if !seen.Before(cutoff) || m.sessions[id].checkoutInFlight() {
			continue
		}
		m.drop(id)
		n++
	}
	return n
}

// RunEviction calls EvictIdle every interval until ctx is done.
func (m *Manager) RunEviction(ctx context.Context, interval, ttl time.Duration) error {
	if interval <= 0 || ttl <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.EvictIdle(ttl); n > 0 {
				m.log.Debug("idle sessions evicted", zap.Int("count", n))
			}
		}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// writeThrough mirrors every mutation to the durable store and changelog.
// Failures are logged and counted; the in-memory cart stays authoritative.
type writeThrough struct {
	m   *Manager
	key string
}

func (w *writeThrough) CartChanged(ev cart.Event, lines []cart.Line) {
	m := w.m
	if m.metrics != nil {
		m.metrics.CartMutations.WithLabelValues(string(ev.Op)).Inc()
	}
	rec := state.CartRecord{Lines: lines, Seq: ev.Seq, UpdatedAt: ev.TS}
	if _, err := m.store.Put(w.key, rec); err != nil {
		m.log.Warn("persist cart failed", zap.String("key", w.key), zap.Int64("seq", ev.Seq), zap.Error(err))
		if m.metrics != nil {
			m.metrics.PersistFailures.Inc()
		}
	}
	if m.changelog == nil {
		return
	}
	if err := m.changelog.Append(changelog.Entry{Key: w.key, Event: ev}); err != nil {
		m.log.Warn("append changelog failed", zap.String("key", w.key), zap.Int64("seq", ev.Seq), zap.Error(err))
		if m.metrics != nil {
			m.metrics.ChangelogFailures.Inc()
		}
		return
	}
	if m.metrics != nil {
		m.metrics.ChangelogAppended.Inc()
	}
}
