package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/cart"
)

// KeyPrefix is the fixed key under which carts are stored, suffixed by session id.
const KeyPrefix = "cartItems/"

// CartKey returns the storage key for a session's cart.
func CartKey(sessionID string) string { return KeyPrefix + sessionID }

// ErrCorrupt is returned by Get when a stored value cannot be decoded.
var ErrCorrupt = errors.New("corrupt cart record")

// CartRecord is the persisted form of one cart.
type CartRecord struct {
	Lines     []cart.Line `json:"lines"`
	Seq       int64       `json:"seq"`
	UpdatedAt int64       `json:"updatedAt"`
}

// Store abstracts the cart persistence backend.
type Store interface {
	// Put writes rec unless the stored record already has an equal or newer Seq.
	Put(key string, rec CartRecord) (applied bool, err error)
	// Get returns ErrCorrupt (wrapped) when the stored value cannot be decoded.
	Get(key string) (CartRecord, bool, error)
	Range(fn func(key string, rec CartRecord) error) error
	LoadAll(all map[string]CartRecord) error
}

func encodeRecord(rec CartRecord) ([]byte, error) { return json.Marshal(rec) }

func decodeRecord(val []byte) (CartRecord, error) {
	var rec CartRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return CartRecord{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return rec, nil
}

// InMemoryStore is a thread-safe map of encoded records.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string][]byte)}
}

// LoadAll replaces the store contents with the provided snapshot.
func (s *InMemoryStore) LoadAll(all map[string]CartRecord) error {
	data := make(map[string][]byte, len(all))
	for k, rec := range all {
		b, err := encodeRecord(rec)
		if err != nil {
			return fmt.Errorf("encode %s: %w", k, err)
		}
		data[k] = b
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) Put(key string, rec CartRecord) (bool, error) {
	b, err := encodeRecord(rec)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.data[key]; ok {
		if old, err := decodeRecord(cur); err == nil && rec.Seq <= old.Seq {
			return false, nil
		}
	}
	s.data[key] = b
	return true, nil
}

func (s *InMemoryStore) Get(key string) (CartRecord, bool, error) {
	s.mu.RLock()
	v, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return CartRecord{}, false, nil
	}
	rec, err := decodeRecord(v)
	if err != nil {
		return CartRecord{}, true, err
	}
	return rec, true, nil
}

func (s *InMemoryStore) Range(fn func(key string, rec CartRecord) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.data {
		rec, err := decodeRecord(v)
		if err != nil {
			continue
		}
		if err := fn(k, rec); err != nil {
			return fmt.Errorf("range callback failed: %w", err)
		}
	}
	return nil
}

// putRaw stores an undecoded value; tests use it to simulate corruption.
func (s *InMemoryStore) putRaw(key string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
}
