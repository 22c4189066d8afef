package state

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"
)

// PebbleStore implements Store using PebbleDB.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{
		// Cart records are small and written on every click.
		MemTableSize:       16 << 20,
		WALBytesPerSync:    512 << 10,
		DisableWAL:         false,
		WALMinSyncInterval: func() time.Duration { return 0 },
	}
	d, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) Put(key string, rec CartRecord) (bool, error) {
	k := []byte(key)
	v, closer, err := p.db.Get(k)
	if err == nil {
		cur, derr := decodeRecord(v)
		_ = closer.Close()
		if derr == nil && rec.Seq <= cur.Seq {
			return false, nil
		}
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return false, err
	}
	b, err := encodeRecord(rec)
	if err != nil {
		return false, err
	}
	// NoSync: the WAL covers durability, the cart is a lagging mirror anyway.
	if err := p.db.Set(k, b, pebble.NoSync); err != nil {
		return false, err
	}
	return true, nil
}

func (p *PebbleStore) Get(key string) (CartRecord, bool, error) {
	v, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return CartRecord{}, false, nil
	}
	if err != nil {
		return CartRecord{}, false, err
	}
	defer closer.Close()
	rec, err := decodeRecord(v)
	if err != nil {
		return CartRecord{}, true, err
	}
	return rec, true, nil
}

func (p *PebbleStore) Range(fn func(key string, rec CartRecord) error) error {
	it, err := p.db.NewIter(nil)
	if err != nil {
		return err
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		k := append([]byte(nil), it.Key()...)
		rec, err := decodeRecord(it.Value())
		if err != nil {
			continue
		}
		if err := fn(string(k), rec); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll replaces every key with the provided snapshot.
func (p *PebbleStore) LoadAll(all map[string]CartRecord) error {
	var toDelete [][]byte
	it, err := p.db.NewIter(nil)
	if err != nil {
		return err
	}
	for it.First(); it.Valid(); it.Next() {
		toDelete = append(toDelete, append([]byte(nil), it.Key()...))
	}
	if err := it.Close(); err != nil {
		return err
	}

	wb := p.db.NewBatch()
	defer wb.Close()
	for _, k := range toDelete {
		if err := wb.Delete(k, nil); err != nil {
			return err
		}
	}
	for k, rec := range all {
		b, err := encodeRecord(rec)
		if err != nil {
			return fmt.Errorf("encode %s: %w", k, err)
		}
		if err := wb.Set([]byte(k), b, nil); err != nil {
			return err
		}
	}
	return wb.Commit(pebble.Sync)
}

// setRaw writes an undecoded value; tests use it to simulate corruption.
func (p *PebbleStore) setRaw(key string, raw []byte) error {
	return p.db.Set([]byte(key), raw, pebble.Sync)
}
