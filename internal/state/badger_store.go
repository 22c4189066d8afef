package state

import (
	"errors"
	"fmt"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore implements Store using BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir)).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error { return b.db.Close() }

func (b *BadgerStore) Put(key string, rec CartRecord) (bool, error) {
	var applied bool
	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == nil {
			v, e := item.ValueCopy(nil)
			if e != nil {
				return e
			}
			if cur, e := decodeRecord(v); e == nil && rec.Seq <= cur.Seq {
				return nil
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		bytes, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(key), bytes); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

func (b *BadgerStore) Get(key string) (CartRecord, bool, error) {
	var v []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, e := txn.Get([]byte(key))
		if e != nil {
			return e
		}
		v, e = item.ValueCopy(nil)
		return e
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return CartRecord{}, false, nil
	}
	if err != nil {
		return CartRecord{}, false, err
	}
	rec, err := decodeRecord(v)
	if err != nil {
		return CartRecord{}, true, err
	}
	return rec, true, nil
}

func (b *BadgerStore) Range(fn func(key string, rec CartRecord) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeRecord(v)
			if err != nil {
				continue
			}
			if err := fn(string(k), rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadAll replaces every key with the provided snapshot.
func (b *BadgerStore) LoadAll(all map[string]CartRecord) error {
	return b.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		var keysToDelete [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keysToDelete = append(keysToDelete, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range keysToDelete {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for k, rec := range all {
			bytes, err := encodeRecord(rec)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(k), bytes); err != nil {
				return err
			}
		}
		return nil
	})
}
