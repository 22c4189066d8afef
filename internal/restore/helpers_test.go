package restore

import (
	"encoding/json"

	"storefront/internal/changelog"
	"storefront/internal/state"
)

// fakeStore fails Get for selected keys.
type fakeStore struct {
	*state.InMemoryStore
	getErr map[string]error
}

func (f *fakeStore) Get(key string) (state.CartRecord, bool, error) {
	if err, ok := f.getErr[key]; ok {
		return state.CartRecord{}, true, err
	}
	return f.InMemoryStore.Get(key)
}

func jsonEntry(e changelog.Entry) ([]byte, error) { return json.Marshal(&e) }
