package state

import (
	"sync"
	"testing"
)

func TestInMemoryStore_ConcurrentPutsDifferentKeys(t *testing.T) {
	s := NewInMemoryStore()
	var wg sync.WaitGroup
	keys := []string{CartKey("a"), CartKey("b"), CartKey("c"), CartKey("d")}
	iters := 500

	for _, k := range keys {
		k := k
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 1; i <= iters; i++ {
				if _, err := s.Put(k, rec(int64(i), i)); err != nil {
					t.Errorf("put err: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	for _, k := range keys {
		r, ok, err := s.Get(k)
		if err != nil || !ok {
			t.Fatalf("missing key %s: %v", k, err)
		}
		if r.Seq != int64(iters) || r.Lines[0].Quantity != iters {
			t.Fatalf("bad record for %s: %+v", k, r)
		}
	}
}
