package main

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/catalog"
	"storefront/internal/changelog"
)

type captureWriter struct {
	entries []changelog.Entry
	failAt  int
}

func (c *captureWriter) Append(e changelog.Entry) error {
	if c.failAt > 0 && len(c.entries)+1 == c.failAt {
		return errors.New("disk full")
	}
	c.entries = append(c.entries, e)
	return nil
}

func TestGenerate_SequencesPerCart(t *testing.T) {
	w := &captureWriter{}
	n, err := generate(w, catalog.Default(), rand.New(rand.NewSource(7)), 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	next := map[string]int64{}
	for _, e := range w.entries {
		next[e.Key]++
		assert.Equal(t, next[e.Key], e.Event.Seq, e.Key)
	}
	assert.Len(t, next, 3)
}

func TestGenerate_StopsOnWriteError(t *testing.T) {
	w := &captureWriter{failAt: 4}
	n, err := generate(w, catalog.Default(), rand.New(rand.NewSource(1)), 2, 5)
	require.Error(t, err)
	assert.Equal(t, 3, n)
}
