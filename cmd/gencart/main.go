package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/changelog"
)

// gencart writes a synthetic cart changelog that cmd/recover can replay.
func main() {
	var (
		sessions  int
		mutations int
		dir       string
		file      string
		seed      int64
	)
	flag.IntVar(&sessions, "sessions", 10, "number of carts to generate")
	flag.IntVar(&mutations, "mutations", 20, "mutations per cart")
	flag.StringVar(&dir, "dir", "./changelog", "output directory")
	flag.StringVar(&file, "file", "cart.jsonl", "output file name")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	w, err := changelog.NewFileWriter(dir, file)
	if err != nil {
		log.Fatalf("open changelog: %v", err)
	}
	n, err := generate(w, catalog.Default(), rand.New(rand.NewSource(seed)), sessions, mutations)
	if err != nil {
		log.Fatalf("generation failed: %v", err)
	}
	log.Printf("generated %d entries for %d carts to %s", n, sessions, w.Path())
}

func generate(w changelog.Writer, cat *catalog.Catalog, rng *rand.Rand, sessions, mutations int) (int, error) {
	written := 0
	for s := 0; s < sessions; s++ {
		key := fmt.Sprintf("cartItems/gen-%04d", s+1)
		var appendErr error
		eng := cart.NewEngine(cart.WithObserver(cart.ObserverFunc(func(ev cart.Event, _ []cart.Line) {
			if appendErr != nil {
				return
			}
			if err := w.Append(changelog.Entry{Key: key, Event: ev}); err != nil {
				appendErr = err
				return
			}
			written++
		})))
		for i := 0; i < mutations && appendErr == nil; i++ {
			mutate(eng, cat, rng)
		}
		if appendErr != nil {
			return written, fmt.Errorf("append %s: %w", key, appendErr)
		}
	}
	return written, nil
}

// mutate performs one random cart operation, weighted towards adds.
func mutate(eng *cart.Engine, cat *catalog.Catalog, rng *rand.Rand) {
	lines := eng.Lines()
	switch r := rng.Intn(10); {
	case r < 6 || len(lines) == 0:
		p := cat.Products[rng.Intn(len(cat.Products))]
		sel := cat.Select(
			cat.Sizes[rng.Intn(len(cat.Sizes))].ID,
			cat.Surfaces[rng.Intn(len(cat.Surfaces))].ID,
			cat.Frames[rng.Intn(len(cat.Frames))].ID,
		)
		eng.Add(p, sel.Price(p.Price), cart.Variant{Size: sel.Size.Label, Frame: sel.Frame.Label})
	case r < 8:
		l := lines[rng.Intn(len(lines))]
		v := l.Variant()
		eng.UpdateQuantity(l.ProductID, rng.Intn(3)-1, &v)
	case r < 9:
		l := lines[rng.Intn(len(lines))]
		v := l.Variant()
		eng.Remove(l.ProductID, &v)
	default:
		eng.Clear()
	}
}
