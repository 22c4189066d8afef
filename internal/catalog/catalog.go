package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"storefront/internal/model"
)

var ErrProductNotFound = errors.New("product not found")

// Catalog holds the products and option sets offered by the store.
type Catalog struct {
	Categories []model.Category `yaml:"categories"`
	Products   []model.Product  `yaml:"products"`
	Surfaces   []SurfaceOption  `yaml:"surfaces"`
	Sizes      []SizeOption     `yaml:"sizes"`
	Frames     []FrameOption    `yaml:"frames"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{
		Categories: append([]model.Category(nil), defaultCategories...),
		Products:   append([]model.Product(nil), defaultProducts...),
	}
	c.fillOptions()
	return c
}

// Load reads a catalog from a YAML file. Option sets omitted from the file
// fall back to the built-in ones.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	for _, p := range c.Products {
		if p.ID <= 0 {
			return nil, fmt.Errorf("catalog product %q: id must be positive", p.Name)
		}
	}
	c.fillOptions()
	return &c, nil
}

func (c *Catalog) fillOptions() {
	if len(c.Surfaces) == 0 {
		c.Surfaces = append([]SurfaceOption(nil), DefaultSurfaces...)
	}
	if len(c.Sizes) == 0 {
		c.Sizes = append([]SizeOption(nil), DefaultSizes...)
	}
	if len(c.Frames) == 0 {
		c.Frames = append([]FrameOption(nil), DefaultFrames...)
	}
}

// Product looks up a product by id.
func (c *Catalog) Product(id int) (model.Product, bool) {
	for _, p := range c.Products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

// ByCategory returns products whose category matches name, case-insensitively.
// An empty name returns every product.
func (c *Catalog) ByCategory(name string) []model.Product {
	out := make([]model.Product, 0, len(c.Products))
	for _, p := range c.Products {
		if name == "" || strings.EqualFold(p.Category, name) {
			out = append(out, p)
		}
	}
	return out
}

// TopRated returns up to n products ordered by rating, highest first.
func (c *Catalog) TopRated(n int) []model.Product {
	out := append([]model.Product(nil), c.Products...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Select resolves option ids into a Selection. Empty or unknown ids select
// the first entry of the corresponding set.
func (c *Catalog) Select(sizeID, surfaceID, frameID string) Selection {
	sel := Selection{Size: c.Sizes[0], Surface: c.Surfaces[0], Frame: c.Frames[0]}
	for _, o := range c.Sizes {
		if o.ID == sizeID {
			sel.Size = o
			break
		}
	}
	for _, o := range c.Surfaces {
		if o.ID == surfaceID {
			sel.Surface = o
			break
		}
	}
	for _, o := range c.Frames {
		if o.ID == frameID {
			sel.Frame = o
			break
		}
	}
	return sel
}

// Quote is the priced configuration of one product.
type Quote struct {
	Product   model.Product `json:"product"`
	Selection Selection     `json:"selection"`
	Price     int64         `json:"price"`
	// CompareAt is the struck-through price shown next to a configured product.
	CompareAt int64 `json:"compareAt"`
}

// Quote prices productID under sel.
func (c *Catalog) Quote(productID int, sel Selection) (Quote, error) {
	p, ok := c.Product(productID)
	if !ok {
		return Quote{}, fmt.Errorf("quote %d: %w", productID, ErrProductNotFound)
	}
	price := sel.Price(p.Price)
	return Quote{
		Product:   p,
		Selection: sel,
		Price:     price,
		CompareAt: compareAt(price),
	}, nil
}
