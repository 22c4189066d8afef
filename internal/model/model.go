package model

// Product is read-only catalog reference data.
type Product struct {
	ID          int      `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category" yaml:"category"`
	Price       int64    `json:"price" yaml:"price"`
	MRP         int64    `json:"mrp" yaml:"mrp"`
	Rating      float64  `json:"rating" yaml:"rating"`
	Description string   `json:"description" yaml:"description"`
	Images      []string `json:"images" yaml:"images"`
}

// Category groups products on the shop page.
type Category struct {
	ID     int      `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	Color  string   `json:"color" yaml:"color"`
	Images []string `json:"images" yaml:"images"`
}

// CoverImage returns the first image reference, or "" when the product has none.
func (p Product) CoverImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
