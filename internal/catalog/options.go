package catalog

// SurfaceOption is a print surface; PriceEffect is added to the sized price.
type SurfaceOption struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	PriceEffect int64  `json:"priceEffect" yaml:"price_effect"`
}

// SizeOption scales the base price by Multiplier.
type SizeOption struct {
	ID         string  `json:"id" yaml:"id"`
	Label      string  `json:"label" yaml:"label"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// FrameOption is a frame finish; PriceEffect is added to the sized price.
type FrameOption struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	Color       string `json:"color" yaml:"color"`
	PriceEffect int64  `json:"priceEffect" yaml:"price_effect"`
}

// Default option sets. The first entry of each set is the fallback selection.
var (
	DefaultSurfaces = []SurfaceOption{
		{ID: "canvas", Label: "Canvas Print", PriceEffect: 0},
		{ID: "framed", Label: "Framed Print", PriceEffect: 1500},
		{ID: "wooden", Label: "Wooden Frame", PriceEffect: 2000},
		{ID: "acrylic", Label: "Acrylic Print", PriceEffect: 3000},
	}

	DefaultSizes = []SizeOption{
		{ID: "12x18", Label: "12 × 18 inches", Multiplier: 1},
		{ID: "18x24", Label: "18 × 24 inches", Multiplier: 1.6},
		{ID: "24x36", Label: "24 × 36 inches", Multiplier: 2.5},
		{ID: "custom", Label: "Custom size", Multiplier: 3.0},
	}

	DefaultFrames = []FrameOption{
		{ID: "none", Label: "No Frame", Color: "transparent", PriceEffect: 0},
		{ID: "black", Label: "Black", Color: "#1A1A1A", PriceEffect: 800},
		{ID: "white", Label: "White", Color: "#FFFFFF", PriceEffect: 800},
		{ID: "natural", Label: "Natural Wood", Color: "#D2B48C", PriceEffect: 1200},
		{ID: "gold", Label: "Gold", Color: "#D4AF37", PriceEffect: 1800},
	}
)

// Selection is one concrete choice from each option set.
type Selection struct {
	Size    SizeOption    `json:"size"`
	Surface SurfaceOption `json:"surface"`
	Frame   FrameOption   `json:"frame"`
}
