package cart

import (
	"time"

	"storefront/internal/model"
)

// Variant labels used when a caller adds a product without choosing options.
const (
	DefaultSize  = "Standard"
	DefaultFrame = "None"
)

// Variant narrows a line to one size/frame combination.
type Variant struct {
	Size  string `json:"selectedSize"`
	Frame string `json:"selectedFrame"`
}

func (v Variant) withDefaults() Variant {
	if v.Size == "" {
		v.Size = DefaultSize
	}
	if v.Frame == "" {
		v.Frame = DefaultFrame
	}
	return v
}

// Key is the identity of a cart line.
type Key struct {
	ProductID int
	Size      string
	Frame     string
}

// Line is one entry in the cart. UnitPrice and the display fields are copied
// from the product when the line is created and never refreshed.
type Line struct {
	ProductID int      `json:"id"`
	Name      string   `json:"name"`
	Category  string   `json:"category,omitempty"`
	Images    []string `json:"images,omitempty"`
	// MRP is 0 when no list price was captured.
	MRP       int64  `json:"mrp,omitempty"`
	UnitPrice int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"selectedSize"`
	Frame     string `json:"selectedFrame"`
}

// NewLine builds a quantity-1 line for p at unitPrice.
func NewLine(p model.Product, unitPrice int64, v Variant) Line {
	v = v.withDefaults()
	return Line{
		ProductID: p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Images:    append([]string(nil), p.Images...),
		MRP:       p.MRP,
		UnitPrice: unitPrice,
		Quantity:  1,
		Size:      v.Size,
		Frame:     v.Frame,
	}
}

func (l Line) Key() Key { return Key{ProductID: l.ProductID, Size: l.Size, Frame: l.Frame} }

func (l Line) Variant() Variant { return Variant{Size: l.Size, Frame: l.Frame} }

// Total is UnitPrice * Quantity.
func (l Line) Total() int64 { return l.UnitPrice * int64(l.Quantity) }

// matches reports whether l belongs to productID and, when v is set, to that variant.
func (l Line) matches(productID int, v *Variant) bool {
	if l.ProductID != productID {
		return false
	}
	if v == nil {
		return true
	}
	return l.Size == v.Size && l.Frame == v.Frame
}

// Op names a cart mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpMerge  Op = "merge"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
)

// Event describes one applied mutation. Line is set for add events so the
// mutation can be replayed without the catalog.
type Event struct {
	Seq       int64    `json:"seq"`
	Op        Op       `json:"op"`
	ProductID int      `json:"productId,omitempty"`
	Variant   *Variant `json:"variant,omitempty"`
	Delta     int      `json:"delta,omitempty"`
	Line      *Line    `json:"line,omitempty"`
	TS        int64    `json:"ts"`
}

// Observer is notified after every mutation with the resulting lines.
type Observer interface {
	CartChanged(ev Event, lines []Line)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event, lines []Line)

func (f ObserverFunc) CartChanged(ev Event, lines []Line) { f(ev, lines) }

// NowUnix returns current time in epoch seconds. Split for testability.
var NowUnix = func() int64 { return time.Now().UTC().Unix() }
