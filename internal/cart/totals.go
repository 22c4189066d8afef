package cart

import (
	"strings"

	"storefront/internal/money"
)

// DefaultMRPFallback is the list-price multiplier for lines without a captured MRP.
const DefaultMRPFallback = 1.5

// Coupon is either a percentage of the subtotal or a flat amount.
type Coupon struct {
	Code    string `json:"code" yaml:"code"`
	Percent int64  `json:"percent,omitempty" yaml:"percent"`
	Amount  int64  `json:"amount,omitempty" yaml:"amount"`
}

// CouponTable is keyed by upper-case code.
type CouponTable map[string]Coupon

// DefaultCoupons are the codes honoured by the storefront.
func DefaultCoupons() CouponTable {
	return NewCouponTable(
		Coupon{Code: "SAVE20", Percent: 20},
		Coupon{Code: "WELCOMESWE", Amount: 500},
	)
}

func NewCouponTable(coupons ...Coupon) CouponTable {
	t := make(CouponTable, len(coupons))
	for _, c := range coupons {
		t[strings.ToUpper(c.Code)] = c
	}
	return t
}

// Lookup matches code case-insensitively.
func (t CouponTable) Lookup(code string) (Coupon, bool) {
	c, ok := t[strings.ToUpper(code)]
	return c, ok
}

// Discount returns the discount code grants on subtotal; unknown codes grant 0.
func (t CouponTable) Discount(code string, subtotal int64) int64 {
	c, ok := t.Lookup(code)
	if !ok {
		return 0
	}
	if c.Percent > 0 {
		return subtotal * c.Percent / 100
	}
	return c.Amount
}

// Policy holds the tunable parts of the totals computation.
type Policy struct {
	MRPFallback     float64
	ClampFinalTotal bool
	Coupons         CouponTable
}

func DefaultPolicy() Policy {
	return Policy{
		MRPFallback:     DefaultMRPFallback,
		ClampFinalTotal: true,
		Coupons:         DefaultCoupons(),
	}
}

// Totals is the derived summary of a cart.
type Totals struct {
	Subtotal       int64  `json:"subtotal"`
	MRPTotal       int64  `json:"mrpTotal"`
	Savings        int64  `json:"savings"`
	Coupon         string `json:"coupon,omitempty"`
	CouponDiscount int64  `json:"couponDiscount"`
	FinalTotal     int64  `json:"finalTotal"`
	Count          int    `json:"count"`
}

// Subtotal is the sum of unit price times quantity.
func Subtotal(lines []Line) int64 {
	var sum int64
	for _, l := range lines {
		sum += l.Total()
	}
	return sum
}

// Count is the total number of units, used for the cart badge.
func Count(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// MRPTotal sums list prices times quantity. Lines without one contribute
// UnitPrice*fallback*Quantity; that part is rounded once, on its sum.
func (p Policy) MRPTotal(lines []Line) int64 {
	var sum int64
	var fallback float64
	for _, l := range lines {
		if l.MRP > 0 {
			sum += l.MRP * int64(l.Quantity)
			continue
		}
		fallback += float64(l.UnitPrice) * p.MRPFallback * float64(l.Quantity)
	}
	return sum + money.Round(fallback)
}

// Totals computes every aggregate for lines under code.
func (p Policy) Totals(lines []Line, code string) Totals {
	sub := Subtotal(lines)
	mrp := p.MRPTotal(lines)
	t := Totals{
		Subtotal: sub,
		MRPTotal: mrp,
		Savings:  mrp - sub,
		Count:    Count(lines),
	}
	if c, ok := p.Coupons.Lookup(code); ok {
		t.Coupon = c.Code
		t.CouponDiscount = p.Coupons.Discount(code, sub)
	}
	t.FinalTotal = sub - t.CouponDiscount
	if p.ClampFinalTotal && t.FinalTotal < 0 {
		t.FinalTotal = 0
	}
	return t
}

func (e *Engine) Subtotal() int64 { return Subtotal(e.lines) }

func (e *Engine) MRPTotal() int64 { return e.policy.MRPTotal(e.lines) }

func (e *Engine) Savings() int64 { return e.MRPTotal() - e.Subtotal() }

func (e *Engine) CouponDiscount(code string) int64 {
	return e.policy.Coupons.Discount(code, e.Subtotal())
}

func (e *Engine) FinalTotal(code string) int64 { return e.Totals(code).FinalTotal }

func (e *Engine) Count() int { return Count(e.lines) }

func (e *Engine) Totals(code string) Totals { return e.policy.Totals(e.lines, code) }

// Policy returns the engine's totals policy.
func (e *Engine) Policy() Policy { return e.policy }
