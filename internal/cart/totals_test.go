package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront/internal/model"
)

func TestCoupons(t *testing.T) {
	c := DefaultCoupons()
	assert.Equal(t, int64(200), c.Discount("SAVE20", 1000))
	assert.Equal(t, int64(200), c.Discount("save20", 1000))
	assert.Equal(t, int64(500), c.Discount("WELCOMESWE", 1000))
	assert.Equal(t, int64(500), c.Discount("welcomeswe", 10))
	assert.Equal(t, int64(0), c.Discount("random", 1000))
	assert.Equal(t, int64(0), c.Discount("", 1000))
	// percentage discounts floor
	assert.Equal(t, int64(719), c.Discount("SAVE20", 3599))
}

func TestTotals(t *testing.T) {
	e := NewEngine()
	e.Add(lippan, 3599, Variant{})
	e.Add(lippan, 3599, Variant{})
	e.Add(model.Product{ID: 9, Name: "no mrp"}, 1001, Variant{})

	assert.Equal(t, int64(8199), e.Subtotal())
	// 4500*2 + round(1001*1.5) = 1502
	assert.Equal(t, int64(10502), e.MRPTotal())
	assert.Equal(t, int64(2303), e.Savings())
	assert.Equal(t, 3, e.Count())

	tot := e.Totals("save20")
	assert.Equal(t, "SAVE20", tot.Coupon)
	assert.Equal(t, int64(1639), tot.CouponDiscount)
	assert.Equal(t, int64(8199-1639), tot.FinalTotal)
	assert.Equal(t, int64(8199-1639), e.FinalTotal("SAVE20"))
	assert.Equal(t, int64(1639), e.CouponDiscount("SAVE20"))

	tot = e.Totals("bogus")
	assert.Empty(t, tot.Coupon)
	assert.Equal(t, int64(8199), tot.FinalTotal)
}

func TestTotals_FallbackRoundedOnSum(t *testing.T) {
	e := NewEngine()
	noMRP := model.Product{ID: 7, Name: "no mrp"}
	e.Add(noMRP, 3599, Variant{})
	e.Add(noMRP, 3599, Variant{})

	// 3599*1.5*2, not round(3599*1.5)*2 = 10798
	assert.Equal(t, int64(10797), e.MRPTotal())
	assert.Equal(t, int64(10797-7198), e.Savings())

	// Lines with an MRP stay exact alongside fallback lines.
	e.Add(lippan, 3599, Variant{})
	e.Add(model.Product{ID: 8}, 1001, Variant{})
	// 4500 + round(10797 + 1501.5)
	assert.Equal(t, int64(4500+12299), e.MRPTotal())
}

func TestTotals_RecomputedAfterEveryMutation(t *testing.T) {
	a := NewEngine()
	a.Add(lippan, 3599, Variant{})
	a.Add(model.Product{ID: 1}, 4999, Variant{})
	a.UpdateQuantity(1, 2, nil)

	b := NewEngine()
	b.Add(model.Product{ID: 1}, 4999, Variant{})
	b.UpdateQuantity(1, 2, nil)
	b.Add(lippan, 3599, Variant{})

	assert.Equal(t, a.Subtotal(), b.Subtotal())
	assert.Equal(t, int64(3599+3*4999), a.Subtotal())
}

func TestTotals_FinalTotalClamp(t *testing.T) {
	e := NewEngine()
	e.Add(model.Product{ID: 1}, 300, Variant{})
	assert.Equal(t, int64(0), e.FinalTotal("WELCOMESWE"))

	raw := DefaultPolicy()
	raw.ClampFinalTotal = false
	e = NewEngine(WithPolicy(raw))
	e.Add(model.Product{ID: 1}, 300, Variant{})
	assert.Equal(t, int64(-200), e.FinalTotal("WELCOMESWE"))
}

func TestTotals_ConfigurableFallback(t *testing.T) {
	p := DefaultPolicy()
	p.MRPFallback = 2
	p.Coupons = NewCouponTable(Coupon{Code: "Flat100", Amount: 100})
	e := NewEngine(WithPolicy(p))
	e.Add(model.Product{ID: 1}, 300, Variant{})
	e.Add(model.Product{ID: 1}, 300, Variant{})

	tot := e.Totals("FLAT100")
	assert.Equal(t, int64(1200), tot.MRPTotal)
	assert.Equal(t, int64(600), tot.Savings)
	assert.Equal(t, int64(500), tot.FinalTotal)
	assert.Equal(t, int64(0), e.CouponDiscount("SAVE20"))
}

func TestTotals_EmptyCart(t *testing.T) {
	tot := DefaultPolicy().Totals(nil, "SAVE20")
	assert.Equal(t, Totals{Coupon: "SAVE20"}, tot)
}
