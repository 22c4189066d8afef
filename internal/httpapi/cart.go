package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
	"storefront/internal/money"
	"storefront/internal/session"
)

type cartView struct {
	session.View
	Coupon  string            `json:"coupon,omitempty"`
	Display map[string]string `json:"display"`
}

func (s *Server) cartView(sess *session.Session) cartView {
	v := sess.View()
	f := func(n int64) string { return money.Format(n, s.currency) }
	return cartView{
		View:   v,
		Coupon: sess.Coupon(),
		Display: map[string]string{
			"subtotal":       f(v.Totals.Subtotal),
			"mrpTotal":       f(v.Totals.MRPTotal),
			"savings":        f(v.Totals.Savings),
			"couponDiscount": f(v.Totals.CouponDiscount),
			"finalTotal":     f(v.Totals.FinalTotal),
		},
	}
}

func (s *Server) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, s.cartView(currentSession(c)))
}

func (s *Server) clearCart(c *gin.Context) {
	sess := currentSession(c)
	sess.Clear()
	c.JSON(http.StatusOK, s.cartView(sess))
}

// addItemInput carries option ids. With no options set the product goes in
// at its base price as the default variant.
type addItemInput struct {
	ProductID int    `json:"productId" binding:"required"`
	Size      string `json:"size"`
	Surface   string `json:"surface"`
	Frame     string `json:"frame"`
}

// POST /api/cart/items
func (s *Server) addItem(c *gin.Context) {
	var in addItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	p, ok := s.catalog.Product(in.ProductID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	price := p.Price
	var variant cart.Variant
	if in.Size != "" || in.Surface != "" || in.Frame != "" {
		sel := s.catalog.Select(in.Size, in.Surface, in.Frame)
		price = sel.Price(p.Price)
		variant = cart.Variant{Size: sel.Size.Label, Frame: sel.Frame.Label}
	}

	sess := currentSession(c)
	if _, deferred := sess.AddToCart(p, price, variant); deferred {
		c.JSON(http.StatusAccepted, gin.H{"deferred": true, "authRequired": true})
		return
	}
	c.JSON(http.StatusOK, s.cartView(sess))
}

type updateItemInput struct {
	Delta   int           `json:"delta" binding:"required"`
	Variant *cart.Variant `json:"variant"`
}

// PATCH /api/cart/items/:productId
func (s *Server) updateItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("productId"))
	if err != nil {
		s.fail(c, fmt.Errorf("%w: product id", errBadRequest))
		return
	}
	var in updateItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	sess := currentSession(c)
	sess.UpdateQuantity(id, in.Delta, in.Variant)
	c.JSON(http.StatusOK, s.cartView(sess))
}

// DELETE /api/cart/items/:productId?size=..&frame=..
// Without size and frame every line of the product is removed.
func (s *Server) removeItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("productId"))
	if err != nil {
		s.fail(c, fmt.Errorf("%w: product id", errBadRequest))
		return
	}
	var v *cart.Variant
	size, hasSize := c.GetQuery("size")
	frame, hasFrame := c.GetQuery("frame")
	if hasSize || hasFrame {
		v = &cart.Variant{Size: size, Frame: frame}
	}
	sess := currentSession(c)
	sess.Remove(id, v)
	c.JSON(http.StatusOK, s.cartView(sess))
}

type couponInput struct {
	Code string `json:"code"`
}

// POST /api/cart/coupon; unknown codes are accepted and discount nothing.
func (s *Server) applyCoupon(c *gin.Context) {
	var in couponInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	sess := currentSession(c)
	t := sess.ApplyCoupon(in.Code)
	c.JSON(http.StatusOK, gin.H{"valid": t.Coupon != "", "cart": s.cartView(sess)})
}
