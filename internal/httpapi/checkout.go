package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/checkout"
	"storefront/internal/orders"
	"storefront/internal/session"
)

func (s *Server) beginCheckout(c *gin.Context) {
	sum, err := s.checkout.Begin(currentSession(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) completeCheckout(c *gin.Context) {
	var in checkout.Request
	if err := c.ShouldBindJSON(&in); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	o, err := s.checkout.Complete(c.Request.Context(), currentSession(c), in)
	if err != nil && o.PaymentRef == "" {
		s.fail(c, err)
		return
	}
	// Paid but not recorded: the shopper still gets the confirmation.
	c.JSON(http.StatusCreated, o)
}

func (s *Server) getOrder(c *gin.Context) {
	user, ok := currentSession(c).User()
	if !ok {
		s.fail(c, session.ErrNotAuthenticated)
		return
	}
	o, err := s.orders.Get(c.Request.Context(), c.Param("id"))
	if err == nil && o.UserID != user.ID {
		err = orders.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
