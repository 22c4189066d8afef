package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/orders"
	"storefront/internal/profile"
	"storefront/internal/session"
)

var errBadRequest = errors.New("bad request")

func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, profile.ErrInvalidAddress),
		errors.Is(err, profile.ErrUnknownMethod),
		errors.Is(err, checkout.ErrUnknownMethod),
		errors.Is(err, checkout.ErrAddressRequired):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, session.ErrCheckoutInProgress):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	body := gin.H{"error": err.Error()}
	if errors.Is(err, checkout.ErrEmptyCart) {
		body["redirect"] = "/cart"
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		body["error"] = "internal error"
	}
	c.AbortWithStatusJSON(status, body)
}
