package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/profile"
	"storefront/internal/session"
)

type loginInput struct {
	UID   string `json:"uid" binding:"required"`
	Name  string `json:"displayName"`
	Email string `json:"email"`
}

// POST /api/session/login. Identity is established upstream; this only
// binds the verified user to the session.
func (s *Server) login(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	sess := currentSession(c)
	replayed, err := sess.Login(c.Request.Context(), session.User{ID: in.UID, Name: in.Name, Email: in.Email})
	if err != nil {
		s.log.Warn("login completed with errors", zap.String("session", sess.ID()), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"pendingReplayed": replayed, "cart": s.cartView(sess)})
}

func (s *Server) logout(c *gin.Context) {
	sess := currentSession(c)
	sess.Logout()
	c.JSON(http.StatusOK, s.cartView(sess))
}

func (s *Server) listAddresses(c *gin.Context) {
	sess := currentSession(c)
	if !sess.Authenticated() {
		s.fail(c, session.ErrNotAuthenticated)
		return
	}
	addrs := sess.Addresses()
	if addrs == nil {
		addrs = []profile.Address{}
	}
	c.JSON(http.StatusOK, addrs)
}

func (s *Server) saveAddress(c *gin.Context) {
	var in profile.Address
	if err := c.ShouldBindJSON(&in); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	saved, err := currentSession(c).SaveAddress(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}
