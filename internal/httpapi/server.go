package httpapi

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/metrics"
	"storefront/internal/money"
	"storefront/internal/orders"
	"storefront/internal/session"
)

// SessionHeader carries the shopper's session id. Requests without one get
// a fresh id echoed back in the response header.
const SessionHeader = "X-Session-ID"

type Server struct {
	catalog  *catalog.Catalog
	sessions *session.Manager
	checkout *checkout.Service
	orders   orders.Reader
	metrics  *metrics.Registry
	currency money.Currency
	log      *zap.Logger
}

type Options struct {
	Catalog  *catalog.Catalog
	Sessions *session.Manager
	Checkout *checkout.Service
	Orders   orders.Reader
	// Metrics is optional; /metrics is served when set.
	Metrics  *metrics.Registry
	Currency money.Currency
	Log      *zap.Logger
}

func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	cur := opts.Currency
	if cur == "" {
		cur = money.INR
	}
	return &Server{
		catalog:  opts.Catalog,
		sessions: opts.Sessions,
		checkout: opts.Checkout,
		orders:   opts.Orders,
		metrics:  opts.Metrics,
		currency: cur,
		log:      log,
	}
}

// Router wires every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", SessionHeader},
		ExposeHeaders: []string{SessionHeader},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := r.Group("/api")
	api.GET("/categories", s.listCategories)
	api.GET("/products", s.listProducts)
	api.GET("/products/:id", s.getProduct)
	api.GET("/options", s.listOptions)
	api.GET("/quote", s.quote)
	api.GET("/locations", s.locationSuggestions)
	api.GET("/locations/detect", s.detectLocation)
	api.GET("/pincodes/:pincode", s.resolvePincode)

	shop := api.Group("", s.withSession())
	shop.GET("/cart", s.getCart)
	shop.DELETE("/cart", s.clearCart)
	shop.POST("/cart/items", s.addItem)
	shop.PATCH("/cart/items/:productId", s.updateItem)
	shop.DELETE("/cart/items/:productId", s.removeItem)
	shop.POST("/cart/coupon", s.applyCoupon)

	shop.POST("/session/login", s.login)
	shop.POST("/session/logout", s.logout)
	shop.GET("/addresses", s.listAddresses)
	shop.POST("/addresses", s.saveAddress)

	shop.GET("/checkout", s.beginCheckout)
	shop.POST("/checkout", s.completeCheckout)
	shop.GET("/orders/:id", s.getOrder)
	return r
}

// HTTPServer returns an http.Server with the timeouts the storefront runs with.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

const sessionKey = "session"

var validSessionID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func (s *Server) withSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			id = session.NewID()
		} else if !validSessionID.MatchString(id) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + SessionHeader})
			return
		}
		c.Header(SessionHeader, id)
		c.Set(sessionKey, s.sessions.Get(id))
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}
