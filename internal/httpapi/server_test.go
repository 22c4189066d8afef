package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/metrics"
	"storefront/internal/orders"
	"storefront/internal/profile"
	"storefront/internal/session"
	"storefront/internal/state"
)

func init() { gin.SetMode(gin.TestMode) }

type harness struct {
	t      *testing.T
	router *gin.Engine
	sid    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	profiles := profile.NewMemoryStore()
	reg := metrics.NewRegistry()
	store, err := orders.NewFileStore(t.TempDir())
	require.NoError(t, err)
	mgr := session.NewManager(session.Options{Store: state.NewInMemoryStore(), Profiles: profiles, Metrics: reg})
	svc := checkout.NewService(checkout.Options{Payment: checkout.MockGateway{}, Publisher: store, Profiles: profiles, Metrics: reg})
	srv := New(Options{Catalog: catalog.Default(), Sessions: mgr, Checkout: svc, Orders: store, Metrics: reg})
	return &harness{t: t, router: srv.Router(), sid: "test-session"}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if h.sid != "" {
		req.Header.Set(SessionHeader, h.sid)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type cartResp struct {
	Items []struct {
		ID       int    `json:"id"`
		Price    int64  `json:"price"`
		Quantity int    `json:"quantity"`
		Size     string `json:"selectedSize"`
		Frame    string `json:"selectedFrame"`
	} `json:"items"`
	Totals struct {
		Subtotal       int64 `json:"subtotal"`
		CouponDiscount int64 `json:"couponDiscount"`
		FinalTotal     int64 `json:"finalTotal"`
		Count          int   `json:"count"`
	} `json:"totals"`
	Display map[string]string `json:"display"`
}

func TestCatalogRoutes(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/products?category=lippan%20art", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]map[string]any](t, rec))

	rec = h.do(http.MethodGet, "/api/products/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(http.MethodGet, "/api/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/quote?product=3&size=18x24&surface=framed&frame=black", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	q := decode[map[string]any](t, rec)
	// 3599*1.6 + 1500 + 800 = 8058.4
	assert.Equal(t, 8058.0, q["price"])

	rec = h.do(http.MethodGet, "/api/options", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/locations?q=hyd", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)
	rec = h.do(http.MethodGet, "/api/locations/detect?q=nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(http.MethodGet, "/api/pincodes/400001", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCartFlow_AuthGateAndCheckout(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": 3})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = h.do(http.MethodPost, "/api/session/login", map[string]any{"uid": "u1"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[map[string]any](t, rec)
	assert.Equal(t, true, login["pendingReplayed"])

	rec = h.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": 3, "size": "18x24", "surface": "framed", "frame": "black"})
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[cartResp](t, rec)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "Standard", c.Items[0].Size)
	assert.Equal(t, int64(8058), c.Items[1].Price)
	assert.Equal(t, "Black", c.Items[1].Frame)

	rec = h.do(http.MethodPatch, "/api/cart/items/3", map[string]any{"delta": 2, "variant": map[string]string{}})
	require.Equal(t, http.StatusOK, rec.Code)
	c = decode[cartResp](t, rec)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 4, c.Totals.Count)

	rec = h.do(http.MethodPost, "/api/cart/coupon", map[string]any{"code": "welcomeswe"})
	require.Equal(t, http.StatusOK, rec.Code)
	coupon := decode[map[string]any](t, rec)
	assert.Equal(t, true, coupon["valid"])

	rec = h.do(http.MethodGet, "/api/cart", nil)
	c = decode[cartResp](t, rec)
	assert.Equal(t, int64(3*3599+8058), c.Totals.Subtotal)
	assert.Equal(t, int64(500), c.Totals.CouponDiscount)
	assert.Equal(t, "₹18,355", c.Display["finalTotal"])

	rec = h.do(http.MethodPost, "/api/checkout", map[string]any{"addressId": "x", "paymentMethod": "upi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/addresses", map[string]any{"fullName": "Asha", "mobile": "9876543210", "house": "12", "city": "Hyderabad", "pincode": "500081"})
	require.Equal(t, http.StatusCreated, rec.Code)
	addr := decode[profile.Address](t, rec)
	assert.True(t, addr.IsDefault)

	rec = h.do(http.MethodGet, "/api/checkout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, "/api/checkout", map[string]any{"addressId": addr.ID, "paymentMethod": "upi"})
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[orders.Order](t, rec)
	assert.Equal(t, int64(18355), order.Totals.FinalTotal)

	rec = h.do(http.MethodGet, "/api/cart", nil)
	assert.Empty(t, decode[cartResp](t, rec).Items)

	rec = h.do(http.MethodGet, "/api/orders/"+order.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/checkout", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "/cart", decode[map[string]any](t, rec)["redirect"])
}

func TestRemoveAndLogout(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodPost, "/api/session/login", map[string]any{"uid": "u1"})
	h.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": 2})
	h.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": 2, "frame": "gold"})

	rec := h.do(http.MethodDelete, "/api/cart/items/2?size=Standard&frame=None", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[cartResp](t, rec).Items, 1)

	rec = h.do(http.MethodPost, "/api/session/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[cartResp](t, rec).Items)

	rec = h.do(http.MethodGet, "/api/addresses", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionHeader(t *testing.T) {
	h := newHarness(t)
	h.sid = ""
	rec := h.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(SessionHeader))

	h.sid = "../../etc"
	rec = h.do(http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/healthz", nil).Code)
	h.do(http.MethodPost, "/api/session/login", map[string]any{"uid": "u1"})
	h.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": 2})
	rec := h.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `storefront_cart_mutations_total{op="add"} 1`)
}

func TestQuickAddAndFirstOptionsAreSeparateLines(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/session/login", map[string]any{"uid": "u1"}).Code)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": 3}).Code)
	rec := h.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": 3, "size": "12x18", "surface": "canvas", "frame": "none"})
	require.Equal(t, http.StatusOK, rec.Code)

	c := decode[cartResp](t, rec)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "Standard", c.Items[0].Size)
	assert.Equal(t, "None", c.Items[0].Frame)
	assert.Equal(t, "12 × 18 inches", c.Items[1].Size)
	assert.Equal(t, "No Frame", c.Items[1].Frame)
	assert.Equal(t, c.Items[0].Price, c.Items[1].Price)
}

func TestStatusOf_CheckoutInProgress(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusOf(session.ErrCheckoutInProgress))
}
