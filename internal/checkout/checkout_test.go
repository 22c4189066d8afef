package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/cart"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/orders"
	"storefront/internal/profile"
	"storefront/internal/session"
	"storefront/internal/state"
)

var harmony = model.Product{ID: 1, Name: "Abstract Harmony", Category: "Abstract", Price: 3599, MRP: 4999}

type recordingPublisher struct {
	orders []orders.Order
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, o orders.Order) error {
	if r.err != nil {
		return r.err
	}
	r.orders = append(r.orders, o)
	return nil
}

// countingObserver counts clear events on the cart.
type countingObserver struct{ clears int }

func (c *countingObserver) CartChanged(ev cart.Event, _ []cart.Line) {
	if ev.Op == cart.OpClear {
		c.clears++
	}
}

type fixture struct {
	svc      *Service
	sess     *session.Session
	pub      *recordingPublisher
	profiles *profile.MemoryStore
	clears   *countingObserver
	reg      *metrics.Registry
	addrID   string
}

func newFixture(t *testing.T, gw Payment) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{pub: &recordingPublisher{}, profiles: profile.NewMemoryStore(), clears: &countingObserver{}, reg: metrics.NewRegistry()}
	a, err := f.profiles.SaveAddress(ctx, "u1", profile.Address{FullName: "Asha", Mobile: "9876543210", House: "12", City: "Hyderabad", Pincode: "500081"})
	require.NoError(t, err)
	f.addrID = a.ID

	f.sess = session.New("s1", cart.NewEngine(cart.WithObserver(f.clears)), f.profiles)
	_, err = f.sess.Login(ctx, session.User{ID: "u1"})
	require.NoError(t, err)
	f.svc = NewService(Options{Payment: gw, Publisher: f.pub, Profiles: f.profiles, Metrics: f.reg})
	f.svc.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return f
}

func TestBegin_EmptyCart(t *testing.T) {
	f := newFixture(t, MockGateway{})
	_, err := f.svc.Begin(f.sess)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestBegin_Summary(t *testing.T) {
	f := newFixture(t, MockGateway{})
	f.sess.AddToCart(harmony, 3599, cart.Variant{})
	f.sess.ApplyCoupon("WELCOMESWE")
	sum, err := f.svc.Begin(f.sess)
	require.NoError(t, err)
	assert.Len(t, sum.Lines, 1)
	assert.Equal(t, int64(3099), sum.Totals.FinalTotal)
	assert.Equal(t, f.addrID, sum.DefaultAddressID)
}

func TestComplete_ChargesClearsOncePublishes(t *testing.T) {
	f := newFixture(t, MockGateway{})
	f.sess.AddToCart(harmony, 3599, cart.Variant{})
	f.sess.AddToCart(harmony, 3599, cart.Variant{})
	f.sess.ApplyCoupon("save20")

	o, err := f.svc.Complete(context.Background(), f.sess, Request{AddressID: f.addrID, PaymentMethod: profile.MethodCard})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Contains(t, o.PaymentRef, "pay_")
	assert.Equal(t, int64(7198-1439), o.Totals.FinalTotal)
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, f.addrID, o.Address.ID)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, 2, o.Lines[0].Quantity)

	assert.Empty(t, f.sess.Lines())
	assert.Equal(t, 1, f.clears.clears)
	require.Len(t, f.pub.orders, 1)
	assert.Equal(t, o.ID, f.pub.orders[0].ID)

	m, err := f.profiles.PaymentPreference(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, profile.MethodCard, m)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.reg.CheckoutCompleted))
}

func TestComplete_DeclineKeepsCart(t *testing.T) {
	f := newFixture(t, MockGateway{Decline: true})
	f.sess.AddToCart(harmony, 3599, cart.Variant{})

	_, err := f.svc.Complete(context.Background(), f.sess, Request{AddressID: f.addrID, PaymentMethod: profile.MethodUPI})
	assert.ErrorIs(t, err, ErrPaymentDeclined)
	assert.Len(t, f.sess.Lines(), 1)
	assert.Zero(t, f.clears.clears)
	assert.Empty(t, f.pub.orders)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.reg.CheckoutFailed.WithLabelValues("declined")))
}

func TestComplete_Preconditions(t *testing.T) {
	f := newFixture(t, MockGateway{})
	ctx := context.Background()

	_, err := f.svc.Complete(ctx, f.sess, Request{AddressID: f.addrID, PaymentMethod: profile.MethodUPI})
	assert.ErrorIs(t, err, ErrEmptyCart)

	f.sess.AddToCart(harmony, 3599, cart.Variant{})
	_, err = f.svc.Complete(ctx, f.sess, Request{AddressID: "nope", PaymentMethod: profile.MethodUPI})
	assert.ErrorIs(t, err, ErrAddressRequired)

	_, err = f.svc.Complete(ctx, f.sess, Request{AddressID: f.addrID, PaymentMethod: "cash"})
	assert.ErrorIs(t, err, ErrUnknownMethod)

	anon := session.New("s2", cart.NewEngine(), nil)
	_, err = f.svc.Complete(ctx, anon, Request{AddressID: f.addrID, PaymentMethod: profile.MethodUPI})
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)

	assert.Len(t, f.sess.Lines(), 1)
	assert.Zero(t, f.clears.clears)
}

func TestComplete_CancelledDuringPayment(t *testing.T) {
	f := newFixture(t, MockGateway{Latency: time.Second})
	f.sess.AddToCart(harmony, 3599, cart.Variant{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.svc.Complete(ctx, f.sess, Request{AddressID: f.addrID, PaymentMethod: profile.MethodUPI})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, f.sess.Lines(), 1)
}

func TestComplete_PublishFailureAfterPayment(t *testing.T) {
	f := newFixture(t, MockGateway{})
	f.pub.err = errors.New("disk full")
	f.sess.AddToCart(harmony, 3599, cart.Variant{})

	o, err := f.svc.Complete(context.Background(), f.sess, Request{AddressID: f.addrID, PaymentMethod: profile.MethodUPI})
	assert.Error(t, err)
	assert.NotEmpty(t, o.PaymentRef)
	assert.Empty(t, f.sess.Lines())
	assert.Equal(t, 1, f.clears.clears)
}

func TestComplete_WithManagerPersistsClearedCart(t *testing.T) {
	st := state.NewInMemoryStore()
	profiles := profile.NewMemoryStore()
	a, err := profiles.SaveAddress(context.Background(), "u1", profile.Address{FullName: "Asha", Mobile: "1", House: "2", City: "Pune", Pincode: "411001"})
	require.NoError(t, err)
	m := session.NewManager(session.Options{Store: st, Profiles: profiles})
	sess := m.Get("s1")
	_, err = sess.Login(context.Background(), session.User{ID: "u1"})
	require.NoError(t, err)
	sess.AddToCart(harmony, 3599, cart.Variant{})

	svc := NewService(Options{Payment: MockGateway{}, Publisher: &recordingPublisher{}, Profiles: profiles})
	_, err = svc.Complete(context.Background(), sess, Request{AddressID: a.ID, PaymentMethod: profile.MethodNetBanking})
	require.NoError(t, err)

	rec, ok, err := st.Get(state.CartKey("s1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, rec.Lines)
	assert.Equal(t, int64(2), rec.Seq)
}

// gatedGateway blocks every charge until release is closed.
type gatedGateway struct {
	entered chan struct{}
	release chan struct{}
}

func newGatedGateway() *gatedGateway {
	return &gatedGateway{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedGateway) Charge(ctx context.Context, c Charge) (string, error) {
	g.entered <- struct{}{}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-g.release:
	}
	return "pay_" + c.OrderID, nil
}

type result struct {
	order orders.Order
	err   error
}

func (f *fixture) completeAsync(req Request) <-chan result {
	out := make(chan result, 1)
	go func() {
		o, err := f.svc.Complete(context.Background(), f.sess, req)
		out <- result{o, err}
	}()
	return out
}

func TestComplete_OneCheckoutPerSession(t *testing.T) {
	gw := newGatedGateway()
	f := newFixture(t, gw)
	f.sess.AddToCart(harmony, 3599, cart.Variant{})
	req := Request{AddressID: f.addrID, PaymentMethod: profile.MethodUPI}

	first := f.completeAsync(req)
	<-gw.entered

	_, err := f.svc.Complete(context.Background(), f.sess, req)
	assert.ErrorIs(t, err, session.ErrCheckoutInProgress)

	close(gw.release)
	res := <-first
	require.NoError(t, res.err)
	assert.Equal(t, "pay_"+res.order.ID, res.order.PaymentRef)

	assert.Equal(t, 1, f.clears.clears)
	assert.Len(t, f.pub.orders, 1)
	assert.Empty(t, f.sess.Lines())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.reg.CheckoutFailed.WithLabelValues("in_progress")))

	// The guard is released once the checkout finishes.
	_, err = f.svc.Complete(context.Background(), f.sess, req)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestComplete_ItemsAddedDuringPaymentAreKept(t *testing.T) {
	gw := newGatedGateway()
	f := newFixture(t, gw)
	lippan := model.Product{ID: 3, Name: "Lippan Soul", Price: 3599, MRP: 4500}
	f.sess.AddToCart(harmony, 3599, cart.Variant{})

	first := f.completeAsync(Request{AddressID: f.addrID, PaymentMethod: profile.MethodCard})
	<-gw.entered
	f.sess.AddToCart(harmony, 3599, cart.Variant{})
	f.sess.AddToCart(lippan, 3599, cart.Variant{})
	close(gw.release)

	res := <-first
	require.NoError(t, res.err)
	require.Len(t, res.order.Lines, 1)
	assert.Equal(t, 1, res.order.Lines[0].Quantity)
	assert.Equal(t, int64(3599), res.order.Totals.Subtotal)

	lines := f.sess.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, harmony.ID, lines[0].ProductID)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, lippan.ID, lines[1].ProductID)
	assert.Zero(t, f.clears.clears)
}

func TestComplete_FailureReleasesCheckout(t *testing.T) {
	f := newFixture(t, MockGateway{Decline: true})
	f.sess.AddToCart(harmony, 3599, cart.Variant{})
	req := Request{AddressID: f.addrID, PaymentMethod: profile.MethodUPI}

	_, err := f.svc.Complete(context.Background(), f.sess, req)
	require.ErrorIs(t, err, ErrPaymentDeclined)
	_, err = f.svc.Complete(context.Background(), f.sess, req)
	assert.ErrorIs(t, err, ErrPaymentDeclined)
}
