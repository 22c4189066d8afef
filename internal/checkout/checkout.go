package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/metrics"
	"storefront/internal/money"
	"storefront/internal/orders"
	"storefront/internal/profile"
	"storefront/internal/session"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrAddressRequired = errors.New("delivery address required")
	ErrUnknownMethod   = errors.New("unknown payment method")
)

// Summary is what the checkout page shows before payment.
type Summary struct {
	Lines     []cart.Line       `json:"items"`
	Totals    cart.Totals       `json:"totals"`
	Addresses []profile.Address `json:"addresses"`
	// DefaultAddressID is preselected: the default address, else the first.
	DefaultAddressID string `json:"defaultAddressId,omitempty"`
}

type Request struct {
	AddressID     string `json:"addressId"`
	PaymentMethod string `json:"paymentMethod"`
}

type Service struct {
	payment   Payment
	publisher orders.Publisher
	profiles  profile.Store
	currency  money.Currency
	metrics   *metrics.Registry
	log       *zap.Logger
	now       func() time.Time
}

type Options struct {
	Payment   Payment
	Publisher orders.Publisher
	Profiles  profile.Store
	Currency  money.Currency
	// Metrics is optional.
	Metrics *metrics.Registry
	Log     *zap.Logger
}

func NewService(opts Options) *Service {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	cur := opts.Currency
	if cur == "" {
		cur = money.INR
	}
	return &Service{
		payment:   opts.Payment,
		publisher: opts.Publisher,
		profiles:  opts.Profiles,
		currency:  cur,
		metrics:   opts.Metrics,
		log:       log,
		now:       time.Now,
	}
}

// Begin returns the checkout summary. An empty cart yields ErrEmptyCart;
// callers send the shopper back to the cart view.
func (s *Service) Begin(sess *session.Session) (Summary, error) {
	v := sess.View()
	if len(v.Lines) == 0 {
		return Summary{}, ErrEmptyCart
	}
	sum := Summary{Lines: v.Lines, Totals: v.Totals, Addresses: sess.Addresses()}
	if a, ok := profile.Default(sum.Addresses); ok {
		sum.DefaultAddressID = a.ID
	}
	return sum, nil
}

// Complete charges the cart's final total and places the order. Only one
// Complete runs per session at a time. The cart is cleared exactly once,
// after the payment succeeds; items added while the payment was pending are
// kept. On any earlier failure the cart is left untouched. If publishing fails after payment, the paid order is
// returned together with the error.
func (s *Service) Complete(ctx context.Context, sess *session.Session, req Request) (orders.Order, error) {
	o, err := s.complete(ctx, sess, req)
	if err != nil {
		s.fail(err)
		return o, err
	}
	if s.metrics != nil {
		s.metrics.CheckoutCompleted.Inc()
		s.metrics.OrderValue.Observe(float64(o.Totals.FinalTotal))
	}
	s.log.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int64("final_total", o.Totals.FinalTotal),
		zap.String("display_total", money.Format(o.Totals.FinalTotal, s.currency)))
	return o, nil
}

func (s *Service) complete(ctx context.Context, sess *session.Session, req Request) (orders.Order, error) {
	v, err := sess.BeginCheckout()
	if err != nil {
		return orders.Order{}, err
	}
	o, err := s.charge(ctx, sess, v, req)
	if err != nil {
		sess.FinishCheckout(v, false)
		return orders.Order{}, err
	}

	// Paid: from here on the paid lines are consumed even if bookkeeping fails.
	if !sess.FinishCheckout(v, true) {
		s.log.Info("cart changed during payment, kept unpaid lines", zap.String("order_id", o.ID))
	}

	if err := s.publisher.Publish(ctx, o); err != nil {
		s.log.Error("publish order failed", zap.String("order_id", o.ID), zap.String("payment_ref", o.PaymentRef), zap.Error(err))
		return o, fmt.Errorf("publish order: %w", err)
	}
	if s.profiles != nil {
		if err := s.profiles.SavePaymentPreference(ctx, o.UserID, req.PaymentMethod); err != nil {
			s.log.Warn("save payment preference failed", zap.String("user_id", o.UserID), zap.Error(err))
		}
	}
	return o, nil
}

// charge validates the request against v and collects its final total.
func (s *Service) charge(ctx context.Context, sess *session.Session, v session.View, req Request) (orders.Order, error) {
	user, ok := sess.User()
	if !ok {
		return orders.Order{}, session.ErrNotAuthenticated
	}
	if len(v.Lines) == 0 {
		return orders.Order{}, ErrEmptyCart
	}
	addr, ok := profile.Find(sess.Addresses(), req.AddressID)
	if !ok {
		return orders.Order{}, ErrAddressRequired
	}
	if !profile.ValidMethod(req.PaymentMethod) {
		return orders.Order{}, fmt.Errorf("%w: %q", ErrUnknownMethod, req.PaymentMethod)
	}

	o := orders.Order{
		ID:            orders.NewID(),
		UserID:        user.ID,
		Lines:         v.Lines,
		Totals:        v.Totals,
		Address:       addr,
		PaymentMethod: req.PaymentMethod,
		Currency:      s.currency,
	}
	ref, err := s.payment.Charge(ctx, Charge{UserID: user.ID, Amount: v.Totals.FinalTotal, Method: req.PaymentMethod, OrderID: o.ID})
	if err != nil {
		return orders.Order{}, fmt.Errorf("charge: %w", err)
	}
	o.PaymentRef = ref
	o.CreatedAt = s.now().UTC()
	return o, nil
}

func (s *Service) fail(err error) {
	if s.metrics == nil {
		return
	}
	reason := "error"
	switch {
	case errors.Is(err, ErrEmptyCart):
		reason = "empty_cart"
	case errors.Is(err, ErrAddressRequired):
		reason = "no_address"
	case errors.Is(err, session.ErrNotAuthenticated):
		reason = "unauthenticated"
	case errors.Is(err, session.ErrCheckoutInProgress):
		reason = "in_progress"
	case errors.Is(err, ErrPaymentDeclined):
		reason = "declined"
	case errors.Is(err, ErrUnknownMethod):
		reason = "bad_method"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		reason = "cancelled"
	}
	s.metrics.CheckoutFailed.WithLabelValues(reason).Inc()
}
