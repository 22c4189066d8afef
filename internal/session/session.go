package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/cart"
	"storefront/internal/model"
	"storefront/internal/profile"
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

type User struct {
	ID    string `json:"uid"`
	Name  string `json:"displayName,omitempty"`
	Email string `json:"email,omitempty"`
}

// PendingItem is an add-to-cart request made before login.
type PendingItem struct {
	Product   model.Product `json:"product"`
	UnitPrice int64         `json:"unitPrice"`
	Variant   cart.Variant  `json:"variant"`
}

// Session is one shopper's cart plus auth state. All methods are safe for
// concurrent use; mutations are applied one at a time.
type Session struct {
	mu        sync.Mutex
	id        string
	engine    *cart.Engine
	profiles  profile.Store
	user      *User
	pending   *PendingItem
	addresses []profile.Address
	coupon    string

	// checkingOut is set between BeginCheckout and FinishCheckout.
	checkingOut bool

	onPendingReplayed func()
}

// New wraps engine in a session. profiles may be nil when addresses are not needed.
func New(id string, engine *cart.Engine, profiles profile.Store) *Session {
	return &Session{id: id, engine: engine, profiles: profiles}
}

func (s *Session) ID() string { return s.id }

// AddToCart adds one unit to the cart, or, before login, parks the request
// as the single pending item and reports deferred.
func (s *Session) AddToCart(p model.Product, unitPrice int64, v cart.Variant) (lines []cart.Line, deferred bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		s.pending = &PendingItem{Product: p, UnitPrice: unitPrice, Variant: v}
		return s.engine.Lines(), true
	}
	return s.engine.Add(p, unitPrice, v), false
}

// Login authenticates the session and replays the pending item, if any,
// exactly once. Saved addresses are loaded afterwards; a failure there is
// returned but leaves the session logged in.
func (s *Session) Login(ctx context.Context, u User) (replayed bool, err error) {
	if u.ID == "" {
		return false, fmt.Errorf("login: %w: empty user id", ErrNotAuthenticated)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
	if p := s.pending; p != nil {
		s.pending = nil
		s.engine.Add(p.Product, p.UnitPrice, p.Variant)
		replayed = true
		if s.onPendingReplayed != nil {
			s.onPendingReplayed()
		}
	}
	if s.profiles == nil {
		return replayed, nil
	}
	addrs, err := s.profiles.Addresses(ctx, u.ID)
	if err != nil {
		return replayed, fmt.Errorf("load addresses: %w", err)
	}
	s.addresses = addrs
	return replayed, nil
}

// Logout clears the cart and forgets the user, the pending item, addresses
// and the applied coupon.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Clear()
	s.user = nil
	s.pending = nil
	s.addresses = nil
	s.coupon = ""
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// User returns the logged-in user.
func (s *Session) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Pending returns the parked add-to-cart request.
func (s *Session) Pending() (PendingItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return PendingItem{}, false
	}
	return *s.pending, true
}

func (s *Session) UpdateQuantity(productID, delta int, v *cart.Variant) []cart.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.UpdateQuantity(productID, delta, v)
}

func (s *Session) Remove(productID int, v *cart.Variant) []cart.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Remove(productID, v)
}

func (s *Session) Clear() []cart.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Clear()
}

func (s *Session) Lines() []cart.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Lines()
}

// ApplyCoupon remembers code for later totals. Unknown codes are kept too;
// they simply discount nothing.
func (s *Session) ApplyCoupon(code string) cart.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupon = code
	return s.engine.Totals(code)
}

func (s *Session) Coupon() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coupon
}

// Totals uses the applied coupon.
func (s *Session) Totals() cart.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Totals(s.coupon)
}

// View is a consistent read of the cart.
type View struct {
	Lines  []cart.Line `json:"items"`
	Totals cart.Totals `json:"totals"`
	Seq    int64       `json:"seq"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *Session) view() View {
	return View{Lines: s.engine.Lines(), Totals: s.engine.Totals(s.coupon), Seq: s.engine.Seq()}
}

// BeginCheckout marks the session as paying and returns the cart being paid
// for. Only one checkout may be in flight per session; a second one gets
// ErrCheckoutInProgress. Every successful call must be paired with
// FinishCheckout.
func (s *Session) BeginCheckout() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return View{}, ErrNotAuthenticated
	}
	if s.checkingOut {
		return View{}, ErrCheckoutInProgress
	}
	s.checkingOut = true
	return s.view(), nil
}

func (s *Session) checkoutInFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkingOut
}

// FinishCheckout ends the checkout started with paidFor. When paid, the
// cart is cleared if it is unchanged since paidFor; otherwise only the paid
// quantities are taken out and lines added during payment stay. It reports
// whether the cart was cleared.
func (s *Session) FinishCheckout(paidFor View, paid bool) (cleared bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkingOut = false
	if !paid {
		return false
	}
	if s.engine.Seq() == paidFor.Seq {
		s.engine.Clear()
		return true
	}
	current := make(map[cart.Key]bool, s.engine.Len())
	for _, l := range s.engine.Lines() {
		current[l.Key()] = true
	}
	for _, l := range paidFor.Lines {
		if !current[l.Key()] {
			continue
		}
		v := l.Variant()
		s.engine.UpdateQuantity(l.ProductID, -l.Quantity, &v)
	}
	return false
}

func (s *Session) Addresses() []profile.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]profile.Address(nil), s.addresses...)
}

// SaveAddress stores a for the logged-in user and refreshes the cached list.
func (s *Session) SaveAddress(ctx context.Context, a profile.Address) (profile.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return profile.Address{}, ErrNotAuthenticated
	}
	if s.profiles == nil {
		return profile.Address{}, errors.New("no profile store")
	}
	saved, err := s.profiles.SaveAddress(ctx, s.user.ID, a)
	if err != nil {
		return profile.Address{}, err
	}
	s.addresses = append(s.addresses, saved)
	return saved, nil
}
