package profile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrUnknownMethod  = errors.New("unknown payment method")
)

// Payment methods offered at checkout.
const (
	MethodUPI        = "upi"
	MethodCard       = "card"
	MethodNetBanking = "netbanking"
)

// ValidMethod reports whether m is an offered payment method.
func ValidMethod(m string) bool {
	switch m {
	case MethodUPI, MethodCard, MethodNetBanking:
		return true
	}
	return false
}

type Address struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Mobile    string `json:"mobile"`
	House     string `json:"house"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// Validate requires the fields a courier needs.
func (a Address) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"fullName": a.FullName, "mobile": a.Mobile, "house": a.House,
		"city": a.City, "pincode": a.Pincode,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing %s", ErrInvalidAddress, strings.Join(missing, ", "))
	}
	return nil
}

// Default picks the address flagged default, else the first one.
func Default(addrs []Address) (Address, bool) {
	for _, a := range addrs {
		if a.IsDefault {
			return a, true
		}
	}
	if len(addrs) > 0 {
		return addrs[0], true
	}
	return Address{}, false
}

// Find returns the address with id.
func Find(addrs []Address, id string) (Address, bool) {
	for _, a := range addrs {
		if a.ID == id {
			return a, true
		}
	}
	return Address{}, false
}

// Store is the per-user document store holding addresses and the saved
// payment method.
type Store interface {
	Addresses(ctx context.Context, uid string) ([]Address, error)
	// SaveAddress appends a; the first address saved for a user becomes the default.
	SaveAddress(ctx context.Context, uid string, a Address) (Address, error)
	SavePaymentPreference(ctx context.Context, uid, method string) error
	PaymentPreference(ctx context.Context, uid string) (string, error)
}

type userDoc struct {
	addresses     []Address
	paymentMethod string
}

// MemoryStore is a thread-safe in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*userDoc
	// NewID generates address ids. Split for testability.
	NewID func() string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*userDoc),
		NewID: func() string { return fmt.Sprintf("%d", time.Now().UnixNano()) },
	}
}

func (s *MemoryStore) Addresses(ctx context.Context, uid string) ([]Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.users[uid]
	if !ok {
		return nil, nil
	}
	return append([]Address(nil), doc.addresses...), nil
}

func (s *MemoryStore) SaveAddress(ctx context.Context, uid string, a Address) (Address, error) {
	if err := ctx.Err(); err != nil {
		return Address{}, err
	}
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc(uid)
	if a.ID == "" {
		a.ID = s.NewID()
	}
	a.IsDefault = len(doc.addresses) == 0
	doc.addresses = append(doc.addresses, a)
	return a, nil
}

func (s *MemoryStore) SavePaymentPreference(ctx context.Context, uid, method string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ValidMethod(method) {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc(uid).paymentMethod = method
	return nil
}

func (s *MemoryStore) PaymentPreference(ctx context.Context, uid string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if doc, ok := s.users[uid]; ok {
		return doc.paymentMethod, nil
	}
	return "", nil
}

// doc must be called with mu held.
func (s *MemoryStore) doc(uid string) *userDoc {
	doc, ok := s.users[uid]
	if !ok {
		doc = &userDoc{}
		s.users[uid] = doc
	}
	return doc
}
