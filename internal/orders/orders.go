package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"storefront/internal/cart"
	"storefront/internal/money"
	"storefront/internal/profile"
)

var ErrNotFound = errors.New("order not found")

// Order is a placed order. Lines and Totals are frozen at checkout.
type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Lines         []cart.Line     `json:"items"`
	Totals        cart.Totals     `json:"totals"`
	Address       profile.Address `json:"address"`
	PaymentMethod string          `json:"paymentMethod"`
	PaymentRef    string          `json:"paymentRef"`
	Currency      money.Currency  `json:"currency"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// NewID returns a fresh order id.
func NewID() string { return uuid.NewString() }

type Publisher interface {
	Publish(ctx context.Context, o Order) error
}

type Reader interface {
	Get(ctx context.Context, id string) (Order, error)
}

// MultiPublisher publishes to each publisher in turn and stops at the first error.
type MultiPublisher struct {
	pubs []Publisher
}

func NewMultiPublisher(pubs ...Publisher) *MultiPublisher {
	return &MultiPublisher{pubs: pubs}
}

func (m *MultiPublisher) Publish(ctx context.Context, o Order) error {
	for _, p := range m.pubs {
		if err := p.Publish(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

// FileStore writes one JSON document per order under baseDir and reads them back.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

var validID = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

func (f *FileStore) path(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", fmt.Errorf("%w: bad id %q", ErrNotFound, id)
	}
	return filepath.Join(f.baseDir, id+".json"), nil
}

func (f *FileStore) Publish(ctx context.Context, o Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.path(o.ID)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(&o, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (f *FileStore) Get(ctx context.Context, id string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	p, err := f.path(id)
	if err != nil {
		return Order{}, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("read order: %w", err)
	}
	var o Order
	if err := json.Unmarshal(data, &o); err != nil {
		return Order{}, fmt.Errorf("unmarshal order: %w", err)
	}
	return o, nil
}
