package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrPaymentDeclined = errors.New("payment declined")

// Charge is a request to collect amount (INR) from a user.
type Charge struct {
	UserID  string
	Amount  int64
	Method  string
	OrderID string
}

// Payment collects money for an order and returns a gateway reference.
type Payment interface {
	Charge(ctx context.Context, c Charge) (ref string, err error)
}

// MockGateway approves every charge after Latency unless Decline is set.
type MockGateway struct {
	Latency time.Duration
	Decline bool
}

func (g MockGateway) Charge(ctx context.Context, c Charge) (string, error) {
	if g.Latency > 0 {
		t := time.NewTimer(g.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	if g.Decline {
		return "", fmt.Errorf("%w: order %s", ErrPaymentDeclined, c.OrderID)
	}
	return "pay_" + uuid.NewString(), nil
}
