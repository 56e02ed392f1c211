package user

import (
	"context"
	"errors"
	"strings"
)

// OrderCounter reports how many orders a user has placed.
type OrderCounter interface {
	CountForUser(ctx context.Context, userID string) (int64, error)
}

// Eligibility decides whether a buyer qualifies for the first-order discount.
// A buyer with no identifiable history is treated as not eligible.
type Eligibility struct {
	Orders OrderCounter
}

// FirstOrderEligible reports true only for known users with zero prior orders.
func (e *Eligibility) FirstOrderEligible(ctx context.Context, userID string) (bool, error) {
	if e == nil || e.Orders == nil {
		return false, errors.New("eligibility service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return false, nil
	}
	count, err := e.Orders.CountForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
