package user

import (
	"context"
	"errors"
	"testing"
)

type stubCounter struct {
	counts map[string]int64
	err    error
}

func (s stubCounter) CountForUser(_ context.Context, userID string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.counts[userID], nil
}

func TestFirstOrderEligible(t *testing.T) {
	e := &Eligibility{Orders: stubCounter{counts: map[string]int64{"veteran": 3}}}
	ctx := context.Background()

	eligible, err := e.FirstOrderEligible(ctx, "newcomer")
	if err != nil {
		t.Fatalf("eligible check: %v", err)
	}
	if !eligible {
		t.Fatalf("expected new user to be eligible")
	}

	eligible, err = e.FirstOrderEligible(ctx, "veteran")
	if err != nil {
		t.Fatalf("veteran check: %v", err)
	}
	if eligible {
		t.Fatalf("expected repeat buyer to be ineligible")
	}
}

func TestAnonymousBuyerNotEligible(t *testing.T) {
	e := &Eligibility{Orders: stubCounter{}}
	eligible, err := e.FirstOrderEligible(context.Background(), "  ")
	if err != nil {
		t.Fatalf("anon check: %v", err)
	}
	if eligible {
		t.Fatalf("anonymous buyers default to not eligible")
	}
}

func TestEligibilityPropagatesStoreError(t *testing.T) {
	e := &Eligibility{Orders: stubCounter{err: errors.New("db down")}}
	if _, err := e.FirstOrderEligible(context.Background(), "user"); err == nil {
		t.Fatalf("expected error")
	}
}
