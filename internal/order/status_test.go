package order

import "testing"

func TestCanTransitionForwardOnly(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPendingPayment, StatusPaid, true},
		{StatusPaid, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusPendingPayment, StatusShipped, false},
		{StatusPaid, StatusPendingPayment, false},
		{StatusDelivered, StatusShipped, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestCancelOnlyBeforeShipment(t *testing.T) {
	if !CanTransition(StatusPendingPayment, StatusCanceled) {
		t.Fatalf("expected pending order to be cancelable")
	}
	if !CanTransition(StatusPaid, StatusCanceled) {
		t.Fatalf("expected paid order to be cancelable")
	}
	if CanTransition(StatusShipped, StatusCanceled) {
		t.Fatalf("shipped order must not be cancelable")
	}
	if CanTransition(StatusCanceled, StatusPaid) {
		t.Fatalf("canceled order must be terminal")
	}
}
