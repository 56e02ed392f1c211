package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vedant-labs/backend-bazaar/internal/coupon"
	"github.com/vedant-labs/backend-bazaar/internal/pricing"
)

type stubProducts struct {
	products map[string]ProductInfo
}

func (s stubProducts) Lookup(_ context.Context, id string) (ProductInfo, error) {
	info, ok := s.products[id]
	if !ok {
		return ProductInfo{}, ErrNotFound
	}
	return info, nil
}

type stubEligibility struct{ eligible bool }

func (s stubEligibility) FirstOrderEligible(context.Context, string) (bool, error) {
	return s.eligible, nil
}

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reg, err := coupon.NewRegistry(coupon.Defaults())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	svc := &Service{
		Store:  &Store{R: client},
		Engine: pricing.New(pricing.Config{}, reg),
		Products: stubProducts{products: map[string]ProductInfo{
			"sku-1": {ID: "sku-1", Title: "Desk Lamp", Price: 500, Active: true},
			"sku-2": {ID: "sku-2", Title: "Notebook", Price: 120, Active: true},
			"sku-3": {ID: "sku-3", Title: "Retired", Price: 90, Active: false},
		}},
		Eligibility: stubEligibility{eligible: false},
	}
	return svc, mr
}

func TestEnsureReturnsSameCartForUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Ensure(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := svc.Ensure(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same cart, got %s and %s", first.ID, second.ID)
	}
}

func TestAddUpdateRemoveItem(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c, err := svc.Ensure(ctx, "", "anon-1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	c, err = svc.AddItem(ctx, c.ID, "sku-1", 2)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	c, err = svc.AddItem(ctx, c.ID, "sku-1", 1)
	if err != nil {
		t.Fatalf("add increment: %v", err)
	}
	if len(c.Items) != 1 || c.Items[0].Qty != 3 {
		t.Fatalf("expected merged line with qty 3, got %+v", c.Items)
	}
	if got := c.Subtotal(); got != 1500 {
		t.Fatalf("expected subtotal 1500, got %d", got)
	}

	c, err = svc.UpdateQty(ctx, c.ID, "sku-1", 1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.Items[0].Qty != 1 {
		t.Fatalf("expected qty 1, got %d", c.Items[0].Qty)
	}

	c, err = svc.RemoveItem(ctx, c.ID, "sku-1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(c.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", c.Items)
	}
}

func TestAddItemRejectsInactiveProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c, _ := svc.Ensure(ctx, "", "anon-2")

	if _, err := svc.AddItem(ctx, c.ID, "sku-3", 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestApplyCouponKeepsPreviousOnFailure(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c, _ := svc.Ensure(ctx, "", "anon-3")
	c, err := svc.AddItem(ctx, c.ID, "sku-1", 2)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	c, app, err := svc.ApplyCoupon(ctx, c.ID, "save50")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if app.Code != "SAVE50" || app.Amount != 50 {
		t.Fatalf("unexpected application: %+v", app)
	}
	if c.CouponCode != "SAVE50" {
		t.Fatalf("expected SAVE50 stored, got %q", c.CouponCode)
	}

	// FESTIVE20 needs a 1999 minimum; the failure must not clear SAVE50.
	if _, _, err := svc.ApplyCoupon(ctx, c.ID, "FESTIVE20"); err == nil {
		t.Fatalf("expected minimum error")
	}
	c, err = svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.CouponCode != "SAVE50" {
		t.Fatalf("expected previous coupon preserved, got %q", c.CouponCode)
	}
}

func TestMergeCombinesGuestIntoUserCart(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	guest, _ := svc.Ensure(ctx, "", "anon-4")
	guest, _ = svc.AddItem(ctx, guest.ID, "sku-1", 1)
	guest, _ = svc.AddItem(ctx, guest.ID, "sku-2", 2)

	owned, _ := svc.Ensure(ctx, "user-9", "")
	owned, _ = svc.AddItem(ctx, owned.ID, "sku-1", 1)

	merged, err := svc.Merge(ctx, guest.ID, "user-9")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.ID != owned.ID {
		t.Fatalf("expected merge into user cart %s, got %s", owned.ID, merged.ID)
	}
	if len(merged.Items) != 2 {
		t.Fatalf("expected 2 lines, got %+v", merged.Items)
	}
	for _, line := range merged.Items {
		if line.ProductID == "sku-1" && line.Qty != 2 {
			t.Fatalf("expected sku-1 qty 2, got %d", line.Qty)
		}
	}
	if _, err := svc.Get(ctx, guest.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected guest cart deleted, got %v", err)
	}
}

func TestSummaryUsesCartCoupon(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c, _ := svc.Ensure(ctx, "", "anon-5")
	c, _ = svc.AddItem(ctx, c.ID, "sku-1", 2)
	c, _, err := svc.ApplyCoupon(ctx, c.ID, "SAVE50")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	res, err := svc.Summary(ctx, c, pricing.MethodOnline)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if res.Discount != 50 || res.DiscountSource != pricing.SourceCoupon {
		t.Fatalf("unexpected summary: %+v", res)
	}
	if res.EffectiveSubtotal != 950 {
		t.Fatalf("expected effective subtotal 950, got %d", res.EffectiveSubtotal)
	}
}
