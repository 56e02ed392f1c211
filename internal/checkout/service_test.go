package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vedant-labs/backend-bazaar/internal/cart"
	"github.com/vedant-labs/backend-bazaar/internal/coupon"
	"github.com/vedant-labs/backend-bazaar/internal/order"
	"github.com/vedant-labs/backend-bazaar/internal/pricing"
)

type memStore struct {
	placed []order.Order
	err    error
}

func (m *memStore) PlaceOrder(_ context.Context, o order.Order) (order.Order, error) {
	if m.err != nil {
		return order.Order{}, m.err
	}
	o.Status = order.StatusPendingPayment
	m.placed = append(m.placed, o)
	return o, nil
}

type memTasks struct {
	enqueued []string
}

func (m *memTasks) EnqueueOrderConfirmation(_ context.Context, orderID, _ string) error {
	m.enqueued = append(m.enqueued, orderID)
	return nil
}

type stubProducts struct{}

func (stubProducts) Lookup(_ context.Context, id string) (cart.ProductInfo, error) {
	return cart.ProductInfo{ID: id, Title: "Widget", Price: 500, Active: true}, nil
}

type eligibleAlways struct{}

func (eligibleAlways) FirstOrderEligible(context.Context, string) (bool, error) { return true, nil }

func newTestCheckout(t *testing.T) (*Service, *memStore, *memTasks) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reg, err := coupon.NewRegistry(coupon.Defaults())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	engine := pricing.New(pricing.Config{}, reg)
	cartSvc := &cart.Service{
		Store:       &cart.Store{R: client},
		Engine:      engine,
		Products:    stubProducts{},
		Eligibility: eligibleAlways{},
	}
	store := &memStore{}
	tasks := &memTasks{}
	svc := &Service{
		Store:    store,
		CartSvc:  cartSvc,
		Engine:   engine,
		Tasks:    tasks,
		Log:      zerolog.Nop(),
		Currency: "INR",
	}
	return svc, store, tasks
}

func TestQuoteAppliesFirstOrderDiscount(t *testing.T) {
	svc, _, _ := newTestCheckout(t)
	ctx := context.Background()
	c, err := svc.CartSvc.Ensure(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := svc.CartSvc.AddItem(ctx, c.ID, "sku-1", 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	result, err := svc.Quote(ctx, "user-1", QuoteRequest{CartID: c.ID, Method: "online"})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if result.Subtotal != 1000 || result.Discount != 100 || result.DiscountSource != pricing.SourceFirstOrder {
		t.Fatalf("unexpected quote: %+v", result)
	}
	if result.Total != 1087 {
		t.Fatalf("expected total 1087, got %d", result.Total)
	}
}

func TestCreatePlacesOrderAndClearsCart(t *testing.T) {
	svc, store, tasks := newTestCheckout(t)
	ctx := context.Background()
	c, _ := svc.CartSvc.Ensure(ctx, "user-1", "")
	if _, err := svc.CartSvc.AddItem(ctx, c.ID, "sku-1", 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := svc.Create(ctx, "user-1", Input{CartID: c.ID, Method: "cod"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.Status != string(order.StatusPendingPayment) {
		t.Fatalf("unexpected status %s", out.Status)
	}
	if len(store.placed) != 1 {
		t.Fatalf("expected one placed order")
	}
	placed := store.placed[0]
	if placed.Method != pricing.MethodCOD || placed.CODFee != 25 {
		t.Fatalf("unexpected order: %+v", placed)
	}
	if len(tasks.enqueued) != 1 || tasks.enqueued[0] != out.OrderID {
		t.Fatalf("expected confirmation task for %s, got %v", out.OrderID, tasks.enqueued)
	}
	if _, err := svc.CartSvc.Get(ctx, c.ID); !errors.Is(err, cart.ErrNotFound) {
		t.Fatalf("expected cart cleared, got %v", err)
	}
}

func TestCreateRejectsEmptyCart(t *testing.T) {
	svc, _, _ := newTestCheckout(t)
	ctx := context.Background()
	c, _ := svc.CartSvc.Ensure(ctx, "user-1", "")

	if _, err := svc.Create(ctx, "user-1", Input{CartID: c.ID, Method: "online"}); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected empty cart error, got %v", err)
	}
}

func TestCreateRejectsForeignCart(t *testing.T) {
	svc, _, _ := newTestCheckout(t)
	ctx := context.Background()
	c, _ := svc.CartSvc.Ensure(ctx, "user-1", "")
	if _, err := svc.CartSvc.AddItem(ctx, c.ID, "sku-1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := svc.Create(ctx, "intruder", Input{CartID: c.ID, Method: "online"}); !errors.Is(err, ErrCartOwnership) {
		t.Fatalf("expected ownership error, got %v", err)
	}
}

func TestCreateSurfacesStoreFailure(t *testing.T) {
	svc, store, _ := newTestCheckout(t)
	store.err = ErrOutOfStock
	ctx := context.Background()
	c, _ := svc.CartSvc.Ensure(ctx, "user-1", "")
	if _, err := svc.CartSvc.AddItem(ctx, c.ID, "sku-1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := svc.Create(ctx, "user-1", Input{CartID: c.ID, Method: "online"}); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}
	// The cart must survive a failed checkout.
	if _, err := svc.CartSvc.Get(ctx, c.ID); err != nil {
		t.Fatalf("expected cart intact, got %v", err)
	}
}
