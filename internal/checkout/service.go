package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vedant-labs/backend-bazaar/internal/cart"
	"github.com/vedant-labs/backend-bazaar/internal/events"
	"github.com/vedant-labs/backend-bazaar/internal/lock"
	"github.com/vedant-labs/backend-bazaar/internal/obs"
	"github.com/vedant-labs/backend-bazaar/internal/order"
	"github.com/vedant-labs/backend-bazaar/internal/pricing"
)

// ErrCartEmpty indicates the cart has no purchasable lines.
var ErrCartEmpty = errors.New("cart is empty")

// ErrCartOwnership indicates the cart belongs to a different user.
var ErrCartOwnership = errors.New("cart does not belong to user")

// TaskEnqueuer schedules background work after a successful checkout.
type TaskEnqueuer interface {
	EnqueueOrderConfirmation(ctx context.Context, orderID, userID string) error
}

// QuoteRequest describes a price preview request.
type QuoteRequest struct {
	CartID string `json:"cartId"`
	Method string `json:"method"`
}

// Input describes a checkout submission.
type Input struct {
	CartID string `json:"cartId"`
	Method string `json:"method"`
}

// Output is the checkout result returned to clients.
type Output struct {
	OrderID string         `json:"orderId"`
	Status  string         `json:"status"`
	Pricing pricing.Result `json:"pricing"`
}

// Service orchestrates quoting and order placement.
type Service struct {
	Store    Store
	CartSvc  *cart.Service
	Engine   *pricing.Engine
	Events   *events.Bus
	Tasks    TaskEnqueuer
	Locks    *lock.Locker
	Log      zerolog.Logger
	Currency string
}

// Quote prices the cart without any side effects.
func (s *Service) Quote(ctx context.Context, userID string, req QuoteRequest) (pricing.Result, error) {
	if s == nil || s.CartSvc == nil || s.Engine == nil {
		return pricing.Result{}, errors.New("checkout service not configured")
	}
	c, err := s.loadCart(ctx, userID, req.CartID)
	if err != nil {
		return pricing.Result{}, err
	}
	method, err := pricing.ParseMethod(req.Method)
	if err != nil {
		return pricing.Result{}, err
	}
	result, err := s.CartSvc.Summary(ctx, c, method)
	if err != nil {
		return pricing.Result{}, err
	}
	if obs.CheckoutQuoteTotal != nil {
		obs.CheckoutQuoteTotal.Inc()
	}
	return result, nil
}

// Create places an order from the cart and clears it on success. A per-cart
// lock prevents a double submit from reserving stock twice.
func (s *Service) Create(ctx context.Context, userID string, in Input) (Output, error) {
	if s == nil || s.Store == nil || s.CartSvc == nil || s.Engine == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return Output{}, errors.New("user is required for checkout")
	}
	if s.Locks != nil {
		var out Output
		err := s.Locks.WithLock(ctx, "checkout:cart:"+in.CartID, 30*time.Second, func(ctx context.Context) error {
			var err error
			out, err = s.create(ctx, userID, in)
			return err
		})
		return out, err
	}
	return s.create(ctx, userID, in)
}

func (s *Service) create(ctx context.Context, userID string, in Input) (Output, error) {
	c, err := s.loadCart(ctx, userID, in.CartID)
	if err != nil {
		return Output{}, err
	}
	if len(c.Items) == 0 {
		return Output{}, ErrCartEmpty
	}
	method, err := pricing.ParseMethod(in.Method)
	if err != nil {
		return Output{}, err
	}
	summary, err := s.CartSvc.Summary(ctx, c, method)
	if err != nil {
		return Output{}, err
	}

	lines := make([]order.Line, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, order.Line{
			ProductID: item.ProductID,
			Title:     item.Title,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
		})
	}
	placed, err := s.Store.PlaceOrder(ctx, order.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		Status:         order.StatusPendingPayment,
		Items:          lines,
		Method:         method,
		CouponCode:     summary.Coupon,
		DiscountSource: summary.DiscountSource,
		Subtotal:       summary.Subtotal,
		Discount:       summary.Discount,
		Tax:            summary.Tax,
		CODFee:         summary.CODFee,
		GiftWrapFee:    summary.GiftWrapFee,
		OnlineFee:      summary.OnlineFee,
		OnlineFeeTax:   summary.OnlineFeeTax,
		Total:          summary.Total,
	})
	if err != nil {
		return Output{}, err
	}

	s.afterPlace(ctx, c.ID, placed)
	return Output{OrderID: placed.ID, Status: string(placed.Status), Pricing: summary}, nil
}

// afterPlace runs best-effort side effects that must not fail the checkout.
func (s *Service) afterPlace(ctx context.Context, cartID string, placed order.Order) {
	if obs.OrdersCreatedTotal != nil {
		obs.OrdersCreatedTotal.WithLabelValues(string(placed.Method)).Inc()
	}
	if obs.OrderValueTotal != nil {
		obs.OrderValueTotal.Add(float64(placed.Total))
	}
	if err := s.CartSvc.Clear(ctx, cartID); err != nil {
		s.Log.Warn().Err(err).Str("order_id", placed.ID).Msg("clear cart after checkout")
	}
	if s.Events != nil {
		payload := map[string]any{
			"orderId":  placed.ID,
			"userId":   placed.UserID,
			"total":    placed.Total,
			"method":   string(placed.Method),
			"currency": s.Currency,
		}
		if placed.CouponCode != "" {
			payload["coupon"] = placed.CouponCode
		}
		if _, err := s.Events.Emit(ctx, events.TopicOrderCreated, placed.ID, payload); err != nil {
			s.Log.Warn().Err(err).Str("order_id", placed.ID).Msg("emit order created event")
		}
	}
	if s.Tasks != nil {
		if err := s.Tasks.EnqueueOrderConfirmation(ctx, placed.ID, placed.UserID); err != nil {
			s.Log.Warn().Err(err).Str("order_id", placed.ID).Msg("enqueue order confirmation")
		}
	}
}

func (s *Service) loadCart(ctx context.Context, userID, cartID string) (cart.Cart, error) {
	if strings.TrimSpace(cartID) == "" {
		return cart.Cart{}, fmt.Errorf("cartId is required: %w", cart.ErrInvalidInput)
	}
	c, err := s.CartSvc.Get(ctx, cartID)
	if err != nil {
		return cart.Cart{}, err
	}
	if c.UserID != "" && userID != "" && c.UserID != userID {
		return cart.Cart{}, ErrCartOwnership
	}
	return c, nil
}
