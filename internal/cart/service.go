package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vedant-labs/backend-bazaar/internal/pricing"
)

// ProductInfo is the minimal product detail the cart needs.
type ProductInfo struct {
	ID     string
	Title  string
	Price  pricing.Money
	Active bool
}

// ProductSource resolves product details for cart lines.
type ProductSource interface {
	Lookup(ctx context.Context, productID string) (ProductInfo, error)
}

// EligibilitySource reports whether a buyer qualifies for the first-order discount.
type EligibilitySource interface {
	FirstOrderEligible(ctx context.Context, userID string) (bool, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Store       *Store
	Engine      *pricing.Engine
	Products    ProductSource
	Eligibility EligibilitySource
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Ensure loads or creates a cart for the provided identifiers.
func (s *Service) Ensure(ctx context.Context, userID, anonID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	userID = strings.TrimSpace(userID)
	anonID = strings.TrimSpace(anonID)
	if userID == "" && anonID == "" {
		return Cart{}, fmt.Errorf("cart owner required: %w", ErrInvalidInput)
	}

	var (
		id  string
		err error
	)
	if userID != "" {
		id, err = s.Store.FindByUser(ctx, userID)
	} else {
		id, err = s.Store.FindByAnon(ctx, anonID)
	}
	if err == nil {
		cart, getErr := s.Store.Get(ctx, id)
		if getErr == nil {
			return cart, nil
		}
		if !errors.Is(getErr, ErrNotFound) {
			return Cart{}, getErr
		}
	} else if !errors.Is(err, ErrNotFound) {
		return Cart{}, err
	}

	now := s.now()
	cart := Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		AnonID:    anonID,
		Items:     []Line{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// Get loads a cart by ID.
func (s *Service) Get(ctx context.Context, cartID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	return s.Store.Get(ctx, cartID)
}

// AddItem inserts or increments a cart line using the catalog price.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, qty int) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return Cart{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Cart{}, fmt.Errorf("productId is required: %w", ErrInvalidInput)
	}
	cart, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	info, err := s.lookupProduct(ctx, productID)
	if err != nil {
		return Cart{}, err
	}
	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Qty += qty
			cart.Items[i].UnitPrice = info.Price
			cart.Items[i].Title = info.Title
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, Line{
			ProductID: productID,
			Title:     info.Title,
			Qty:       qty,
			UnitPrice: info.Price,
		})
	}
	cart.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// UpdateQty sets the quantity for a cart line. Zero removes the line.
func (s *Service) UpdateQty(ctx context.Context, cartID, productID string, qty int) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if qty < 0 {
		return Cart{}, fmt.Errorf("qty must not be negative: %w", ErrInvalidInput)
	}
	cart, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	idx := -1
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Cart{}, fmt.Errorf("line %s: %w", productID, ErrNotFound)
	}
	if qty == 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		cart.Items[idx].Qty = qty
	}
	cart.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// RemoveItem deletes a cart line.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) (Cart, error) {
	return s.UpdateQty(ctx, cartID, productID, 0)
}

// ApplyCoupon validates and stores a coupon code on the cart. A failed
// validation leaves any previously applied coupon untouched.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, code string) (Cart, *pricing.Application, error) {
	if s == nil || s.Store == nil || s.Engine == nil {
		return Cart{}, nil, errors.New("cart service not configured")
	}
	cart, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Cart{}, nil, err
	}
	buyer := s.buyer(ctx, cart)
	app, err := s.Engine.EvaluateCoupon(code, cart.Subtotal(), buyer)
	if err != nil {
		return Cart{}, nil, err
	}
	if app == nil {
		return Cart{}, nil, fmt.Errorf("coupon code is required: %w", ErrInvalidInput)
	}
	cart.CouponCode = app.Code
	cart.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, cart); err != nil {
		return Cart{}, nil, err
	}
	return cart, app, nil
}

// RemoveCoupon clears the applied coupon from the cart.
func (s *Service) RemoveCoupon(ctx context.Context, cartID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	cart, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	cart.CouponCode = ""
	cart.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// SetGiftWrap toggles gift wrapping for the cart.
func (s *Service) SetGiftWrap(ctx context.Context, cartID string, giftWrap bool) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	cart, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	cart.GiftWrap = giftWrap
	cart.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// Merge folds a guest cart into the authenticated user's cart. Quantities
// for shared products are summed and the guest cart is removed.
func (s *Service) Merge(ctx context.Context, guestCartID, userID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Cart{}, fmt.Errorf("user id is required: %w", ErrInvalidInput)
	}
	guest, err := s.Store.Get(ctx, guestCartID)
	if err != nil {
		return Cart{}, err
	}
	target, err := s.Ensure(ctx, userID, "")
	if err != nil {
		return Cart{}, err
	}
	if guest.ID == target.ID {
		return target, nil
	}
	for _, line := range guest.Items {
		merged := false
		for i := range target.Items {
			if target.Items[i].ProductID == line.ProductID {
				target.Items[i].Qty += line.Qty
				merged = true
				break
			}
		}
		if !merged {
			target.Items = append(target.Items, line)
		}
	}
	if target.CouponCode == "" && guest.CouponCode != "" {
		target.CouponCode = guest.CouponCode
	}
	target.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, target); err != nil {
		return Cart{}, err
	}
	_ = s.Store.Delete(ctx, guest)
	return target, nil
}

// Clear deletes the cart document, typically after a successful checkout.
func (s *Service) Clear(ctx context.Context, cartID string) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	cart, err := s.Store.Get(ctx, cartID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return s.Store.Delete(ctx, cart)
}

// Summary prices the cart using the checkout engine.
func (s *Service) Summary(ctx context.Context, cart Cart, method pricing.PaymentMethod) (pricing.Result, error) {
	if s == nil || s.Engine == nil {
		return pricing.Result{}, errors.New("cart service not configured")
	}
	return s.Engine.Quote(pricing.QuoteInput{
		Subtotal:   cart.Subtotal(),
		CouponCode: cart.CouponCode,
		Method:     method,
		GiftWrap:   cart.GiftWrap,
		Buyer:      s.buyer(ctx, cart),
	})
}

func (s *Service) buyer(ctx context.Context, cart Cart) pricing.Buyer {
	if s == nil || s.Eligibility == nil || cart.UserID == "" {
		return pricing.Buyer{}
	}
	eligible, err := s.Eligibility.FirstOrderEligible(ctx, cart.UserID)
	if err != nil {
		return pricing.Buyer{}
	}
	return pricing.Buyer{FirstOrderEligible: eligible}
}

func (s *Service) lookupProduct(ctx context.Context, productID string) (ProductInfo, error) {
	if s.Products == nil {
		return ProductInfo{}, errors.New("product source not configured")
	}
	info, err := s.Products.Lookup(ctx, productID)
	if err != nil {
		return ProductInfo{}, err
	}
	if !info.Active {
		return ProductInfo{}, fmt.Errorf("product %s unavailable: %w", productID, ErrInvalidInput)
	}
	if info.Price <= 0 {
		return ProductInfo{}, fmt.Errorf("product %s has no price: %w", productID, ErrInvalidInput)
	}
	return info, nil
}
