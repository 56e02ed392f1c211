package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vedant-labs/backend-bazaar/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Line is a single cart line item.
type Line struct {
	ProductID string        `json:"productId"`
	Title     string        `json:"title"`
	Qty       int           `json:"qty"`
	UnitPrice pricing.Money `json:"unitPrice"`
}

// Cart is the Redis-persisted cart document.
type Cart struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId,omitempty"`
	AnonID     string    `json:"anonId,omitempty"`
	Items      []Line    `json:"items"`
	CouponCode string    `json:"couponCode,omitempty"`
	GiftWrap   bool      `json:"giftWrap"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Subtotal sums line totals, skipping non-positive lines.
func (c Cart) Subtotal() pricing.Money {
	items := make([]pricing.Item, 0, len(c.Items))
	for _, l := range c.Items {
		items = append(items, pricing.Item{ProductID: l.ProductID, Qty: l.Qty, UnitPrice: l.UnitPrice})
	}
	return pricing.SubtotalOf(items)
}

// Store persists cart documents in Redis with a sliding TTL.
type Store struct {
	R   redis.UniversalClient
	TTL time.Duration
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func cartKey(id string) string { return "cart:" + id }

func indexKey(kind, id string) string { return "cart:idx:" + kind + ":" + id }

// Get loads a cart by ID.
func (s *Store) Get(ctx context.Context, id string) (Cart, error) {
	if s == nil || s.R == nil {
		return Cart{}, errors.New("cart store not configured")
	}
	raw, err := s.R.Get(ctx, cartKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}

// Save writes a cart and refreshes its TTL plus owner indexes.
func (s *Store) Save(ctx context.Context, c Cart) error {
	if s == nil || s.R == nil {
		return errors.New("cart store not configured")
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	ttl := s.ttl()
	if err := s.R.Set(ctx, cartKey(c.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if c.UserID != "" {
		_ = s.R.Set(ctx, indexKey("user", c.UserID), c.ID, ttl).Err()
	}
	if c.AnonID != "" {
		_ = s.R.Set(ctx, indexKey("anon", c.AnonID), c.ID, ttl).Err()
	}
	return nil
}

// Delete removes a cart and its owner indexes.
func (s *Store) Delete(ctx context.Context, c Cart) error {
	if s == nil || s.R == nil {
		return errors.New("cart store not configured")
	}
	keys := []string{cartKey(c.ID)}
	if c.UserID != "" {
		keys = append(keys, indexKey("user", c.UserID))
	}
	if c.AnonID != "" {
		keys = append(keys, indexKey("anon", c.AnonID))
	}
	return s.R.Del(ctx, keys...).Err()
}

// FindByUser resolves the active cart ID for a user, if any.
func (s *Store) FindByUser(ctx context.Context, userID string) (string, error) {
	return s.findByIndex(ctx, indexKey("user", userID))
}

// FindByAnon resolves the active cart ID for a guest, if any.
func (s *Store) FindByAnon(ctx context.Context, anonID string) (string, error) {
	return s.findByIndex(ctx, indexKey("anon", anonID))
}

func (s *Store) findByIndex(ctx context.Context, key string) (string, error) {
	if s == nil || s.R == nil {
		return "", errors.New("cart store not configured")
	}
	id, err := s.R.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("resolve cart index: %w", err)
	}
	return id, nil
}
