package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// SalesDay aggregates completed orders for one calendar day.
type SalesDay struct {
	Day        string `json:"day"`
	Orders     int64  `json:"orders"`
	GrossTotal int64  `json:"grossTotal"`
	Discount   int64  `json:"discount"`
}

// TopProduct ranks a product by units sold.
type TopProduct struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	Units     int64  `json:"units"`
	Revenue   int64  `json:"revenue"`
}

// CouponUsage counts redemptions per coupon code.
type CouponUsage struct {
	Code     string `json:"code"`
	Orders   int64  `json:"orders"`
	Discount int64  `json:"discount"`
}

// Querier defines the database access required for analytics reads.
type Querier interface {
	SalesDailyRange(ctx context.Context, from, to time.Time) ([]SalesDay, error)
	TopProducts(ctx context.Context, limit, offset int32) ([]TopProduct, error)
	CouponUsage(ctx context.Context, from, to time.Time) ([]CouponUsage, error)
}

// Service provides cached access to analytics aggregates.
type Service struct {
	Q            Querier
	R            redis.UniversalClient
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// SalesRange returns daily sales between from inclusive and to exclusive.
func (s *Service) SalesRange(ctx context.Context, from, to time.Time) ([]SalesDay, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "sales", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached []SalesDay
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.Q.SalesDailyRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// TopProducts returns paginated best sellers ordered by units sold.
func (s *Service) TopProducts(ctx context.Context, limit, offset int32) ([]TopProduct, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	key := cacheKey("an", "top", limit, offset)
	var cached []TopProduct
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.Q.TopProducts(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// CouponUsage returns redemption counts per coupon within the range.
func (s *Service) CouponUsage(ctx context.Context, from, to time.Time) ([]CouponUsage, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "coupons", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached []CouponUsage
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.Q.CouponUsage(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

func (s *Service) fromCache(ctx context.Context, key string, out any) bool {
	if s.R == nil || s.TTL <= 0 {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
