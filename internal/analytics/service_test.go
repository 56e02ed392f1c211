package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingQuerier struct {
	salesCalls int
	topCalls   int
	couponCall int
}

func (c *countingQuerier) SalesDailyRange(context.Context, time.Time, time.Time) ([]SalesDay, error) {
	c.salesCalls++
	return []SalesDay{{Day: "2026-08-01", Orders: 3, GrossTotal: 3261, Discount: 150}}, nil
}

func (c *countingQuerier) TopProducts(context.Context, int32, int32) ([]TopProduct, error) {
	c.topCalls++
	return []TopProduct{{ProductID: "p-1", Title: "Widget", Units: 5, Revenue: 2500}}, nil
}

func (c *countingQuerier) CouponUsage(context.Context, time.Time, time.Time) ([]CouponUsage, error) {
	c.couponCall++
	return []CouponUsage{{Code: "SAVE50", Orders: 2, Discount: 100}}, nil
}

func newTestService(t *testing.T) (*Service, *countingQuerier) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q := &countingQuerier{}
	return &Service{Q: q, R: client, TTL: time.Minute}, q
}

func TestSalesRangeCachesResult(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	for i := 0; i < 2; i++ {
		rows, err := svc.SalesRange(ctx, from, to)
		if err != nil {
			t.Fatalf("sales range: %v", err)
		}
		if len(rows) != 1 || rows[0].GrossTotal != 3261 {
			t.Fatalf("unexpected rows: %+v", rows)
		}
	}
	if q.salesCalls != 1 {
		t.Fatalf("expected one database call, got %d", q.salesCalls)
	}
}

func TestTopProductsNormalisesPaging(t *testing.T) {
	svc, q := newTestService(t)
	rows, err := svc.TopProducts(context.Background(), -1, -5)
	if err != nil {
		t.Fatalf("top products: %v", err)
	}
	if len(rows) != 1 || rows[0].Units != 5 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if q.topCalls != 1 {
		t.Fatalf("expected one database call, got %d", q.topCalls)
	}
}

func TestCouponUsageCachesResult(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 30)

	for i := 0; i < 3; i++ {
		rows, err := svc.CouponUsage(ctx, from, to)
		if err != nil {
			t.Fatalf("coupon usage: %v", err)
		}
		if len(rows) != 1 || rows[0].Code != "SAVE50" {
			t.Fatalf("unexpected rows: %+v", rows)
		}
	}
	if q.couponCall != 1 {
		t.Fatalf("expected one database call, got %d", q.couponCall)
	}
}
