package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo runs analytics aggregates against Postgres.
type Repo struct {
	Pool *pgxpool.Pool
}

var _ Querier = (*Repo)(nil)

// SalesDailyRange aggregates non-canceled orders per day.
func (r *Repo) SalesDailyRange(ctx context.Context, from, to time.Time) ([]SalesDay, error) {
	const q = `
SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day,
       count(*) AS orders,
       coalesce(sum(total), 0) AS gross_total,
       coalesce(sum(discount), 0) AS discount
FROM orders
WHERE status <> 'CANCELED' AND created_at >= $1 AND created_at < $2
GROUP BY 1
ORDER BY 1`
	rows, err := r.Pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SalesDay{}
	for rows.Next() {
		var d SalesDay
		if err := rows.Scan(&d.Day, &d.Orders, &d.GrossTotal, &d.Discount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TopProducts expands order line items and ranks products by units sold.
func (r *Repo) TopProducts(ctx context.Context, limit, offset int32) ([]TopProduct, error) {
	const q = `
SELECT item->>'productId' AS product_id,
       max(item->>'title') AS title,
       sum((item->>'qty')::bigint) AS units,
       sum((item->>'qty')::bigint * (item->>'unitPrice')::bigint) AS revenue
FROM orders, jsonb_array_elements(items) AS item
WHERE status <> 'CANCELED'
GROUP BY 1
ORDER BY units DESC, revenue DESC
LIMIT $1 OFFSET $2`
	rows, err := r.Pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TopProduct{}
	for rows.Next() {
		var p TopProduct
		if err := rows.Scan(&p.ProductID, &p.Title, &p.Units, &p.Revenue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CouponUsage counts redemptions per coupon code within the range.
func (r *Repo) CouponUsage(ctx context.Context, from, to time.Time) ([]CouponUsage, error) {
	const q = `
SELECT coupon_code,
       count(*) AS orders,
       coalesce(sum(discount), 0) AS discount
FROM orders
WHERE status <> 'CANCELED' AND coupon_code <> '' AND created_at >= $1 AND created_at < $2
GROUP BY coupon_code
ORDER BY orders DESC`
	rows, err := r.Pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CouponUsage{}
	for rows.Next() {
		var c CouponUsage
		if err := rows.Scan(&c.Code, &c.Orders, &c.Discount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
