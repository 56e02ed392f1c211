package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vedant-labs/backend-bazaar/internal/pricing"
)

// ErrNotFound indicates the requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrInvalidState indicates the requested status transition is not allowed.
var ErrInvalidState = errors.New("invalid order state transition")

// Status is the order lifecycle state.
type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusShipped        Status = "SHIPPED"
	StatusDelivered      Status = "DELIVERED"
	StatusCanceled       Status = "CANCELED"
)

// Rank orders statuses along the fulfilment pipeline. Canceled ranks below
// everything so it can never be a forward transition target from itself.
func Rank(s Status) int {
	switch s {
	case StatusPendingPayment:
		return 0
	case StatusPaid:
		return 1
	case StatusShipped:
		return 2
	case StatusDelivered:
		return 3
	case StatusCanceled:
		return -1
	default:
		return -2
	}
}

// CanTransition reports whether moving from current to target is allowed.
func CanTransition(current, target Status) bool {
	if current == StatusCanceled || current == StatusDelivered {
		return false
	}
	if target == StatusCanceled {
		return current == StatusPendingPayment || current == StatusPaid
	}
	return Rank(target) == Rank(current)+1
}

// Line is a snapshot of a cart line at checkout time.
type Line struct {
	ProductID string        `json:"productId"`
	Title     string        `json:"title"`
	Qty       int           `json:"qty"`
	UnitPrice pricing.Money `json:"unitPrice"`
}

// Order is a persisted checkout result.
type Order struct {
	ID             string                `json:"id"`
	UserID         string                `json:"userId"`
	Status         Status                `json:"status"`
	Items          []Line                `json:"items"`
	Method         pricing.PaymentMethod `json:"method"`
	CouponCode     string                `json:"couponCode,omitempty"`
	DiscountSource pricing.DiscountSource `json:"discountSource"`
	Subtotal       pricing.Money         `json:"subtotal"`
	Discount       pricing.Money         `json:"discount"`
	Tax            pricing.Money         `json:"tax"`
	CODFee         pricing.Money         `json:"codFee"`
	GiftWrapFee    pricing.Money         `json:"giftWrapFee"`
	OnlineFee      pricing.Money         `json:"onlineFee"`
	OnlineFeeTax   pricing.Money         `json:"onlineFeeTax"`
	Total          pricing.Money         `json:"total"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// DBTX is satisfied by both pgxpool.Pool and pgx.Tx so checkout can run
// order writes inside its transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo provides order persistence on Postgres.
type Repo struct {
	DB DBTX
}

// WithTx returns a repo bound to the given transaction.
func (r *Repo) WithTx(tx pgx.Tx) *Repo {
	return &Repo{DB: tx}
}

const orderColumns = `id, user_id, status, items, method, coupon_code, discount_source,
	subtotal, discount, tax, cod_fee, gift_wrap_fee, online_fee, online_fee_tax, total,
	created_at, updated_at`

// Create inserts an order row.
func (r *Repo) Create(ctx context.Context, o Order) (Order, error) {
	if r == nil || r.DB == nil {
		return Order{}, errors.New("order repo not configured")
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return Order{}, fmt.Errorf("encode order items: %w", err)
	}
	row := r.DB.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, status, items, method, coupon_code, discount_source,
			subtotal, discount, tax, cod_fee, gift_wrap_fee, online_fee, online_fee_tax, total)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING `+orderColumns,
		o.ID, o.UserID, o.Status, items, o.Method, o.CouponCode, o.DiscountSource,
		o.Subtotal, o.Discount, o.Tax, o.CODFee, o.GiftWrapFee, o.OnlineFee, o.OnlineFeeTax, o.Total)
	return scanOrder(row)
}

// GetByID loads an order by ID.
func (r *Repo) GetByID(ctx context.Context, id string) (Order, error) {
	if r == nil || r.DB == nil {
		return Order{}, errors.New("order repo not configured")
	}
	row := r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetForUser loads an order owned by the given user.
func (r *Repo) GetForUser(ctx context.Context, id, userID string) (Order, error) {
	if r == nil || r.DB == nil {
		return Order{}, errors.New("order repo not configured")
	}
	row := r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
	return scanOrder(row)
}

// ListByUser returns a page of the user's orders, newest first, plus the total.
func (r *Repo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, int64, error) {
	if r == nil || r.DB == nil {
		return nil, 0, errors.New("order repo not configured")
	}
	var total int64
	if err := r.DB.QueryRow(ctx,
		`SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// ListAll returns a page of all orders, optionally filtered by status.
func (r *Repo) ListAll(ctx context.Context, status Status, limit, offset int) ([]Order, int64, error) {
	if r == nil || r.DB == nil {
		return nil, 0, errors.New("order repo not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	where := ""
	countArgs := []any{}
	listArgs := []any{limit, offset}
	if status != "" {
		where = " WHERE status = $1"
		countArgs = append(countArgs, status)
		listArgs = []any{status, limit, offset}
	}
	var total int64
	if err := r.DB.QueryRow(ctx, `SELECT count(*) FROM orders`+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if status != "" {
		query = `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	}
	rows, err := r.DB.Query(ctx, query, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// CountForUser returns how many non-canceled orders the user has placed.
// Used for the first-order discount eligibility check.
func (r *Repo) CountForUser(ctx context.Context, userID string) (int64, error) {
	if r == nil || r.DB == nil {
		return 0, errors.New("order repo not configured")
	}
	var count int64
	err := r.DB.QueryRow(ctx,
		`SELECT count(*) FROM orders WHERE user_id = $1 AND status <> $2`,
		userID, StatusCanceled).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count user orders: %w", err)
	}
	return count, nil
}

// UpdateStatus performs a guarded status transition.
func (r *Repo) UpdateStatus(ctx context.Context, id string, target Status) (Order, error) {
	if r == nil || r.DB == nil {
		return Order{}, errors.New("order repo not configured")
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(current.Status, target) {
		return Order{}, fmt.Errorf("%s -> %s: %w", current.Status, target, ErrInvalidState)
	}
	row := r.DB.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 AND status = $3
		 RETURNING `+orderColumns, id, target, current.Status)
	updated, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, ErrInvalidState
		}
		return Order{}, err
	}
	return updated, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o     Order
		items []byte
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &items, &o.Method, &o.CouponCode, &o.DiscountSource,
		&o.Subtotal, &o.Discount, &o.Tax, &o.CODFee, &o.GiftWrapFee, &o.OnlineFee, &o.OnlineFeeTax, &o.Total,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("scan order: %w", err)
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return Order{}, fmt.Errorf("decode order items: %w", err)
		}
	}
	return o, nil
}
