package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vedant-labs/backend-bazaar/internal/order"
)

// ErrOutOfStock indicates a cart line exceeds the available stock.
var ErrOutOfStock = errors.New("insufficient stock")

// Store persists a checkout atomically.
type Store interface {
	PlaceOrder(ctx context.Context, o order.Order) (order.Order, error)
}

// PGStore places orders inside a single Postgres transaction, reserving
// stock for every line before the order row is committed.
type PGStore struct {
	Pool   *pgxpool.Pool
	Orders *order.Repo
}

var _ Store = (*PGStore)(nil)

// PlaceOrder inserts the order and decrements product stock, rolling back
// everything when any line cannot be reserved.
func (s *PGStore) PlaceOrder(ctx context.Context, o order.Order) (order.Order, error) {
	if s == nil || s.Pool == nil || s.Orders == nil {
		return order.Order{}, errors.New("checkout store not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return order.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, line := range o.Items {
		tag, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = now()
			 WHERE id = $1 AND stock >= $2`, line.ProductID, line.Qty)
		if err != nil {
			return order.Order{}, fmt.Errorf("reserve stock for %s: %w", line.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			return order.Order{}, fmt.Errorf("product %s: %w", line.ProductID, ErrOutOfStock)
		}
	}

	created, err := s.Orders.WithTx(tx).Create(ctx, o)
	if err != nil {
		return order.Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return order.Order{}, err
	}
	return created, nil
}
