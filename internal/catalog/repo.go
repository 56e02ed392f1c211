package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vedant-labs/backend-bazaar/internal/pricing"
)

// ErrNotFound indicates the requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is the catalog row exposed to the storefront.
type Product struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Description string        `json:"description,omitempty"`
	Price       pricing.Money `json:"price"`
	Stock       int           `json:"stock"`
	Active      bool          `json:"active"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query    string
	MinPrice *int64
	MaxPrice *int64
	InStock  bool
	Limit    int
	Offset   int
}

// Repo provides product persistence on Postgres.
type Repo struct {
	Pool *pgxpool.Pool
}

const productColumns = `id, title, slug, description, price, stock, active, created_at, updated_at`

// GetByID loads a single product by ID.
func (r *Repo) GetByID(ctx context.Context, id string) (Product, error) {
	if r == nil || r.Pool == nil {
		return Product{}, errors.New("catalog repo not configured")
	}
	row := r.Pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// GetBySlug loads a single active product by slug.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (Product, error) {
	if r == nil || r.Pool == nil {
		return Product{}, errors.New("catalog repo not configured")
	}
	row := r.Pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug = $1 AND active`, slug)
	return scanProduct(row)
}

// List returns active products matching the filters plus the total count.
func (r *Repo) List(ctx context.Context, p ListParams) ([]Product, int64, error) {
	if r == nil || r.Pool == nil {
		return nil, 0, errors.New("catalog repo not configured")
	}
	where := []string{"active"}
	args := []any{}
	if q := strings.TrimSpace(p.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		where = append(where, fmt.Sprintf("lower(title) LIKE $%d", len(args)))
	}
	if p.MinPrice != nil {
		args = append(args, *p.MinPrice)
		where = append(where, fmt.Sprintf("price >= $%d", len(args)))
	}
	if p.MaxPrice != nil {
		args = append(args, *p.MaxPrice)
		where = append(where, fmt.Sprintf("price <= $%d", len(args)))
	}
	if p.InStock {
		where = append(where, "stock > 0")
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := r.Pool.QueryRow(ctx,
		`SELECT count(*) FROM products WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, p.Offset)
	rows, err := r.Pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE `+clause+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]Product, 0, limit)
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, prod)
	}
	return out, total, rows.Err()
}

// Create inserts a product. Used by admin endpoints and seeds.
func (r *Repo) Create(ctx context.Context, p Product) (Product, error) {
	if r == nil || r.Pool == nil {
		return Product{}, errors.New("catalog repo not configured")
	}
	row := r.Pool.QueryRow(ctx,
		`INSERT INTO products (id, title, slug, description, price, stock, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+productColumns,
		p.ID, p.Title, p.Slug, p.Description, p.Price, p.Stock, p.Active)
	return scanProduct(row)
}

// UpdateStock adjusts the stock level by delta, never below zero.
func (r *Repo) UpdateStock(ctx context.Context, id string, delta int) error {
	if r == nil || r.Pool == nil {
		return errors.New("catalog repo not configured")
	}
	tag, err := r.Pool.Exec(ctx,
		`UPDATE products SET stock = greatest(stock + $2, 0), updated_at = now() WHERE id = $1`,
		id, delta)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}
