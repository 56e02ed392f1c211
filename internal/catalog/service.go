package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vedant-labs/backend-bazaar/internal/cart"
	"github.com/vedant-labs/backend-bazaar/internal/common"
	"github.com/vedant-labs/backend-bazaar/internal/pricing"
)

type repoProvider interface {
	GetByID(ctx context.Context, id string) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	List(ctx context.Context, p ListParams) ([]Product, int64, error)
}

// Service orchestrates catalog queries, DTO assembly, and caching.
type Service struct {
	repo         repoProvider
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Repo         repoProvider
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// ListResult contains list data and pagination metadata.
type ListResult struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repo == nil {
		return nil, errors.New("catalog: repo is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		repo:         cfg.Repo,
		cache:        cfg.Cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, int, error) {
	params := ListParams{Limit: s.defaultLimit}
	params.Query = strings.TrimSpace(values.Get("q"))
	page := 1

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			return params, 0, badRequest("page", "page must be a positive integer")
		}
		page = p
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, 0, badRequest("limit", "limit must be a positive integer")
		}
		params.Limit = l
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}
	if v := strings.TrimSpace(values.Get("minPrice")); v != "" {
		min, err := strconv.ParseInt(v, 10, 64)
		if err != nil || min < 0 {
			return params, 0, badRequest("minPrice", "minPrice must be a non-negative integer")
		}
		params.MinPrice = &min
	}
	if v := strings.TrimSpace(values.Get("maxPrice")); v != "" {
		max, err := strconv.ParseInt(v, 10, 64)
		if err != nil || max < 0 {
			return params, 0, badRequest("maxPrice", "maxPrice must be a non-negative integer")
		}
		params.MaxPrice = &max
	}
	if v := strings.TrimSpace(values.Get("inStock")); v != "" {
		params.InStock = v == "true" || v == "1"
	}
	params.Offset = (page - 1) * params.Limit
	return params, page, nil
}

// List returns products matching the filters, served from cache when possible.
func (s *Service) List(ctx context.Context, params ListParams, page int) (ListResult, error) {
	key := listCacheKey(params, page)
	var cached ListResult
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return ListResult{}, err
	}
	result := ListResult{Items: items, Total: total, Page: page, Limit: params.Limit}
	_ = s.cache.SetJSON(ctx, key, result)
	return result, nil
}

// GetBySlug returns a product detail, served from cache when possible.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Product{}, badRequest("slug", "slug is required")
	}
	key := productSlugKey(slug)
	var cached Product
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return Product{}, err
	}
	_ = s.cache.SetJSON(ctx, key, p)
	return p, nil
}

// Lookup implements the cart product source.
func (s *Service) Lookup(ctx context.Context, productID string) (cart.ProductInfo, error) {
	key := productIDKey(productID)
	var cached Product
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	if err == nil && hit {
		return toProductInfo(cached), nil
	}
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return cart.ProductInfo{}, err
	}
	_ = s.cache.SetJSON(ctx, key, p)
	return toProductInfo(p), nil
}

func productSlugKey(slug string) string { return "catalog:product:slug:" + slug }

func productIDKey(id string) string { return "catalog:product:id:" + id }

func toProductInfo(p Product) cart.ProductInfo {
	return cart.ProductInfo{
		ID:     p.ID,
		Title:  p.Title,
		Price:  pricing.Money(p.Price),
		Active: p.Active && p.Stock > 0,
	}
}

func listCacheKey(p ListParams, page int) string {
	var b strings.Builder
	b.WriteString("catalog:list:")
	b.WriteString(strings.ToLower(p.Query))
	if p.MinPrice != nil {
		fmt.Fprintf(&b, ":min=%d", *p.MinPrice)
	}
	if p.MaxPrice != nil {
		fmt.Fprintf(&b, ":max=%d", *p.MaxPrice)
	}
	if p.InStock {
		b.WriteString(":instock")
	}
	fmt.Fprintf(&b, ":p=%d:l=%d", page, p.Limit)
	return b.String()
}

func badRequest(field, message string) error {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: 400,
		Details:    map[string]any{"field": field},
	}
}
