package catalog

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vedant-labs/backend-bazaar/internal/common"
)

type adminRepo interface {
	Create(ctx context.Context, p Product) (Product, error)
	UpdateStock(ctx context.Context, id string, delta int) error
}

// AdminHandler manages catalog writes for back office users.
type AdminHandler struct {
	Repo     adminRepo
	Cache    *Cache
	Validate *validator.Validate
}

type createProductRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Slug        string `json:"slug" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Price       int64  `json:"price" validate:"required,gte=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	Active      *bool  `json:"active"`
}

type stockAdjustRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog admin not configured", nil)
		return
	}
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error(), nil)
			return
		}
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	created, err := h.Repo.Create(r.Context(), Product{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Active:      active,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if h.Cache != nil {
		h.Cache.Invalidate(r.Context(), productSlugKey(created.Slug), productIDKey(created.ID))
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// AdjustStock handles PATCH /api/v1/admin/products/{id}/stock.
func (h *AdminHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog admin not configured", nil)
		return
	}
	id := chi.URLParam(r, "id")
	var req stockAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error(), nil)
			return
		}
	}
	if err := h.Repo.UpdateStock(r.Context(), id, req.Delta); err != nil {
		common.WriteError(w, err)
		return
	}
	if h.Cache != nil {
		h.Cache.Invalidate(r.Context(), productIDKey(id))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"id": id}})
}
