package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	validator "github.com/go-playground/validator/v10"
)

type fakeAdminRepo struct {
	created []Product
	deltas  map[string]int
}

func (f *fakeAdminRepo) Create(_ context.Context, p Product) (Product, error) {
	f.created = append(f.created, p)
	return p, nil
}

func (f *fakeAdminRepo) UpdateStock(_ context.Context, id string, delta int) error {
	if f.deltas == nil {
		f.deltas = map[string]int{}
	}
	f.deltas[id] += delta
	return nil
}

func TestCreateProductValidation(t *testing.T) {
	repo := &fakeAdminRepo{}
	h := &AdminHandler{Repo: repo, Validate: validator.New(validator.WithRequiredStructEnabled())}

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"title":"","slug":"widget","price":100}`)
	h.CreateProduct(rec, httptest.NewRequest(http.MethodPost, "/admin/products", body))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing title, got %d", rec.Code)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no product created")
	}
}

func TestCreateProductSucceeds(t *testing.T) {
	repo := &fakeAdminRepo{}
	h := &AdminHandler{Repo: repo, Validate: validator.New(validator.WithRequiredStructEnabled())}

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"title":"Widget","slug":"widget","price":500,"stock":3}`)
	h.CreateProduct(rec, httptest.NewRequest(http.MethodPost, "/admin/products", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.created) != 1 || repo.created[0].Slug != "widget" || !repo.created[0].Active {
		t.Fatalf("unexpected created product: %+v", repo.created)
	}
}
