package order

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vedant-labs/backend-bazaar/internal/common"
	"github.com/vedant-labs/backend-bazaar/internal/events"
)

// Handler exposes order endpoints for authenticated buyers.
type Handler struct {
	Repo   *Repo
	Events *events.Bus
	Log    zerolog.Logger
}

func statusTopic(s Status) string {
	switch s {
	case StatusPaid:
		return events.TopicOrderPaid
	case StatusShipped:
		return events.TopicOrderShipped
	case StatusDelivered:
		return events.TopicOrderDelivered
	case StatusCanceled:
		return events.TopicOrderCanceled
	default:
		return ""
	}
}

// emitStatusEvent publishes the matching domain event for a status change.
// Emission is best effort: the status update has already been committed.
func emitStatusEvent(ctx context.Context, bus *events.Bus, log zerolog.Logger, o Order) {
	if bus == nil {
		return
	}
	topic := statusTopic(o.Status)
	if topic == "" {
		return
	}
	payload := map[string]any{
		"orderId": o.ID,
		"userId":  o.UserID,
		"status":  string(o.Status),
	}
	if _, err := bus.Emit(ctx, topic, o.ID, payload); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID).Msg("emit order status event")
	}
}

// List handles GET /api/v1/orders for the current user.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order repo not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	orders, total, err := h.Repo.ListByUser(r.Context(), userID, perPage, (page-1)*perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       orders,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get handles GET /api/v1/orders/{id} for the current user.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order repo not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	o, err := h.Repo.GetForUser(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// Cancel handles POST /api/v1/orders/{id}/cancel for the current user.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order repo not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	id := chi.URLParam(r, "id")
	current, err := h.Repo.GetForUser(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// Self-service cancellation stops once payment is in. Anything later
	// goes through support and the admin endpoint.
	if current.Status != StatusPendingPayment {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "order can no longer be canceled", nil)
		return
	}
	o, err := h.Repo.UpdateStatus(r.Context(), id, StatusCanceled)
	if err != nil {
		h.writeError(w, err)
		return
	}
	emitStatusEvent(r.Context(), h.Events, h.Log, o)
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrInvalidState):
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "state transition not allowed", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
