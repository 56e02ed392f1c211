package user

import (
	"net/http"

	"github.com/vedant-labs/backend-bazaar/internal/common"
)

// Handler exposes buyer profile endpoints.
type Handler struct {
	Eligibility *Eligibility
}

// FirstOrder handles GET /api/v1/users/me/first-order.
func (h *Handler) FirstOrder(w http.ResponseWriter, r *http.Request) {
	if h.Eligibility == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "eligibility service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	eligible, err := h.Eligibility.FirstOrderEligible(r.Context(), userID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to determine eligibility", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"firstOrderEligible": eligible}})
}
