package pricing

import (
	"encoding/json"
	"net/http"

	"github.com/vedant-labs/backend-bazaar/internal/common"
)

// AdminHandler exposes read-only coupon endpoints for the back office.
// Previews run the same evaluation path as checkout, so support can answer
// "why was this code rejected" without placing a test order.
type AdminHandler struct {
	Engine *Engine
}

// ListCoupons handles GET /api/v1/admin/coupons.
func (h *AdminHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Engine.Registry().All()})
}

type previewRequest struct {
	Code               string `json:"code"`
	Subtotal           Money  `json:"subtotal"`
	Method             string `json:"method"`
	GiftWrap           bool   `json:"giftWrap"`
	FirstOrderEligible bool   `json:"firstOrderEligible"`
}

// PreviewCoupon handles POST /api/v1/admin/coupons/preview. It quotes a
// hypothetical cart without touching any stored cart or order.
func (h *AdminHandler) PreviewCoupon(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	method := MethodOnline
	if req.Method != "" {
		parsed, err := ParseMethod(req.Method)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown payment method", nil)
			return
		}
		method = parsed
	}
	res, err := h.Engine.Quote(QuoteInput{
		Subtotal:   req.Subtotal,
		CouponCode: req.Code,
		Method:     method,
		GiftWrap:   req.GiftWrap,
		Buyer:      Buyer{FirstOrderEligible: req.FirstOrderEligible},
	})
	if err != nil {
		if ce, ok := AsCouponError(err); ok {
			details := map[string]any{"reason": string(ce.Reason)}
			if ce.RequiredMinimum > 0 {
				details["requiredMinimum"] = ce.RequiredMinimum
			}
			common.JSONError(w, http.StatusUnprocessableEntity, string(ce.Reason), ce.Error(), details)
			return
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}
