package pricing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestListCouponsReturnsRegistry(t *testing.T) {
	h := &AdminHandler{Engine: testEngine(t)}
	rec := httptest.NewRecorder()
	h.ListCoupons(rec, httptest.NewRequest(http.MethodGet, "/admin/coupons", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Data []struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data) != 4 {
		t.Fatalf("len(data) = %d, want 4", len(body.Data))
	}
	if body.Data[0].Code != "SAVE50" {
		t.Fatalf("first code = %q, want SAVE50", body.Data[0].Code)
	}
}

func TestPreviewCouponQuotesHypotheticalCart(t *testing.T) {
	h := &AdminHandler{Engine: testEngine(t)}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/coupons/preview",
		strings.NewReader(`{"code":"SAVE50","subtotal":1000,"method":"cod"}`))
	h.PreviewCoupon(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data Result `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.Discount != 50 || body.Data.Coupon != "SAVE50" {
		t.Fatalf("discount = %d coupon = %q, want 50 SAVE50", body.Data.Discount, body.Data.Coupon)
	}
	// 950 + tax 171 + cod 25
	if body.Data.Total != 1146 {
		t.Fatalf("total = %d, want 1146", body.Data.Total)
	}
}

func TestPreviewCouponReportsRejection(t *testing.T) {
	h := &AdminHandler{Engine: testEngine(t)}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/coupons/preview",
		strings.NewReader(`{"code":"WELCOME10","subtotal":1000,"firstOrderEligible":false}`))
	h.PreviewCoupon(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "COUPON_NOT_ELIGIBLE") {
		t.Fatalf("body missing rejection reason: %s", rec.Body.String())
	}
}
