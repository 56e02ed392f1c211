package pricing

import (
	"errors"
	"testing"

	"github.com/vedant-labs/backend-bazaar/internal/coupon"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	reg, err := coupon.NewRegistry(coupon.Defaults())
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return New(Config{}, reg)
}

func TestFirstOrderDiscountOnlineQuote(t *testing.T) {
	e := testEngine(t)
	res, err := e.Quote(QuoteInput{
		Subtotal: 1000,
		Method:   MethodOnline,
		Buyer:    Buyer{FirstOrderEligible: true},
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if res.Discount != 100 || res.DiscountSource != SourceFirstOrder {
		t.Fatalf("expected first-order discount 100, got %d (%s)", res.Discount, res.DiscountSource)
	}
	if res.EffectiveSubtotal != 900 {
		t.Fatalf("expected effective subtotal 900, got %d", res.EffectiveSubtotal)
	}
	if res.Tax != 162 {
		t.Fatalf("expected tax 162, got %d", res.Tax)
	}
	if res.OnlineFee != 21 || res.OnlineFeeTax != 4 {
		t.Fatalf("expected online fee 21/4, got %d/%d", res.OnlineFee, res.OnlineFeeTax)
	}
	if res.Total != 1087 {
		t.Fatalf("expected total 1087, got %d", res.Total)
	}
}

func TestCouponWinsTieOverFirstOrder(t *testing.T) {
	e := testEngine(t)
	// WELCOME10 on 5000 caps at 300, identical to the natural first-order
	// amount. The coupon was an explicit user action, so it takes the tie.
	res, err := e.Quote(QuoteInput{
		Subtotal:   5000,
		CouponCode: "WELCOME10",
		Method:     MethodCOD,
		Buyer:      Buyer{FirstOrderEligible: true},
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if res.Discount != 300 {
		t.Fatalf("expected discount 300, got %d", res.Discount)
	}
	if res.DiscountSource != SourceCoupon {
		t.Fatalf("expected coupon source, got %s", res.DiscountSource)
	}
}

func TestCouponMinimumNotMet(t *testing.T) {
	e := testEngine(t)
	_, err := e.EvaluateCoupon("SAVE50", 300, Buyer{})
	ce, ok := AsCouponError(err)
	if !ok {
		t.Fatalf("expected coupon error, got %v", err)
	}
	if ce.Reason != ReasonMinimumNotMet {
		t.Fatalf("expected COUPON_MINIMUM_NOT_MET, got %s", ce.Reason)
	}
	if ce.RequiredMinimum != 499 {
		t.Fatalf("expected required minimum 499, got %d", ce.RequiredMinimum)
	}
}

func TestCODSurchargeWithGiftWrap(t *testing.T) {
	e := testEngine(t)
	res, err := e.Quote(QuoteInput{Subtotal: 2000, Method: MethodCOD, GiftWrap: true})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if res.CODFee != 25 {
		t.Fatalf("expected cod fee 25, got %d", res.CODFee)
	}
	if res.GiftWrapFee != 0 {
		t.Fatalf("expected gift wrap fee 0 with default config, got %d", res.GiftWrapFee)
	}
	if res.OnlineFee != 0 || res.OnlineFeeTax != 0 {
		t.Fatalf("online fees must be zero for cod, got %d/%d", res.OnlineFee, res.OnlineFeeTax)
	}
	if res.Total != 2385 {
		t.Fatalf("expected total 2385, got %d", res.Total)
	}
}

func TestCouponCodeNormalization(t *testing.T) {
	e := testEngine(t)
	app, err := e.EvaluateCoupon("  save50 ", 600, Buyer{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if app.Code != "SAVE50" || app.Amount != 50 {
		t.Fatalf("expected SAVE50/50, got %s/%d", app.Code, app.Amount)
	}
}

func TestUnknownCouponRejected(t *testing.T) {
	e := testEngine(t)
	_, err := e.EvaluateCoupon("XYZ123", 600, Buyer{})
	ce, ok := AsCouponError(err)
	if !ok || ce.Reason != ReasonInvalidCoupon {
		t.Fatalf("expected INVALID_COUPON, got %v", err)
	}
}

func TestEmptyCodeMeansNoCoupon(t *testing.T) {
	e := testEngine(t)
	app, err := e.EvaluateCoupon("   ", 600, Buyer{})
	if err != nil {
		t.Fatalf("empty code must not error: %v", err)
	}
	if app != nil {
		t.Fatalf("expected nil application, got %+v", app)
	}
}

func TestFirstOrderCouponRequiresEligibility(t *testing.T) {
	e := testEngine(t)
	_, err := e.EvaluateCoupon("WELCOME10", 1000, Buyer{FirstOrderEligible: false})
	ce, ok := AsCouponError(err)
	if !ok || ce.Reason != ReasonNotEligible {
		t.Fatalf("expected COUPON_NOT_ELIGIBLE, got %v", err)
	}
}

func TestNoStacking(t *testing.T) {
	e := testEngine(t)
	// SAVE50 (50) is below the natural first-order amount on 5000 (300).
	// The resolved discount must be the larger single amount, never the sum.
	app, err := e.EvaluateCoupon("SAVE50", 5000, Buyer{FirstOrderEligible: true})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	d := e.ResolveBestDiscount(app, 5000, Buyer{FirstOrderEligible: true})
	if d.Amount != 300 || d.Source != SourceFirstOrder {
		t.Fatalf("expected first-order 300, got %d (%s)", d.Amount, d.Source)
	}
}

func TestFreeShippingCouponKeepsFirstOrderDiscount(t *testing.T) {
	e := testEngine(t)
	res, err := e.Quote(QuoteInput{
		Subtotal:   1200,
		CouponCode: "FREESHIP",
		Method:     MethodOnline,
		Buyer:      Buyer{FirstOrderEligible: true},
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !res.FreeShipping {
		t.Fatal("expected free shipping flag")
	}
	if res.DiscountSource != SourceFirstOrder || res.Discount != 120 {
		t.Fatalf("expected first-order 120 under freeship, got %d (%s)", res.Discount, res.DiscountSource)
	}
}

func TestComputeTotalIdempotent(t *testing.T) {
	e := testEngine(t)
	d := Discount{Amount: 150, Source: SourceCoupon}
	first, err := e.ComputeTotal(3210, d, MethodOnline, true)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := e.ComputeTotal(3210, d, MethodOnline, true)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if first != second {
		t.Fatalf("identical inputs produced different results: %+v vs %+v", first, second)
	}
}

func TestComputeTotalRejectsNegativeInput(t *testing.T) {
	e := testEngine(t)
	if _, err := e.ComputeTotal(-1, Discount{}, MethodOnline, false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative subtotal, got %v", err)
	}
	if _, err := e.ComputeTotal(100, Discount{Amount: -5}, MethodCOD, false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative discount, got %v", err)
	}
	if _, err := e.ComputeTotal(100, Discount{}, PaymentMethod("wallet"), false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown method, got %v", err)
	}
}

func TestDiscountNeverExceedsSubtotal(t *testing.T) {
	e := testEngine(t)
	res, err := e.ComputeTotal(100, Discount{Amount: 500, Source: SourceCoupon}, MethodOnline, false)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.EffectiveSubtotal != 0 {
		t.Fatalf("effective subtotal must floor at 0, got %d", res.EffectiveSubtotal)
	}
	if res.Total < 0 {
		t.Fatalf("total must be non-negative, got %d", res.Total)
	}
}

func TestBreakdownSumsToTotal(t *testing.T) {
	e := testEngine(t)
	cases := []QuoteInput{
		{Subtotal: 999, Method: MethodOnline},
		{Subtotal: 1234, Method: MethodOnline, GiftWrap: true, Buyer: Buyer{FirstOrderEligible: true}},
		{Subtotal: 777, CouponCode: "SAVE50", Method: MethodCOD},
		{Subtotal: 45000, CouponCode: "FESTIVE20", Method: MethodOnline},
		{Subtotal: 1, Method: MethodCOD},
	}
	for _, in := range cases {
		res, err := e.Quote(in)
		if err != nil {
			t.Fatalf("quote %+v: %v", in, err)
		}
		sum := res.EffectiveSubtotal + res.Tax + res.Shipping + res.CODFee + res.GiftWrapFee + res.OnlineFee + res.OnlineFeeTax
		if sum != res.Total {
			t.Fatalf("line items sum %d != total %d for %+v", sum, res.Total, in)
		}
	}
}

func TestFeeMutualExclusivity(t *testing.T) {
	e := testEngine(t)
	cod, err := e.Quote(QuoteInput{Subtotal: 5000, Method: MethodCOD})
	if err != nil {
		t.Fatalf("cod quote: %v", err)
	}
	if cod.CODFee <= 0 || cod.OnlineFee != 0 || cod.OnlineFeeTax != 0 {
		t.Fatalf("cod breakdown invalid: %+v", cod)
	}
	online, err := e.Quote(QuoteInput{Subtotal: 5000, Method: MethodOnline})
	if err != nil {
		t.Fatalf("online quote: %v", err)
	}
	if online.OnlineFee <= 0 || online.CODFee != 0 {
		t.Fatalf("online breakdown invalid: %+v", online)
	}
}

func TestShippingDeferredFlag(t *testing.T) {
	e := testEngine(t)
	res, err := e.Quote(QuoteInput{Subtotal: 500, Method: MethodOnline})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if res.Shipping != 0 || !res.ShippingDeferred {
		t.Fatalf("shipping must be zero and flagged deferred: %+v", res)
	}
}
