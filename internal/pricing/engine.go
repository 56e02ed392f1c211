package pricing

import (
	"fmt"
	"strings"

	"github.com/vedant-labs/backend-bazaar/internal/coupon"
)

// PaymentMethod selects which surcharge applies to the order. The two
// methods are mutually exclusive by construction: a COD order never pays
// the online convenience fee and vice versa.
type PaymentMethod string

const (
	// MethodOnline routes payment through the gateway and attracts the
	// convenience fee plus its tax.
	MethodOnline PaymentMethod = "online"
	// MethodCOD is cash on delivery and attracts the flat COD surcharge.
	MethodCOD PaymentMethod = "cod"
)

// ParseMethod validates a wire-format payment method string.
func ParseMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MethodOnline:
		return MethodOnline, nil
	case MethodCOD:
		return MethodCOD, nil
	default:
		return "", fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, s)
	}
}

// DiscountSource identifies which rule produced the applied discount.
type DiscountSource string

const (
	SourceNone       DiscountSource = "none"
	SourceCoupon     DiscountSource = "coupon"
	SourceFirstOrder DiscountSource = "first_order"
)

// Buyer carries the eligibility flags derived by the caller from order
// history. The engine never mutates it.
type Buyer struct {
	FirstOrderEligible bool
}

// Application is the outcome of a successful coupon evaluation. The
// caller decides whether to store it as applied.
type Application struct {
	Code         string `json:"code"`
	Amount       Money  `json:"amount"`
	FreeShipping bool   `json:"freeShipping"`
	Description  string `json:"description,omitempty"`
}

// Discount is a resolved discount: a single amount and its source.
type Discount struct {
	Amount Money          `json:"amount"`
	Source DiscountSource `json:"source"`
}

// Result is the full price breakdown. It is a value object: recomputed
// from scratch on every input change and never mutated in place. All
// fields are rounded per line so the displayed parts always sum to the
// displayed total.
type Result struct {
	Subtotal          Money          `json:"subtotal"`
	Discount          Money          `json:"discount"`
	DiscountSource    DiscountSource `json:"discountSource"`
	Coupon            string         `json:"coupon,omitempty"`
	EffectiveSubtotal Money          `json:"effectiveSubtotal"`
	Tax               Money          `json:"tax"`
	// Shipping is always zero at this stage; the fee is applied by the
	// fulfilment pipeline after packing. ShippingDeferred distinguishes
	// that from free shipping.
	Shipping         Money `json:"shipping"`
	ShippingDeferred bool  `json:"shippingDeferred"`
	FreeShipping     bool  `json:"freeShipping"`
	CODFee           Money `json:"codFee"`
	GiftWrapFee      Money `json:"giftWrapFee"`
	OnlineFee        Money `json:"onlineFee"`
	OnlineFeeTax     Money `json:"onlineFeeTax"`
	Total            Money `json:"total"`
}

// Config holds the engine's rate and fee knobs. Zero values fall back to
// the store defaults.
type Config struct {
	TaxBps          int
	CODFee          Money
	GiftWrapFee     Money
	OnlineFeeBps    int
	OnlineFeeTaxBps int
	FirstOrderBps   int
	FirstOrderCap   Money
}

const (
	defaultTaxBps          = 1800
	defaultCODFee          = 25
	defaultOnlineFeeBps    = 200
	defaultOnlineFeeTaxBps = 1800
	defaultFirstOrderBps   = 1000
	defaultFirstOrderCap   = 300
)

func (c Config) withDefaults() Config {
	if c.TaxBps <= 0 {
		c.TaxBps = defaultTaxBps
	}
	if c.CODFee <= 0 {
		c.CODFee = defaultCODFee
	}
	if c.OnlineFeeBps <= 0 {
		c.OnlineFeeBps = defaultOnlineFeeBps
	}
	if c.OnlineFeeTaxBps <= 0 {
		c.OnlineFeeTaxBps = defaultOnlineFeeTaxBps
	}
	if c.FirstOrderBps <= 0 {
		c.FirstOrderBps = defaultFirstOrderBps
	}
	if c.FirstOrderCap <= 0 {
		c.FirstOrderCap = defaultFirstOrderCap
	}
	return c
}

// Engine computes a full price breakdown from cart, coupon, payment
// method, and buyer eligibility. It is pure: no I/O, no side effects,
// identical inputs produce identical output, and concurrent use needs no
// coordination.
type Engine struct {
	cfg     Config
	coupons *coupon.Registry
}

// New builds an engine over the provided registry.
func New(cfg Config, reg *coupon.Registry) *Engine {
	return &Engine{cfg: cfg.withDefaults(), coupons: reg}
}

// Registry exposes the engine's coupon registry for read-only consumers.
func (e Engine) Registry() *coupon.Registry {
	return e.coupons
}

// EvaluateCoupon validates a code against the registry, the current
// subtotal, and the buyer's eligibility. An empty code (after trimming)
// means "no coupon" and returns nil without error. Evaluation has no side
// effects; the caller decides whether to store the application.
func (e Engine) EvaluateCoupon(code string, subtotal Money, buyer Buyer) (*Application, error) {
	normalized := coupon.Normalize(code)
	if normalized == "" {
		return nil, nil
	}
	if subtotal < 0 {
		return nil, ErrInvalidInput
	}
	def, ok := e.coupons.Lookup(normalized)
	if !ok {
		return nil, &CouponError{Reason: ReasonInvalidCoupon, Code: normalized}
	}
	if def.MinSubtotal > 0 && subtotal < def.MinSubtotal {
		return nil, &CouponError{Reason: ReasonMinimumNotMet, Code: normalized, RequiredMinimum: def.MinSubtotal}
	}
	if def.FirstOrderOnly && !buyer.FirstOrderEligible {
		return nil, &CouponError{Reason: ReasonNotEligible, Code: normalized}
	}
	app := &Application{Code: def.Code, Description: def.Description}
	switch def.Kind {
	case coupon.KindFlat:
		app.Amount = def.Value
	case coupon.KindPercent:
		app.Amount = mulBps(subtotal, def.PercentBps)
		if def.MaxDiscount > 0 && app.Amount > def.MaxDiscount {
			app.Amount = def.MaxDiscount
		}
	case coupon.KindFreeShipping:
		app.FreeShipping = true
	}
	if app.Amount > subtotal {
		app.Amount = subtotal
	}
	return app, nil
}

// FirstOrderDiscount computes the automatic first-order discount: a flat
// percentage with a hard absolute cap, zero for ineligible buyers or
// empty carts.
func (e Engine) FirstOrderDiscount(subtotal Money, buyer Buyer) Money {
	if !buyer.FirstOrderEligible || subtotal <= 0 {
		return 0
	}
	d := mulBps(subtotal, e.cfg.FirstOrderBps)
	if d > e.cfg.FirstOrderCap {
		d = e.cfg.FirstOrderCap
	}
	return d
}

// ResolveBestDiscount selects the single discount to apply. Coupon and
// first-order discounts never stack: the larger monetary amount wins, and
// on a tie the coupon wins because applying it was an explicit user
// action. A pure free-shipping coupon carries no monetary amount, so the
// first-order discount still applies underneath it.
func (e Engine) ResolveBestDiscount(app *Application, subtotal Money, buyer Buyer) Discount {
	natural := e.FirstOrderDiscount(subtotal, buyer)
	if app == nil || app.Amount <= 0 {
		if natural > 0 {
			return Discount{Amount: natural, Source: SourceFirstOrder}
		}
		return Discount{Source: SourceNone}
	}
	if app.Amount >= natural {
		return Discount{Amount: app.Amount, Source: SourceCoupon}
	}
	return Discount{Amount: natural, Source: SourceFirstOrder}
}

// ComputeTotal assembles the breakdown from an already-resolved discount.
// The fee order is fixed: tax on goods after the discount, then gift
// wrap, then exactly one of the COD surcharge or the online convenience
// fee. The online fee is computed on a base that excludes itself and is
// taxed separately. Negative inputs fail fast with ErrInvalidInput.
func (e Engine) ComputeTotal(subtotal Money, d Discount, method PaymentMethod, giftWrap bool) (Result, error) {
	if subtotal < 0 || d.Amount < 0 {
		return Result{}, ErrInvalidInput
	}
	if method != MethodOnline && method != MethodCOD {
		return Result{}, ErrInvalidInput
	}
	effective := subtotal - d.Amount
	if effective < 0 {
		effective = 0
	}
	res := Result{
		Subtotal:          subtotal,
		Discount:          d.Amount,
		DiscountSource:    d.Source,
		EffectiveSubtotal: effective,
		Tax:               mulBps(effective, e.cfg.TaxBps),
		Shipping:          0,
		ShippingDeferred:  true,
	}
	if res.DiscountSource == "" {
		res.DiscountSource = SourceNone
	}
	if giftWrap {
		res.GiftWrapFee = e.cfg.GiftWrapFee
	}
	switch method {
	case MethodCOD:
		res.CODFee = e.cfg.CODFee
	case MethodOnline:
		base := effective + res.Tax + res.Shipping + res.GiftWrapFee
		res.OnlineFee = mulBps(base, e.cfg.OnlineFeeBps)
		res.OnlineFeeTax = mulBps(res.OnlineFee, e.cfg.OnlineFeeTaxBps)
	}
	res.Total = res.EffectiveSubtotal + res.Tax + res.Shipping + res.CODFee + res.GiftWrapFee + res.OnlineFee + res.OnlineFeeTax
	if res.Total < 0 {
		res.Total = 0
	}
	return res, nil
}

// QuoteInput bundles the inputs for a full pipeline run.
type QuoteInput struct {
	Subtotal   Money
	CouponCode string
	Method     PaymentMethod
	GiftWrap   bool
	Buyer      Buyer
}

// Quote runs coupon evaluation, discount resolution, and total
// computation in one call. Coupon rejections surface as *CouponError.
func (e Engine) Quote(in QuoteInput) (Result, error) {
	if in.Subtotal < 0 {
		return Result{}, ErrInvalidInput
	}
	app, err := e.EvaluateCoupon(in.CouponCode, in.Subtotal, in.Buyer)
	if err != nil {
		return Result{}, err
	}
	d := e.ResolveBestDiscount(app, in.Subtotal, in.Buyer)
	res, err := e.ComputeTotal(in.Subtotal, d, in.Method, in.GiftWrap)
	if err != nil {
		return Result{}, err
	}
	if app != nil {
		res.Coupon = app.Code
		res.FreeShipping = app.FreeShipping
	}
	return res, nil
}
