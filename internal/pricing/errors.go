package pricing

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when the caller passes malformed numeric
// data (negative subtotal or discount, unknown payment method). It marks
// a programming error upstream, never a user-facing condition.
var ErrInvalidInput = errors.New("pricing: invalid input")

// Reason classifies why a coupon was rejected.
type Reason string

const (
	// ReasonInvalidCoupon indicates the code is not in the registry.
	ReasonInvalidCoupon Reason = "INVALID_COUPON"
	// ReasonMinimumNotMet indicates the cart subtotal is below the coupon's
	// minimum. Recoverable: the buyer can add more items.
	ReasonMinimumNotMet Reason = "COUPON_MINIMUM_NOT_MET"
	// ReasonNotEligible indicates the buyer does not qualify, e.g. a
	// first-order coupon on a returning account.
	ReasonNotEligible Reason = "COUPON_NOT_ELIGIBLE"
)

// CouponError reports a coupon rejection together with the data the UI
// needs to render an inline message.
type CouponError struct {
	Reason Reason
	Code   string
	// RequiredMinimum carries the minimum subtotal for
	// ReasonMinimumNotMet, zero otherwise.
	RequiredMinimum Money
}

func (e *CouponError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Reason {
	case ReasonInvalidCoupon:
		return fmt.Sprintf("coupon %s is not valid", e.Code)
	case ReasonMinimumNotMet:
		return fmt.Sprintf("coupon %s requires a minimum order of %d", e.Code, e.RequiredMinimum)
	case ReasonNotEligible:
		return fmt.Sprintf("coupon %s cannot be applied to this account", e.Code)
	default:
		return fmt.Sprintf("coupon %s rejected", e.Code)
	}
}

// AsCouponError unwraps err into a CouponError if possible.
func AsCouponError(err error) (*CouponError, bool) {
	var ce *CouponError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
