package coupon

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Kind enumerates the supported coupon behaviours.
type Kind string

const (
	// KindFlat deducts a fixed amount from the subtotal.
	KindFlat Kind = "flat"
	// KindPercent deducts a percentage of the subtotal, optionally capped.
	KindPercent Kind = "percent"
	// KindFreeShipping waives the shipping fee and carries no monetary amount.
	KindFreeShipping Kind = "free_shipping"
)

// Definition is a single entry in the coupon registry.
type Definition struct {
	Code           string `json:"code"`
	Kind           Kind   `json:"kind"`
	Value          int64  `json:"value,omitempty"`
	PercentBps     int    `json:"percentBps,omitempty"`
	MaxDiscount    int64  `json:"maxDiscount,omitempty"`
	MinSubtotal    int64  `json:"minSubtotal,omitempty"`
	FirstOrderOnly bool   `json:"firstOrderOnly,omitempty"`
	Description    string `json:"description,omitempty"`
}

// Normalize canonicalizes a user-supplied code: trimmed and uppercased.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Registry is an immutable code-to-definition lookup table built once at
// startup. Lookups are safe for concurrent use.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry validates the definitions and builds the lookup table.
// Codes must be unique case-insensitively; every code maps to at most one
// definition.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for i, def := range defs {
		code := Normalize(def.Code)
		if code == "" {
			return nil, fmt.Errorf("coupon: definition %d has empty code", i)
		}
		if _, exists := r.defs[code]; exists {
			return nil, fmt.Errorf("coupon: duplicate code %s", code)
		}
		if err := validateDefinition(def); err != nil {
			return nil, fmt.Errorf("coupon: %s: %w", code, err)
		}
		def.Code = code
		r.defs[code] = def
		r.order = append(r.order, code)
	}
	return r, nil
}

func validateDefinition(def Definition) error {
	switch def.Kind {
	case KindFlat:
		if def.Value <= 0 {
			return fmt.Errorf("flat coupon requires a positive value")
		}
	case KindPercent:
		if def.PercentBps <= 0 || def.PercentBps > 10000 {
			return fmt.Errorf("percent coupon requires percentBps in (0, 10000]")
		}
	case KindFreeShipping:
	default:
		return fmt.Errorf("unknown kind %q", def.Kind)
	}
	if def.MinSubtotal < 0 || def.MaxDiscount < 0 {
		return fmt.Errorf("negative threshold")
	}
	return nil
}

// Lookup returns the definition for the given code after normalization.
func (r *Registry) Lookup(code string) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.defs[Normalize(code)]
	return def, ok
}

// All returns the definitions in registration order.
func (r *Registry) All() []Definition {
	if r == nil {
		return nil
	}
	out := make([]Definition, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.defs[code])
	}
	return out
}

// Len reports the number of registered definitions.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.defs)
}

// LoadFile reads coupon definitions from a JSON file. The file holds a
// plain array of definitions.
func LoadFile(path string) ([]Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("coupon: read %s: %w", path, err)
	}
	var defs []Definition
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("coupon: parse %s: %w", path, err)
	}
	return defs, nil
}

// Defaults returns the built-in coupon set used when no external file is
// configured.
func Defaults() []Definition {
	return []Definition{
		{
			Code:        "SAVE50",
			Kind:        KindFlat,
			Value:       50,
			MinSubtotal: 499,
			Description: "Rs. 50 off orders over Rs. 499",
		},
		{
			Code:           "WELCOME10",
			Kind:           KindPercent,
			PercentBps:     1000,
			MaxDiscount:    300,
			FirstOrderOnly: true,
			Description:    "10% off your first order, up to Rs. 300",
		},
		{
			Code:        "FREESHIP",
			Kind:        KindFreeShipping,
			MinSubtotal: 999,
			Description: "Free shipping on orders over Rs. 999",
		},
		{
			Code:        "FESTIVE20",
			Kind:        KindPercent,
			PercentBps:  2000,
			MaxDiscount: 500,
			MinSubtotal: 1999,
			Description: "20% off orders over Rs. 1999, up to Rs. 500",
		},
	}
}
