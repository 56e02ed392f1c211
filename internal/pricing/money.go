package pricing

// Money represents a monetary value in whole currency units. The store
// prices everything in rupees with no fractional part, so every derived
// amount is rounded to a whole unit the moment it is computed.
type Money = int64

// Item describes a line item used for subtotal calculation.
type Item struct {
	ProductID string
	Qty       int
	UnitPrice Money
}

// SubtotalOf sums the provided line items. Lines with a non-positive
// quantity are skipped.
func SubtotalOf(items []Item) Money {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 || it.UnitPrice <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
	}
	return subtotal
}

// mulBps applies a basis-point rate to an amount, rounding half-up to the
// nearest whole currency unit. Callers must pass a non-negative amount.
func mulBps(v Money, bps int) Money {
	if v <= 0 || bps <= 0 {
		return 0
	}
	return (v*Money(bps) + 5000) / 10000
}
