package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units (satang).
type Money = int64

// VATRateBps is the statutory VAT rate applied when a tax invoice is requested.
const VATRateBps = 700

// ErrInvalidItem is returned by Validate when a line carries a negative
// quantity or unit price.
var ErrInvalidItem = errors.New("invalid cart item")

// Item describes a line item used for order total calculation.
type Item struct {
	Qty         int
	UnitPrice   Money
	Deposit     Money
	Remaining   Money
	FullPayment bool
}

// Line is the per-item allocation produced by Compute. Total carries the
// item's share of the grand total; Deposit and Remaining always sum to Total.
type Line struct {
	Total     Money
	Deposit   Money
	Remaining Money
}

// Breakdown aggregates computed order totals together with the per-item
// allocation. Summing Lines reproduces the order-level figures exactly.
type Breakdown struct {
	Subtotal       Money
	Discount       Money
	VATAmount      Money
	GrandTotal     Money
	DepositTotal   Money
	RemainingTotal Money
	Lines          []Line
}

// Validate rejects malformed lines before calculation. Compute itself never
// fails; callers are expected to validate input at the boundary.
func Validate(items []Item) error {
	for i, it := range items {
		if it.Qty < 0 {
			return fmt.Errorf("item %d: negative quantity: %w", i, ErrInvalidItem)
		}
		if it.UnitPrice < 0 {
			return fmt.Errorf("item %d: negative unit price: %w", i, ErrInvalidItem)
		}
		if it.Deposit < 0 || it.Remaining < 0 {
			return fmt.Errorf("item %d: negative payment split: %w", i, ErrInvalidItem)
		}
	}
	return nil
}

// Compute calculates the full order breakdown given the cart lines, a resolved
// discount amount, and the VAT rate in basis points (0 when no tax invoice is
// requested).
//
// Discount and VAT are distributed across items proportionally to each item's
// share of the pre-discount subtotal. Allocation runs over cumulative weights
// so the rounded per-item totals always sum to the grand total without drift.
func Compute(items []Item, discount Money, taxBps int) Breakdown {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
	}

	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	final := subtotal - discount
	if final < 0 {
		final = 0
	}

	var vat Money
	if taxBps > 0 {
		vat = mulDivRound(final, int64(taxBps), 10000)
	}
	grand := final + vat

	lines := make([]Line, len(items))
	var depositTotal, remainingTotal Money
	var cumWeight, cumAllocated Money
	for i, it := range items {
		var weight Money
		if it.Qty > 0 {
			weight = Money(it.Qty) * it.UnitPrice
		}
		var adjusted Money
		if subtotal > 0 && weight > 0 {
			cumWeight += weight
			next := mulDivRound(grand, cumWeight, subtotal)
			adjusted = next - cumAllocated
			cumAllocated = next
		}

		line := Line{Total: adjusted}
		if it.FullPayment {
			line.Deposit = adjusted
		} else if weight > 0 {
			dep := it.Deposit
			if dep > weight {
				dep = weight
			}
			line.Deposit = mulDivRound(dep, adjusted, weight)
			line.Remaining = adjusted - line.Deposit
		}
		depositTotal += line.Deposit
		remainingTotal += line.Remaining
		lines[i] = line
	}

	return Breakdown{
		Subtotal:       subtotal,
		Discount:       discount,
		VATAmount:      vat,
		GrandTotal:     grand,
		DepositTotal:   depositTotal,
		RemainingTotal: remainingTotal,
		Lines:          lines,
	}
}

// mulDivRound computes a*b/c in decimal space rounded half up to whole minor
// units, avoiding both int64 overflow on the product and float drift.
func mulDivRound(a, b, c Money) Money {
	if c == 0 {
		return 0
	}
	return decimal.NewFromInt(a).
		Mul(decimal.NewFromInt(b)).
		DivRound(decimal.NewFromInt(c), 0).
		IntPart()
}
