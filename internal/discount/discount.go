// Package discount resolves operator-entered discount text into an absolute
// currency amount. Resolution is deliberately separate from the order total
// calculator, which only ever accepts a resolved amount.
package discount

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/glossydesign/pos-api/internal/pricing"
)

var (
	// ErrMalformed is returned when the input cannot be parsed as either a
	// percentage or a fixed amount.
	ErrMalformed = errors.New("malformed discount")
	// ErrExceedsSubtotal indicates the resolved amount was clamped to the
	// subtotal. The clamped amount is still returned alongside the error so
	// callers may treat it as a warning.
	ErrExceedsSubtotal = errors.New("discount exceeds subtotal")
)

// Kind discriminates percentage discounts from fixed amounts.
type Kind string

const (
	KindPercent Kind = "percent"
	KindFixed   Kind = "fixed"
)

// Spec is a parsed discount prior to resolution against a subtotal.
type Spec struct {
	Kind       Kind
	PercentBps int64
	Amount     pricing.Money
}

// Parse interprets operator input: "10%" is a percentage of the pre-discount
// subtotal, "20" or "-20" is a fixed amount in baht. An empty string parses as
// a zero fixed discount.
func Parse(input string) (Spec, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Spec{Kind: KindFixed}, nil
	}
	if strings.HasSuffix(trimmed, "%") {
		raw := strings.TrimSpace(strings.TrimSuffix(trimmed, "%"))
		pct, err := decimal.NewFromString(raw)
		if err != nil {
			return Spec{}, fmt.Errorf("percent %q: %w", input, ErrMalformed)
		}
		if pct.IsNegative() {
			pct = pct.Neg()
		}
		bps := pct.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		if bps > 10000 {
			bps = 10000
		}
		return Spec{Kind: KindPercent, PercentBps: bps}, nil
	}
	amount, err := decimal.NewFromString(strings.TrimPrefix(trimmed, "-"))
	if err != nil {
		return Spec{}, fmt.Errorf("amount %q: %w", input, ErrMalformed)
	}
	satang := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return Spec{Kind: KindFixed, Amount: satang}, nil
}

// Resolve converts the spec into an absolute amount against the pre-discount
// subtotal. Percentages resolve against the subtotal, never the post-tax
// total. The result is clamped to [0, subtotal]; when clamping occurred the
// clamped amount is returned together with ErrExceedsSubtotal.
func (s Spec) Resolve(subtotal pricing.Money) (pricing.Money, error) {
	var amount pricing.Money
	switch s.Kind {
	case KindPercent:
		amount = decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(s.PercentBps)).
			DivRound(decimal.NewFromInt(10000), 0).
			IntPart()
	default:
		amount = s.Amount
	}
	if amount < 0 {
		amount = 0
	}
	if amount > subtotal {
		return subtotal, fmt.Errorf("%d over subtotal %d: %w", amount, subtotal, ErrExceedsSubtotal)
	}
	return amount, nil
}

// ResolveText parses and resolves in one step for handler convenience.
func ResolveText(input string, subtotal pricing.Money) (pricing.Money, error) {
	spec, err := Parse(input)
	if err != nil {
		return 0, err
	}
	return spec.Resolve(subtotal)
}
