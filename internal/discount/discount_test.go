package discount

import (
	"errors"
	"testing"
)

func TestParsePercent(t *testing.T) {
	spec, err := Parse("10%")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Kind != KindPercent || spec.PercentBps != 1000 {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	amount, err := spec.Resolve(25000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if amount != 2500 {
		t.Fatalf("expected 2500, got %d", amount)
	}
}

func TestParseFixedNegativeInput(t *testing.T) {
	spec, err := Parse("-20")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Kind != KindFixed || spec.Amount != 2000 {
		t.Fatalf("unexpected spec: %+v", spec)
	}
}

func TestParseFractionalAmount(t *testing.T) {
	spec, err := Parse("20.50")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Amount != 2050 {
		t.Fatalf("expected 2050 satang, got %d", spec.Amount)
	}
}

func TestParseEmptyIsZero(t *testing.T) {
	spec, err := Parse("  ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if amount, _ := spec.Resolve(10000); amount != 0 {
		t.Fatalf("expected zero discount, got %d", amount)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, input := range []string{"abc", "10%%", "1e%"} {
		if _, err := Parse(input); !errors.Is(err, ErrMalformed) {
			t.Fatalf("input %q: expected ErrMalformed, got %v", input, err)
		}
	}
}

func TestResolveClampsToSubtotal(t *testing.T) {
	spec := Spec{Kind: KindFixed, Amount: 50000}
	amount, err := spec.Resolve(30000)
	if !errors.Is(err, ErrExceedsSubtotal) {
		t.Fatalf("expected ErrExceedsSubtotal, got %v", err)
	}
	if amount != 30000 {
		t.Fatalf("clamped amount should equal subtotal, got %d", amount)
	}
}

func TestPercentCapsAtFull(t *testing.T) {
	spec, err := Parse("150%")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.PercentBps != 10000 {
		t.Fatalf("expected cap at 10000 bps, got %d", spec.PercentBps)
	}
}

func TestResolveText(t *testing.T) {
	amount, err := ResolveText("5%", 100000)
	if err != nil {
		t.Fatalf("resolve text: %v", err)
	}
	if amount != 5000 {
		t.Fatalf("expected 5000, got %d", amount)
	}
}
