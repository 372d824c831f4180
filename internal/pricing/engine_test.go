package pricing

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func TestComputeFullPaymentAndDepositSplit(t *testing.T) {
	items := []Item{
		{Qty: 2, UnitPrice: 10000, FullPayment: true},
		{Qty: 1, UnitPrice: 5000, Deposit: 2000, Remaining: 3000},
	}
	b := Compute(items, 0, 0)
	if b.Subtotal != 25000 || b.GrandTotal != 25000 {
		t.Fatalf("unexpected totals: %+v", b)
	}
	if b.Lines[0].Deposit != 20000 || b.Lines[0].Remaining != 0 {
		t.Fatalf("full payment line: %+v", b.Lines[0])
	}
	if b.Lines[1].Deposit != 2000 || b.Lines[1].Remaining != 3000 {
		t.Fatalf("deposit line: %+v", b.Lines[1])
	}
	if b.DepositTotal != 22000 || b.RemainingTotal != 3000 {
		t.Fatalf("deposit totals: %+v", b)
	}
}

func TestComputeDiscountAndVAT(t *testing.T) {
	items := []Item{
		{Qty: 2, UnitPrice: 10000, FullPayment: true},
		{Qty: 1, UnitPrice: 5000, Deposit: 2000, Remaining: 3000},
	}
	b := Compute(items, 5000, VATRateBps)
	if b.Discount != 5000 {
		t.Fatalf("expected discount 5000, got %d", b.Discount)
	}
	if b.VATAmount != 1400 {
		t.Fatalf("expected vat 1400, got %d", b.VATAmount)
	}
	if b.GrandTotal != 21400 {
		t.Fatalf("expected grand total 21400, got %d", b.GrandTotal)
	}
	if b.Lines[0].Total != 17120 {
		t.Fatalf("expected first line total 17120, got %d", b.Lines[0].Total)
	}
	if b.Lines[1].Total != 4280 {
		t.Fatalf("expected second line total 4280, got %d", b.Lines[1].Total)
	}
	if b.Lines[1].Deposit != 1712 || b.Lines[1].Remaining != 2568 {
		t.Fatalf("rescaled split: %+v", b.Lines[1])
	}
	if got := b.Lines[0].Deposit + b.Lines[1].Deposit + b.Lines[1].Remaining; got != 21400 {
		t.Fatalf("allocation does not reconcile with grand total: %d", got)
	}
}

func TestComputeEmptyCart(t *testing.T) {
	b := Compute(nil, 2000, VATRateBps)
	if b.Subtotal != 0 || b.Discount != 0 || b.VATAmount != 0 || b.GrandTotal != 0 {
		t.Fatalf("empty cart should be all zero: %+v", b)
	}
	if b.DepositTotal != 0 || b.RemainingTotal != 0 {
		t.Fatalf("empty cart payment totals should be zero: %+v", b)
	}
}

func TestComputeDiscountClamp(t *testing.T) {
	items := []Item{{Qty: 1, UnitPrice: 1000}}
	b := Compute(items, 99999, 0)
	if b.Discount != 1000 {
		t.Fatalf("discount should clamp to subtotal, got %d", b.Discount)
	}
	if b.GrandTotal != 0 {
		t.Fatalf("grand total should floor at zero, got %d", b.GrandTotal)
	}
}

func TestComputeZeroPricedCart(t *testing.T) {
	items := []Item{
		{Qty: 3, UnitPrice: 0},
		{Qty: 0, UnitPrice: 5000},
	}
	b := Compute(items, 0, VATRateBps)
	if b.GrandTotal != 0 || b.DepositTotal != 0 || b.RemainingTotal != 0 {
		t.Fatalf("degenerate cart should compute to zero: %+v", b)
	}
	for i, line := range b.Lines {
		if line != (Line{}) {
			t.Fatalf("line %d should be zero: %+v", i, line)
		}
	}
}

func TestComputeIdempotent(t *testing.T) {
	items := []Item{
		{Qty: 7, UnitPrice: 333, Deposit: 1000, Remaining: 1331},
		{Qty: 2, UnitPrice: 4999, FullPayment: true},
		{Qty: 1, UnitPrice: 10, Deposit: 3, Remaining: 7},
	}
	first := Compute(items, 777, VATRateBps)
	second := Compute(items, 777, VATRateBps)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated computation diverged:\n%+v\n%+v", first, second)
	}
}

func TestComputeConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(8)
		items := make([]Item, n)
		for i := range items {
			price := Money(rng.Intn(500_000))
			qty := 1 + rng.Intn(20)
			total := Money(qty) * price
			dep := Money(0)
			if total > 0 {
				dep = Money(rng.Int63n(total + 1))
			}
			items[i] = Item{
				Qty:         qty,
				UnitPrice:   price,
				Deposit:     dep,
				Remaining:   total - dep,
				FullPayment: rng.Intn(3) == 0,
			}
		}
		var subtotal Money
		for _, it := range items {
			subtotal += Money(it.Qty) * it.UnitPrice
		}
		discount := Money(0)
		if subtotal > 0 {
			discount = Money(rng.Int63n(subtotal + 1))
		}
		b := Compute(items, discount, VATRateBps)
		if b.DepositTotal+b.RemainingTotal != b.GrandTotal {
			t.Fatalf("trial %d: deposit %d + remaining %d != grand %d",
				trial, b.DepositTotal, b.RemainingTotal, b.GrandTotal)
		}
		var lineSum Money
		for i, line := range b.Lines {
			if line.Deposit+line.Remaining != line.Total {
				t.Fatalf("trial %d line %d: split %d+%d != total %d",
					trial, i, line.Deposit, line.Remaining, line.Total)
			}
			if items[i].FullPayment && line.Remaining != 0 {
				t.Fatalf("trial %d line %d: full payment left remaining %d", trial, i, line.Remaining)
			}
			lineSum += line.Total
		}
		if lineSum != b.GrandTotal {
			t.Fatalf("trial %d: line sum %d != grand %d", trial, lineSum, b.GrandTotal)
		}
	}
}

func TestComputeVATToggle(t *testing.T) {
	items := []Item{
		{Qty: 3, UnitPrice: 12345, Deposit: 10000, Remaining: 27035},
		{Qty: 1, UnitPrice: 999, FullPayment: true},
	}
	without := Compute(items, 2500, 0)
	with := Compute(items, 2500, VATRateBps)
	expected := mulDivRound(without.GrandTotal, 107, 100)
	if diff := with.GrandTotal - expected; diff < -1 || diff > 1 {
		t.Fatalf("vat grand total %d should be %d within rounding", with.GrandTotal, expected)
	}
	if with.Subtotal != without.Subtotal || with.Discount != without.Discount {
		t.Fatalf("vat toggle must not affect subtotal or discount")
	}
}

func TestValidateRejectsNegativeInput(t *testing.T) {
	cases := []struct {
		name  string
		items []Item
	}{
		{"negative qty", []Item{{Qty: -1, UnitPrice: 100}}},
		{"negative price", []Item{{Qty: 1, UnitPrice: -100}}},
		{"negative deposit", []Item{{Qty: 1, UnitPrice: 100, Deposit: -1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Validate(tc.items); !errors.Is(err, ErrInvalidItem) {
				t.Fatalf("expected ErrInvalidItem, got %v", err)
			}
		})
	}
	if err := Validate([]Item{{Qty: 0, UnitPrice: 0}}); err != nil {
		t.Fatalf("zero values are valid: %v", err)
	}
}
