package money

import (
	"math"
	"testing"
)

func TestToMinor(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{500, 50000},
		{19.99, 1999},
		{0.005, 1},
		{1.005, 101},
		{0, 0},
	}
	for _, tc := range cases {
		if got := ToMinor(tc.in); got != tc.want {
			t.Fatalf("ToMinor(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestToMajor(t *testing.T) {
	if got := ToMajor(90000); got != 900 {
		t.Fatalf("expected 900, got %v", got)
	}
	if got := ToMajor(1999); got != 19.99 {
		t.Fatalf("expected 19.99, got %v", got)
	}
}

func TestApplyDiscount_Scenario(t *testing.T) {
	total := ToMinor(500) * 2
	discounted, discount := ApplyDiscount(total, 10)
	if discount != 10000 || discounted != 90000 {
		t.Fatalf("expected 90000 after 10000 discount, got %d/%d", discounted, discount)
	}
	if ToMajor(discounted) != 900 {
		t.Fatalf("expected 900 major units, got %v", ToMajor(discounted))
	}
}

func TestApplyDiscount_RoundsHalfUp(t *testing.T) {
	// 15 * 10% = 1.5 -> 2
	discounted, discount := ApplyDiscount(15, 10)
	if discount != 2 || discounted != 13 {
		t.Fatalf("unexpected rounding: %d/%d", discounted, discount)
	}
}

func TestApplyDiscount_NeverNegative(t *testing.T) {
	for _, pct := range []int{0, 50, 100, 150, -5} {
		for _, total := range []int64{0, 1, 99, 12345} {
			discounted, discount := ApplyDiscount(total, pct)
			if discounted < 0 {
				t.Fatalf("negative total for %d/%d", total, pct)
			}
			if discounted+discount != total {
				t.Fatalf("discount arithmetic broken for %d/%d: %d+%d", total, pct, discounted, discount)
			}
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid(10) || Valid(-1) || Valid(math.NaN()) || Valid(math.Inf(1)) {
		t.Fatalf("unexpected Valid results")
	}
}

func TestUnitMinor(t *testing.T) {
	if got, ok := UnitMinor(999999.99); !ok || got != MaxUnitMinor {
		t.Fatalf("expected max unit accepted, got %d %v", got, ok)
	}
	for _, in := range []float64{1000000, 1e17, -1, math.NaN()} {
		if _, ok := UnitMinor(in); ok {
			t.Fatalf("UnitMinor(%v) must be rejected", in)
		}
	}
}

func TestAddLine(t *testing.T) {
	if got, ok := AddLine(100, 250, 4); !ok || got != 1100 {
		t.Fatalf("expected 1100, got %d %v", got, ok)
	}
	if _, ok := AddLine(0, MaxUnitMinor, math.MaxInt64/1000); ok {
		t.Fatalf("line overflow must be rejected")
	}
	if _, ok := AddLine(math.MaxInt64-10, 1, 11); ok {
		t.Fatalf("total overflow must be rejected")
	}
	if got, ok := AddLine(math.MaxInt64-10, 1, 10); !ok || got != math.MaxInt64 {
		t.Fatalf("expected exact max, got %d %v", got, ok)
	}
}
