package chord

import (
	"math/big"
	"testing"
)

func bi(v int64) *big.Int { return big.NewInt(v) }

func TestIsInModuloRangeNonWrapping(t *testing.T) {
	// ring of m=3: [0, 8). Interval (1, 5).
	cases := []struct {
		value    int64
		expected bool
	}{
		{0, false},
		{1, false},
		{2, true},
		{4, true},
		{5, false},
		{6, false},
	}
	for _, c := range cases {
		got := IsInModuloRange(bi(c.value), bi(1), false, bi(5), false)
		if got != c.expected {
			t.Errorf("IsInModuloRange(%d, (1,5)) = %v, expected %v", c.value, got, c.expected)
		}
	}
}

func TestIsInModuloRangeWrapping(t *testing.T) {
	// m=3 ring: arc wraps from 6 to 2 through 0, i.e. {7, 0, 1, 2}.
	cases := []struct {
		value    int64
		expected bool
	}{
		{6, false},
		{7, true},
		{0, true},
		{1, true},
		{2, true},
		{3, false},
		{5, false},
	}
	for _, c := range cases {
		got := IsInModuloRange(bi(c.value), bi(6), false, bi(2), true)
		if got != c.expected {
			t.Errorf("IsInModuloRange(%d, (6,2]) = %v, expected %v", c.value, got, c.expected)
		}
	}
}

func TestIsInModuloRangeEndpointInclusivity(t *testing.T) {
	// low=2, high=5: endpoints are independently toggled.
	if IsInModuloRange(bi(2), bi(2), false, bi(5), false) {
		t.Error("exclusive low must reject the low endpoint itself")
	}
	if !IsInModuloRange(bi(2), bi(2), true, bi(5), false) {
		t.Error("inclusive low must accept the low endpoint itself")
	}
	if IsInModuloRange(bi(5), bi(2), false, bi(5), false) {
		t.Error("exclusive high must reject the high endpoint itself")
	}
	if !IsInModuloRange(bi(5), bi(2), false, bi(5), true) {
		t.Error("inclusive high must accept the high endpoint itself")
	}
}

func TestIsInModuloRangeFullRing(t *testing.T) {
	// low == high: the arc is the entire ring when at least one endpoint
	// is inclusive, empty otherwise.
	if !IsInModuloRange(bi(3), bi(4), true, bi(4), false) {
		t.Error("low==high with an inclusive endpoint must cover the whole ring")
	}
	if IsInModuloRange(bi(3), bi(4), false, bi(4), false) {
		t.Error("low==high with both endpoints exclusive must cover nothing")
	}
}
