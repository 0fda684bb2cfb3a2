package chord

import "math/big"

// IsInModuloRange reports whether value lies on the clockwise arc from
// low to high on a 2^m ring, with independently configurable endpoint
// inclusivity. It is the single source of truth for ring arithmetic:
// every other component calls this instead of hand-rolling comparisons.
//
// value, low and high must already be reduced into the ring (0 <= x < 2^m);
// callers normalize through Space.Normalize before calling this.
func IsInModuloRange(value, low *big.Int, lowInclusive bool, high *big.Int, highInclusive bool) bool {
	switch low.Cmp(high) {
	case 0:
		// low == high: the arc is the entire ring.
		return lowInclusive || highInclusive
	case -1:
		// low < high: standard, non-wrapping interval.
		return aboveLow(value, low, lowInclusive) && belowHigh(value, high, highInclusive)
	default:
		// low > high: the arc wraps through 0.
		return aboveLow(value, low, lowInclusive) || belowHigh(value, high, highInclusive)
	}
}

func aboveLow(value, low *big.Int, inclusive bool) bool {
	cmp := value.Cmp(low)
	if inclusive {
		return cmp >= 0
	}
	return cmp > 0
}

func belowHigh(value, high *big.Int, inclusive bool) bool {
	cmp := value.Cmp(high)
	if inclusive {
		return cmp <= 0
	}
	return cmp < 0
}
