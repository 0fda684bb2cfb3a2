package chord

import (
	"math/big"
	"testing"
)

func TestNewSpaceRejectsZeroBits(t *testing.T) {
	if _, err := NewSpace(0); err == nil {
		t.Error("expected an error for a 0-bit identifier space")
	}
}

func TestSpaceNormalizeWraps(t *testing.T) {
	space, err := NewSpace(3) // ring size 8
	if err != nil {
		t.Fatal(err)
	}

	got := space.Normalize(big.NewInt(11))
	if got.Cmp(big.NewInt(3)) != 0 {
		t.Errorf("Normalize(11) on an 8-ring = %v, expected 3", got)
	}

	got = space.Normalize(big.NewInt(-1))
	if got.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("Normalize(-1) on an 8-ring = %v, expected 7", got)
	}
}

func TestSpaceOffsetAndSub(t *testing.T) {
	space, err := NewSpace(3)
	if err != nil {
		t.Fatal(err)
	}

	// id=1, i=2 -> (1 + 4) mod 8 = 5
	if got := space.Offset(big.NewInt(1), 2); got.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("Offset(1, 2) = %v, expected 5", got)
	}
	// id=1, i=2 -> (1 - 4) mod 8 = 5
	if got := space.Sub(big.NewInt(1), 2); got.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("Sub(1, 2) = %v, expected 5", got)
	}
}

func TestDefaultHashFuncIsDeterministicAndBounded(t *testing.T) {
	space, err := NewSpace(8) // ring size 256
	if err != nil {
		t.Fatal(err)
	}
	fn := space.DefaultHashFunc()

	a := fn([]byte("node-a:9000"))
	b := fn([]byte("node-a:9000"))
	if a.Cmp(b) != 0 {
		t.Errorf("DefaultHashFunc is not deterministic: %v != %v", a, b)
	}

	if a.Sign() < 0 || a.Cmp(space.Modulus()) >= 0 {
		t.Errorf("hash %v falls outside [0, 2^m)", a)
	}

	c := fn([]byte("node-b:9001"))
	if a.Cmp(c) == 0 {
		t.Skip("hash collision between distinct inputs, astronomically unlikely but not a contract violation")
	}
}

func TestHashAddrUsesInjectedFunc(t *testing.T) {
	space, err := NewSpace(8)
	if err != nil {
		t.Fatal(err)
	}

	called := false
	fn := HashFunc(func(data []byte) *big.Int {
		called = true
		return big.NewInt(42)
	})

	got := space.HashAddr(fn, "host", 1234)
	if !called {
		t.Error("HashAddr did not invoke the injected HashFunc")
	}
	if got.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("HashAddr = %v, expected 42", got)
	}
}
