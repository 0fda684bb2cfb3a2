package chord

import (
	"crypto/sha256"
	"fmt"
	"math/big"
)

// Space describes the m-bit identifier ring shared by every member of a
// cluster. All arithmetic performed through it is implicitly modulo 2^m.
type Space struct {
	Bits    uint
	modulus *big.Int
}

// NewSpace builds an m-bit identifier space. m must be at least 1.
func NewSpace(bits uint) (*Space, error) {
	if bits == 0 {
		return nil, fmt.Errorf("identifier space: HASH_BIT_LENGTH must be >= 1")
	}
	return &Space{
		Bits:    bits,
		modulus: new(big.Int).Lsh(big.NewInt(1), bits),
	}, nil
}

// Modulus returns 2^m.
func (s *Space) Modulus() *big.Int {
	return new(big.Int).Set(s.modulus)
}

// Normalize reduces v into [0, 2^m).
func (s *Space) Normalize(v *big.Int) *big.Int {
	r := new(big.Int).Mod(v, s.modulus)
	if r.Sign() < 0 {
		r.Add(r, s.modulus)
	}
	return r
}

// Offset returns (id + 2^i) mod 2^m — the start of finger table entry i.
func (s *Space) Offset(id *big.Int, i uint) *big.Int {
	delta := new(big.Int).Lsh(big.NewInt(1), i)
	return s.Normalize(new(big.Int).Add(id, delta))
}

// Sub returns (id - 2^i) mod 2^m.
func (s *Space) Sub(id *big.Int, i uint) *big.Int {
	delta := new(big.Int).Lsh(big.NewInt(1), i)
	return s.Normalize(new(big.Int).Sub(id, delta))
}

// HashFunc produces an m-bit identifier from an opaque byte string, e.g.
// a (host, port) tuple. It is injectable per spec §6.
type HashFunc func(data []byte) *big.Int

// DefaultHashFunc returns the space's default identifier hash: SHA-256
// reduced modulo 2^m, the same shape as the teacher's
// sha256.Sum256+BigEndian.Uint64 default, generalized past 64 bits.
func (s *Space) DefaultHashFunc() HashFunc {
	return func(data []byte) *big.Int {
		sum := sha256.Sum256(data)
		v := new(big.Int).SetBytes(sum[:])
		return s.Normalize(v)
	}
}

// HashAddr hashes a (host, port) tuple into the ring using fn, falling
// back to the space's default hash when fn is nil.
func (s *Space) HashAddr(fn HashFunc, host string, port int) *big.Int {
	return s.HashKey(fn, []byte(fmt.Sprintf("%s:%d", host, port)))
}

// HashKey hashes an arbitrary byte string into the ring using fn,
// falling back to the space's default hash when fn is nil.
func (s *Space) HashKey(fn HashFunc, data []byte) *big.Int {
	if fn == nil {
		fn = s.DefaultHashFunc()
	}
	return fn(data)
}
