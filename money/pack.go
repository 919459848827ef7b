package money

import (
	"fmt"

	"github.com/tonreplay/replayer/cell"
)

// Store writes g using the `(len:4, value:8*len)` variable-length grams
// encoding of spec.md §4.A.
func (g Grams) Store(b *cell.Builder) error {
	n := g.EncodedLen()
	if n > MaxGramsLen {
		return fmt.Errorf("%w: encoded length %d exceeds %d", ErrOverflow, n, MaxGramsLen)
	}
	if err := b.StoreUint(uint64(n), 4); err != nil {
		return err
	}
	bytes := g.v.Bytes32()
	// Bytes32 is big-endian, 32 bytes wide; take the low n bytes.
	return b.StoreBits(bytes[32-n:], n*8)
}

// LoadGrams reads a value previously written by Grams.Store.
func LoadGrams(s *cell.Slice) (Grams, error) {
	n, err := s.LoadUint(4)
	if err != nil {
		return Grams{}, err
	}
	if n == 0 {
		return Zero, nil
	}
	raw, err := s.LoadBits(int(n) * 8)
	if err != nil {
		return Grams{}, err
	}
	var g Grams
	g.v.SetBytes(raw)
	return g, nil
}
