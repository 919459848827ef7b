package cell

import "fmt"

// Slice is a read-view into a Cell's data and references with a cursor, the
// read-side counterpart of Builder.
type Slice struct {
	c      *Cell
	bitPos int
	refPos int
}

// NewSlice returns a Slice positioned at the start of c. A nil c yields an
// empty slice (used for the "no value" case of optional cell fields).
func NewSlice(c *Cell) *Slice {
	return &Slice{c: c}
}

// RemainingBits reports how many unread data bits remain.
func (s *Slice) RemainingBits() int {
	if s.c == nil {
		return 0
	}
	return s.c.bitLen - s.bitPos
}

// RemainingRefs reports how many unread references remain.
func (s *Slice) RemainingRefs() int {
	if s.c == nil {
		return 0
	}
	return len(s.c.refs) - s.refPos
}

func (s *Slice) need(bits int) error {
	if bits < 0 || bits > s.RemainingBits() {
		return fmt.Errorf("%w: need %d bits, have %d", ErrOutOfRange, bits, s.RemainingBits())
	}
	return nil
}

// LoadBit reads and consumes one bit.
func (s *Slice) LoadBit() (bool, error) {
	if err := s.need(1); err != nil {
		return false, err
	}
	byteIdx := s.bitPos / 8
	bit := s.c.bits[byteIdx]&(1<<(7-uint(s.bitPos%8))) != 0
	s.bitPos++
	return bit, nil
}

// LoadUint reads `bits` bits (0..64) as a big-endian unsigned integer.
func (s *Slice) LoadUint(bits int) (uint64, error) {
	if bits < 0 || bits > 64 {
		return 0, fmt.Errorf("cell: invalid uint width %d", bits)
	}
	if err := s.need(bits); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < bits; i++ {
		bit, err := s.LoadBit()
		if err != nil {
			return 0, err
		}
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return v, nil
}

// LoadInt reads `bits` bits as a two's-complement signed integer.
func (s *Slice) LoadInt(bits int) (int64, error) {
	u, err := s.LoadUint(bits)
	if err != nil {
		return 0, err
	}
	if bits < 64 && u&(1<<uint(bits-1)) != 0 {
		return int64(u) - (1 << uint(bits)), nil
	}
	return int64(u), nil
}

// LoadBits reads `bits` bits into a freshly allocated, MSB-first byte slice.
func (s *Slice) LoadBits(bits int) ([]byte, error) {
	if err := s.need(bits); err != nil {
		return nil, err
	}
	out := make([]byte, (bits+7)/8)
	for i := 0; i < bits; i++ {
		bit, err := s.LoadBit()
		if err != nil {
			return nil, err
		}
		if bit {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return out, nil
}

// LoadRef consumes and returns the next child reference.
func (s *Slice) LoadRef() (*Cell, error) {
	if s.RemainingRefs() <= 0 {
		return nil, fmt.Errorf("%w: no more refs", ErrOutOfRange)
	}
	r := s.c.refs[s.refPos]
	s.refPos++
	return r, nil
}

// LoadMaybeRef is the read-side counterpart of Builder.StoreMaybeRef.
func (s *Slice) LoadMaybeRef() (*Cell, error) {
	present, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return s.LoadRef()
}

// Rest returns a slice over the bits that still remain.
func (s *Slice) Rest() []byte {
	rem := s.RemainingBits()
	if rem <= 0 {
		return nil
	}
	b, _ := (&Slice{c: s.c, bitPos: s.bitPos}).LoadBits(rem)
	return b
}
