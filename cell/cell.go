// Package cell is a minimal stand-in for the bit-addressed, content-addressed
// cell tree that spec.md §6 lists as an externally-consumed collaborator (the
// cell/BoC codec). The production codec is out of scope for the replayer
// core; this package exists only so the rest of the module has a concrete
// type to build, pack/unpack, and test against. It does not attempt the
// wire-exact BoC byte format — see DESIGN.md.
package cell

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

const (
	// MaxBits is the maximum number of data bits a single cell may hold.
	MaxBits = 1023
	// MaxRefs is the maximum number of child references a single cell may hold.
	MaxRefs = 4
)

var (
	// ErrOverflow is returned when a builder would exceed MaxBits or MaxRefs.
	ErrOverflow = errors.New("cell: overflow")
	// ErrOutOfRange is returned when a slice read runs past its cell's bounds.
	ErrOutOfRange = errors.New("cell: out of range")
)

// Cell is an immutable node of the bit/ref tree. Cells are shared by
// reference; nothing mutates a Cell after it is returned by Builder.Finalize.
type Cell struct {
	bits   []byte // packed big-endian, bitLen bits significant from the MSB of bits[0]
	bitLen int
	refs   []*Cell
	hash   [32]byte
	isExotic bool // reserved for library/pruned-branch style special cells
}

// BitLen returns the number of data bits stored in c.
func (c *Cell) BitLen() int { return c.bitLen }

// RefCount returns the number of child references stored in c.
func (c *Cell) RefCount() int { return len(c.refs) }

// Ref returns the i-th child reference.
func (c *Cell) Ref(i int) (*Cell, error) {
	if i < 0 || i >= len(c.refs) {
		return nil, fmt.Errorf("%w: ref %d of %d", ErrOutOfRange, i, len(c.refs))
	}
	return c.refs[i], nil
}

// IsExotic reports whether c is a special (non-ordinary) cell.
func (c *Cell) IsExotic() bool { return c.isExotic }

// Hash returns the 256-bit representation hash of c: a canonical hash over
// bitLen, the raw data bits and the hashes of every referenced child, taken
// in ref order. This is the hash used throughout the module for state_update
// pre/post pairs and for StateInit-vs-address matching; it is not the TON
// protocol's BoC representation hash (out of scope per §1).
func (c *Cell) Hash() [32]byte {
	if c.hash != ([32]byte{}) {
		return c.hash
	}
	h := sha256.New()
	var hdr [5]byte
	hdr[0] = byte(c.bitLen >> 8)
	hdr[1] = byte(c.bitLen)
	hdr[2] = byte(len(c.refs))
	if c.isExotic {
		hdr[3] = 1
	}
	h.Write(hdr[:])
	h.Write(c.bits)
	for _, r := range c.refs {
		rh := r.Hash()
		h.Write(rh[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	c.hash = out
	return out
}

// Equal reports whether two cells have identical content (by hash).
func (c *Cell) Equal(o *Cell) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Hash() == o.Hash()
}
