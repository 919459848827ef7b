// Package actionlist encodes and decodes the linked list of action cells
// the VM emits for the Action phase to execute, per spec.md §4.E.4.
package actionlist

import (
	"fmt"

	"github.com/tonreplay/replayer/cell"
)

// Kind discriminates the four recognized action types.
type Kind uint8

const (
	KindSendMsg Kind = iota
	KindReserve
	KindSetCode
	KindChangeLibrary
)

// ReserveMode selects how Reserve's Amount is interpreted against the
// running balance, per spec.md §4.E.4.
type ReserveMode uint8

const (
	ReserveExact ReserveMode = iota
	ReserveAllBut
	ReserveAtMost
)

const (
	// ReserveFlagIgnoreError mirrors send mode 0x02: failures are
	// swallowed rather than aborting the phase.
	ReserveFlagIgnoreError uint8 = 0x02
	// ReserveFlagNegate mirrors the "signed" reserve variant that treats
	// Amount as a deduction from the balance rather than a target.
	ReserveFlagNegate uint8 = 0x10
)

// Entry is one node of the action list.
type Entry struct {
	Kind Kind

	// SendMsg. Mode is 9 bits wide on the wire (0x001..0x1ff) since send
	// mode 0x100 (delete account if balance becomes zero) extends beyond
	// the 8-bit base mode byte.
	Mode uint16
	Msg  *cell.Cell

	// Reserve
	ReserveMode  ReserveMode
	ReserveFlags uint8
	Amount       *cell.Cell // a money.Grams-encoded sub-cell

	// SetCode
	NewCode *cell.Cell

	// ChangeLibrary
	LibMode uint8
	Lib     *cell.Cell
}

// List is an ordered action list, head first (VM emission order).
type List struct {
	Entries []Entry
}

// Encode builds the cons-list cell chain: each node stores a presence bit
// for "has next", the entry's tag and fields, and a ref to the following
// node when present.
func Encode(l List) (*cell.Cell, error) {
	return encodeFrom(l.Entries)
}

func encodeFrom(entries []Entry) (*cell.Cell, error) {
	b := cell.NewBuilder()
	hasNext := len(entries) > 1
	if err := b.StoreBit(hasNext); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return b.Finalize()
	}
	e := entries[0]
	if err := b.StoreUint(uint64(e.Kind), 8); err != nil {
		return nil, err
	}
	switch e.Kind {
	case KindSendMsg:
		if err := b.StoreUint(uint64(e.Mode), 9); err != nil {
			return nil, err
		}
		if err := b.StoreRef(e.Msg); err != nil {
			return nil, err
		}
	case KindReserve:
		if err := b.StoreUint(uint64(e.ReserveMode), 8); err != nil {
			return nil, err
		}
		if err := b.StoreUint(uint64(e.ReserveFlags), 8); err != nil {
			return nil, err
		}
		if err := b.StoreRef(e.Amount); err != nil {
			return nil, err
		}
	case KindSetCode:
		if err := b.StoreRef(e.NewCode); err != nil {
			return nil, err
		}
	case KindChangeLibrary:
		if err := b.StoreUint(uint64(e.LibMode), 8); err != nil {
			return nil, err
		}
		if err := b.StoreMaybeRef(e.Lib); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("actionlist: unknown kind %d", e.Kind)
	}
	if hasNext {
		next, err := encodeFrom(entries[1:])
		if err != nil {
			return nil, err
		}
		if err := b.StoreRef(next); err != nil {
			return nil, err
		}
	}
	return b.Finalize()
}

// Decode walks an action-list cell chain back into a List, preserving
// head-first order.
func Decode(root *cell.Cell) (List, error) {
	var out []Entry
	node := root
	for node != nil {
		s := cell.NewSlice(node)
		hasNext, err := s.LoadBit()
		if err != nil {
			return List{}, err
		}
		if s.RemainingBits() == 0 && s.RemainingRefs() == 0 {
			break
		}
		kindV, err := s.LoadUint(8)
		if err != nil {
			return List{}, err
		}
		e := Entry{Kind: Kind(kindV)}
		switch e.Kind {
		case KindSendMsg:
			m, err := s.LoadUint(9)
			if err != nil {
				return List{}, err
			}
			e.Mode = uint16(m)
			if e.Msg, err = s.LoadRef(); err != nil {
				return List{}, err
			}
		case KindReserve:
			rm, err := s.LoadUint(8)
			if err != nil {
				return List{}, err
			}
			e.ReserveMode = ReserveMode(rm)
			rf, err := s.LoadUint(8)
			if err != nil {
				return List{}, err
			}
			e.ReserveFlags = uint8(rf)
			if e.Amount, err = s.LoadRef(); err != nil {
				return List{}, err
			}
		case KindSetCode:
			var err error
			if e.NewCode, err = s.LoadRef(); err != nil {
				return List{}, err
			}
		case KindChangeLibrary:
			lm, err := s.LoadUint(8)
			if err != nil {
				return List{}, err
			}
			e.LibMode = uint8(lm)
			if e.Lib, err = s.LoadMaybeRef(); err != nil {
				return List{}, err
			}
		default:
			return List{}, fmt.Errorf("actionlist: unknown kind %d", e.Kind)
		}
		out = append(out, e)
		if !hasNext {
			break
		}
		node, err = s.LoadRef()
		if err != nil {
			return List{}, fmt.Errorf("actionlist: missing chained node: %w", err)
		}
	}
	return List{Entries: out}, nil
}

// Send-mode bitset values recognized by the Action phase, per spec.md §4.E.4.
const (
	ModePayFeesSeparately uint16 = 0x01
	ModeIgnoreErrors      uint16 = 0x02
	ModeBounceOnFail      uint16 = 0x20
	ModeCarryInboundValue uint16 = 0x40
	ModeCarryAllBalance   uint16 = 0x80
	ModeDeleteIfZero      uint16 = 0x100
)
