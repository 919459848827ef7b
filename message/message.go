// Package message models inbound/outbound message envelopes and their
// address/fee derivation, per spec.md §4.C.
package message

import (
	"errors"
	"fmt"

	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/money"
	"github.com/tonreplay/replayer/netconfig"
)

// Kind discriminates the three message envelope shapes.
type Kind int

const (
	KindExternalIn Kind = iota
	KindInternal
	KindExternalOut
)

// Message is the parsed envelope of an inbound or outbound message.
type Message struct {
	Kind Kind

	Src  addr.MsgAddress
	Dest addr.MsgAddress

	Value money.CurrencyCollection // internal only
	Bounce bool                    // internal only: may the contract request a bounce
	Bounced bool                   // internal only: is this itself a bounce reply

	IhrFee money.Grams
	FwdFee money.Grams

	CreatedLT   uint64
	CreatedAt   uint32

	Init *StateInit // optional: code+data bundle to initialize an uninit account
	Body *cell.Cell // message payload, may be nil
}

// StateInit bundles the code and data a message may carry to initialize
// an uninitialized account, per the GLOSSARY's StateInit entry. Compute
// verifies its hash matches the destination address before running it.
type StateInit struct {
	Code *cell.Cell
	Data *cell.Cell
}

// Hash derives the address StateInit would initialize, by hashing its
// code and data cells together — a simplified stand-in for the real
// protocol's StateInit hash, which additionally covers split_depth,
// special, and library fields (out of scope per spec.md §1's cell/TL-B
// boundary).
func (si *StateInit) Hash() [32]byte {
	b := cell.NewBuilder()
	_ = b.StoreMaybeRef(si.Code)
	_ = b.StoreMaybeRef(si.Data)
	c, err := b.Finalize()
	if err != nil {
		return [32]byte{}
	}
	return c.Hash()
}

// ErrRejected marks a non-fatal external rejection per spec.md §7: the
// caller should treat this as "no transaction", not as an error.
var ErrRejected = errors.New("message: rejected")

// ErrBadDestination marks a message whose destination is not a standard
// address this replayer can route — external messages are rejected;
// internal messages reaching this error indicate an upstream bug
// (spec.md §4.C) and the caller should treat it as aborting the transaction.
var ErrBadDestination = errors.New("message: destination is not a standard address")

const (
	tagExternalIn  = 0
	tagInternal    = 1
	tagExternalOut = 2
)

// PeekKind reads just the two-bit tag of msgCell without decoding the
// rest, so a caller that has already hit ErrBadDestination from ParseIn
// (which discards the partially-parsed Kind) can still recover it to
// decide whether the failure is an external rejection or an internal
// fatal error, per SPEC_FULL.md §5.3.
func PeekKind(msgCell *cell.Cell) (Kind, error) {
	s := cell.NewSlice(msgCell)
	tag, err := s.LoadUint(2)
	if err != nil {
		return 0, fmt.Errorf("message: peek tag: %w", err)
	}
	switch tag {
	case tagExternalIn:
		return KindExternalIn, nil
	case tagInternal:
		return KindInternal, nil
	case tagExternalOut:
		return KindExternalOut, nil
	default:
		return 0, fmt.Errorf("message: unknown tag %d", tag)
	}
}

// ParseIn decodes a message cell into a Message, per spec.md §4.C.
// For external-in messages the destination MUST resolve to a standard
// address of the current workchain: callers are expected to check
// Dest.Workchain against wantWorkchain and treat a mismatch as an
// ErrRejected for external input, or a fatal abort for internal input —
// ParseIn itself only extracts fields and reports ErrBadDestination when
// the address form isn't std at all.
func ParseIn(msgCell *cell.Cell) (*Message, error) {
	s := cell.NewSlice(msgCell)
	tag, err := s.LoadUint(2)
	if err != nil {
		return nil, fmt.Errorf("message: parse tag: %w", err)
	}

	m := &Message{}
	switch tag {
	case tagExternalIn:
		m.Kind = KindExternalIn
		dest, err := loadMsgAddress(s)
		if err != nil {
			return nil, fmt.Errorf("message: parse dest: %w", err)
		}
		m.Dest = dest
		if _, err := dest.Std(); err != nil {
			return nil, ErrBadDestination
		}
	case tagInternal:
		m.Kind = KindInternal
		src, err := loadMsgAddress(s)
		if err != nil {
			return nil, fmt.Errorf("message: parse src: %w", err)
		}
		m.Src = src
		dest, err := loadMsgAddress(s)
		if err != nil {
			return nil, fmt.Errorf("message: parse dest: %w", err)
		}
		m.Dest = dest
		if _, err := dest.Std(); err != nil {
			return nil, ErrBadDestination
		}
		if m.Value, err = money.LoadCurrencyCollection(s); err != nil {
			return nil, fmt.Errorf("message: parse value: %w", err)
		}
		if m.Bounce, err = s.LoadBit(); err != nil {
			return nil, fmt.Errorf("message: parse bounce: %w", err)
		}
		if m.Bounced, err = s.LoadBit(); err != nil {
			return nil, fmt.Errorf("message: parse bounced: %w", err)
		}
		if m.IhrFee, err = money.LoadGrams(s); err != nil {
			return nil, fmt.Errorf("message: parse ihr_fee: %w", err)
		}
		if m.FwdFee, err = money.LoadGrams(s); err != nil {
			return nil, fmt.Errorf("message: parse fwd_fee: %w", err)
		}
		if m.CreatedLT, err = s.LoadUint(64); err != nil {
			return nil, fmt.Errorf("message: parse created_lt: %w", err)
		}
		ca, err := s.LoadUint(32)
		if err != nil {
			return nil, fmt.Errorf("message: parse created_at: %w", err)
		}
		m.CreatedAt = uint32(ca)
		hasInit, err := s.LoadBit()
		if err != nil {
			return nil, fmt.Errorf("message: parse init presence: %w", err)
		}
		if hasInit {
			initCell, err := s.LoadRef()
			if err != nil {
				return nil, fmt.Errorf("message: parse init: %w", err)
			}
			si, err := loadStateInit(initCell)
			if err != nil {
				return nil, fmt.Errorf("message: decode init: %w", err)
			}
			m.Init = si
		}
	case tagExternalOut:
		m.Kind = KindExternalOut
		src, err := loadMsgAddress(s)
		if err != nil {
			return nil, fmt.Errorf("message: parse src: %w", err)
		}
		m.Src = src
		dest, err := loadMsgAddress(s)
		if err != nil {
			return nil, fmt.Errorf("message: parse dest: %w", err)
		}
		m.Dest = dest
	default:
		return nil, fmt.Errorf("message: unknown tag %d", tag)
	}

	if m.Body, err = s.LoadMaybeRef(); err != nil {
		return nil, fmt.Errorf("message: parse body: %w", err)
	}
	return m, nil
}

// Store serializes m back into a message cell builder, the inverse of
// ParseIn.
func (m *Message) Store(b *cell.Builder) error {
	switch m.Kind {
	case KindExternalIn:
		if err := b.StoreUint(tagExternalIn, 2); err != nil {
			return err
		}
		if err := storeMsgAddress(b, m.Dest); err != nil {
			return err
		}
	case KindInternal:
		if err := b.StoreUint(tagInternal, 2); err != nil {
			return err
		}
		if err := storeMsgAddress(b, m.Src); err != nil {
			return err
		}
		if err := storeMsgAddress(b, m.Dest); err != nil {
			return err
		}
		if err := m.Value.Store(b); err != nil {
			return err
		}
		if err := b.StoreBit(m.Bounce); err != nil {
			return err
		}
		if err := b.StoreBit(m.Bounced); err != nil {
			return err
		}
		if err := m.IhrFee.Store(b); err != nil {
			return err
		}
		if err := m.FwdFee.Store(b); err != nil {
			return err
		}
		if err := b.StoreUint(m.CreatedLT, 64); err != nil {
			return err
		}
		if err := b.StoreUint(uint64(m.CreatedAt), 32); err != nil {
			return err
		}
		if err := b.StoreBit(m.Init != nil); err != nil {
			return err
		}
		if m.Init != nil {
			initCell, err := storeStateInit(m.Init)
			if err != nil {
				return err
			}
			if err := b.StoreRef(initCell); err != nil {
				return err
			}
		}
	case KindExternalOut:
		if err := b.StoreUint(tagExternalOut, 2); err != nil {
			return err
		}
		if err := storeMsgAddress(b, m.Src); err != nil {
			return err
		}
		if err := storeMsgAddress(b, m.Dest); err != nil {
			return err
		}
	}
	return b.StoreMaybeRef(m.Body)
}

func loadMsgAddress(s *cell.Slice) (addr.MsgAddress, error) {
	kindV, err := s.LoadUint(2)
	if err != nil {
		return addr.MsgAddress{}, err
	}
	switch addr.Kind(kindV) {
	case addr.KindNone:
		return addr.MsgAddress{Kind: addr.KindNone}, nil
	case addr.KindStd:
		wc, err := s.LoadInt(32)
		if err != nil {
			return addr.MsgAddress{}, err
		}
		id, err := s.LoadBits(256)
		if err != nil {
			return addr.MsgAddress{}, err
		}
		var a addr.Address
		a.Workchain = int32(wc)
		copy(a.ID[:], id)
		return addr.FromStd(a), nil
	case addr.KindVar:
		bits, err := s.LoadUint(9)
		if err != nil {
			return addr.MsgAddress{}, err
		}
		wc, err := s.LoadInt(32)
		if err != nil {
			return addr.MsgAddress{}, err
		}
		id, err := s.LoadBits(int(bits))
		if err != nil {
			return addr.MsgAddress{}, err
		}
		return addr.MsgAddress{Kind: addr.KindVar, Workchain: int32(wc), VarID: id, VarBits: int(bits)}, nil
	default:
		return addr.MsgAddress{}, fmt.Errorf("message: unknown address kind %d", kindV)
	}
}

func storeMsgAddress(b *cell.Builder, a addr.MsgAddress) error {
	if err := b.StoreUint(uint64(a.Kind), 2); err != nil {
		return err
	}
	switch a.Kind {
	case addr.KindNone:
		return nil
	case addr.KindStd:
		if err := b.StoreUint(uint64(int32(a.Workchain)), 32); err != nil {
			return err
		}
		return b.StoreBits(a.ID[:], 256)
	case addr.KindVar:
		if err := b.StoreUint(uint64(a.VarBits), 9); err != nil {
			return err
		}
		if err := b.StoreUint(uint64(int32(a.Workchain)), 32); err != nil {
			return err
		}
		return b.StoreBits(a.VarID, a.VarBits)
	default:
		return fmt.Errorf("message: unknown address kind %d", a.Kind)
	}
}

// ForwardFees picks the masterchain or standard MsgForwardPrices table
// according to dest's workchain and computes the base forwarding fee for
// a message of the given size, per spec.md §4.C.
func ForwardFees(cfg *netconfig.Config, destIsMasterchain bool, cells, bits uint64) (money.Grams, error) {
	var prices netconfig.MsgForwardPrices
	var err error
	if destIsMasterchain {
		prices, err = cfg.MsgPricesMC()
	} else {
		prices, err = cfg.MsgPricesStd()
	}
	if err != nil {
		return money.Zero, err
	}
	return prices.ForwardFee(cells, bits), nil
}

func loadStateInit(c *cell.Cell) (*StateInit, error) {
	s := cell.NewSlice(c)
	code, err := s.LoadMaybeRef()
	if err != nil {
		return nil, err
	}
	data, err := s.LoadMaybeRef()
	if err != nil {
		return nil, err
	}
	return &StateInit{Code: code, Data: data}, nil
}

func storeStateInit(si *StateInit) (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := b.StoreMaybeRef(si.Code); err != nil {
		return nil, err
	}
	if err := b.StoreMaybeRef(si.Data); err != nil {
		return nil, err
	}
	return b.Finalize()
}
