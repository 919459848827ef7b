// Package addr defines the account and message address forms shared by the
// account, message and config packages: a signed 32-bit workchain id paired
// with a 256-bit account id, plus the looser message-address variants that
// may carry no id at all or an opaque variable-length one.
package addr

import (
	"encoding/hex"
	"fmt"
)

// Masterchain is the workchain id reserved for the masterchain.
const Masterchain int32 = -1

// Address identifies a smart-contract account: a workchain id plus the
// 256-bit account id within it.
type Address struct {
	Workchain int32
	ID        [32]byte
}

// IsMasterchain reports whether a belongs to the masterchain.
func (a Address) IsMasterchain() bool { return a.Workchain == Masterchain }

// String renders the address in "wc:hex" form.
func (a Address) String() string {
	return fmt.Sprintf("%d:%s", a.Workchain, hex.EncodeToString(a.ID[:]))
}

// Equal reports whether a and b name the same account.
func (a Address) Equal(b Address) bool {
	return a.Workchain == b.Workchain && a.ID == b.ID
}

// Kind discriminates the three message-address forms of TL-B's MsgAddress.
type Kind uint8

const (
	// KindNone is addr_none: no address present.
	KindNone Kind = iota
	// KindStd is addr_std: workchain + 256-bit id, the only form a
	// smart-contract account itself may be addressed by.
	KindStd
	// KindVar is addr_var: an opaque, variable-length id. The replayer
	// never executes against one (dest must resolve to KindStd), but
	// messages may carry one as a source or as a non-std destination
	// that causes rejection/abort per spec.md §4.C.
	KindVar
)

// MsgAddress is the address form carried on message envelopes, which is
// looser than Address: it may be absent or opaque.
type MsgAddress struct {
	Kind      Kind
	Workchain int32  // valid for KindStd and KindVar
	ID        [32]byte // valid for KindStd
	VarID     []byte   // valid for KindVar
	VarBits   int      // bit length of VarID, valid for KindVar
}

// Std returns the MsgAddress as a standard Address, failing if it is not
// KindStd. Per spec.md §4.C, a non-std destination aborts an internal
// transaction or rejects an external one.
func (m MsgAddress) Std() (Address, error) {
	if m.Kind != KindStd {
		return Address{}, fmt.Errorf("addr: not a standard address (kind=%d)", m.Kind)
	}
	return Address{Workchain: m.Workchain, ID: m.ID}, nil
}

// FromStd builds a KindStd MsgAddress from a standard Address.
func FromStd(a Address) MsgAddress {
	return MsgAddress{Kind: KindStd, Workchain: a.Workchain, ID: a.ID}
}

func (m MsgAddress) String() string {
	switch m.Kind {
	case KindNone:
		return "none"
	case KindStd:
		return Address{Workchain: m.Workchain, ID: m.ID}.String()
	case KindVar:
		return fmt.Sprintf("%d:var(%d bits)", m.Workchain, m.VarBits)
	default:
		return "invalid"
	}
}
