// Package tonacc models the in-memory smart-contract account that the
// transaction pipeline reads and mutates: status, balance, storage
// statistics, code/data/library, and address bookkeeping (spec.md §4.B).
package tonacc

import (
	"fmt"

	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/money"
)

// Status is the account lifecycle state.
type Status int

const (
	StatusNonexistent Status = iota
	StatusUninit
	StatusActive
	StatusFrozen
	StatusDeleted
)

func (s Status) String() string {
	switch s {
	case StatusNonexistent:
		return "nonexistent"
	case StatusUninit:
		return "uninit"
	case StatusActive:
		return "active"
	case StatusFrozen:
		return "frozen"
	case StatusDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// StorageStats are monotone counters derived from walking the account's
// serialized cell tree; they feed next transaction's storage-fee
// computation (spec.md §4.B).
type StorageStats struct {
	Cells       uint64
	Bits        uint64
	PublicCells uint64
}

// Account is the in-memory representation of a single smart contract's
// persisted state.
type Account struct {
	AddrOrig addr.Address // address as originally assigned
	Addr     addr.Address // address after anycast rewrite, if any

	Status Status
	Balance money.CurrencyCollection

	Stats StorageStats

	LastTransLT uint64
	LastPaid    uint32
	DuePayment  money.Grams // zero means no debt

	SplitDepth int // -1 means absent
	Tick       bool
	Tock       bool

	// RewritePfx is the anycast rewrite prefix (the original's
	// addr_rewrite), SplitDepth bits wide. Nil means no anycast: Addr
	// equals AddrOrig. Only meaningful when SplitDepth > 0.
	RewritePfx []byte

	Code    *cell.Cell
	Data    *cell.Cell
	Library *cell.Cell
}

// ErrInvariant marks a violated structural account invariant — a bug, not
// user input, per spec.md §7.
type ErrInvariant struct {
	Reason string
}

func (e *ErrInvariant) Error() string {
	return fmt.Sprintf("tonacc: invariant violation: %s", e.Reason)
}

// CheckInvariants validates the structural invariants spec.md §3 requires
// of every account the pipeline may produce.
func (a *Account) CheckInvariants() error {
	if a.Balance.Grams.Cmp(money.Zero) < 0 {
		return &ErrInvariant{Reason: "negative balance"}
	}
	if a.Status == StatusActive && a.Code == nil {
		return &ErrInvariant{Reason: "active account without code"}
	}
	if (a.Status == StatusNonexistent || a.Status == StatusDeleted) && !a.Balance.IsZero() {
		return &ErrInvariant{Reason: "nonexistent/deleted account with nonzero balance"}
	}
	return nil
}

// InitNew produces a fresh uninitialized account for addr as of now, per
// spec.md §4.B's init_new.
func InitNew(a addr.Address, now uint32) *Account {
	return &Account{
		AddrOrig:   a,
		Addr:       a,
		Status:     StatusUninit,
		Balance:    money.NewCurrencyCollection(money.Zero),
		LastPaid:   now,
		SplitDepth: -1,
	}
}

// nonexistent produces the sentinel used when the ShardAccount wrapper
// indicates account_none.
func nonexistent(a addr.Address) *Account {
	return &Account{
		AddrOrig:   a,
		Addr:       a,
		Status:     StatusNonexistent,
		Balance:    money.NewCurrencyCollection(money.Zero),
		SplitDepth: -1,
	}
}

// ComputeMyAddr recomputes Addr from AddrOrig, applying anycast rewriting
// when rewriteAnycast is set, SplitDepth > 0, and a RewritePfx is stored —
// a depth-0 account, or one with no stored prefix, has no anycast rewrite
// to apply, per spec.md §4.B.
func (a *Account) ComputeMyAddr(rewriteAnycast bool) {
	if !rewriteAnycast || a.SplitDepth <= 0 || len(a.RewritePfx) == 0 {
		a.Addr = a.AddrOrig
		return
	}
	depth := a.SplitDepth
	rewritten := a.AddrOrig
	copy(rewritten.ID[:depth/8], a.RewritePfx)
	a.Addr = rewritten
}
