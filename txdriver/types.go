// Package txdriver orchestrates the phase engines of package phase into a
// complete transaction per spec.md §4.F: it decides Storage/Credit
// ordering, builds the Compute gas context, runs Action and Bounce,
// assigns output message indices, advances last_trans_lt, and commits the
// account.
package txdriver

import (
	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/message"
	"github.com/tonreplay/replayer/money"
	"github.com/tonreplay/replayer/phase"
	"github.com/tonreplay/replayer/tonacc"
)

// Description is the tagged-variant transaction description of spec.md
// §3: which phases ran, in what order, and each phase's record.
type Description struct {
	Kind         string // "ordinary", "tick" or "tock"
	StorageFirst bool   // true unless an internal message with bounce=false ran credit first

	Storage phase.StorageResult
	Credit  *phase.CreditResult // nil for tick/tock and external-in
	Compute phase.ComputeResult
	Action  *phase.ActionResult // nil unless the Action phase ran and did not abort
	Bounce  *phase.BounceResult // nil unless a bounce was attempted

	Aborted       bool
	AbortedPhase  string
	AbortedReason string
}

// StateUpdate is the pre/post account-cell hash pair spec.md §3 requires
// on every transaction record.
type StateUpdate struct {
	PreHash  [32]byte
	PostHash [32]byte
}

// Transaction is the immutable record the driver produces, per spec.md
// §3's "Transaction record".
type Transaction struct {
	AccountAddr addr.Address
	LT          uint64
	PrevLT      uint64
	PrevHash    [32]byte
	Now         uint32

	OrigStatus tonacc.Status
	EndStatus  tonacc.Status

	InMsg       *message.Message // nil for tick/tock
	OutMessages []phase.OutMessage
	OutMsgCnt   uint32

	TotalFees   money.CurrencyCollection
	StateUpdate StateUpdate
	Description Description
}
