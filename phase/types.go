// Package phase implements the five pure phase engines of the
// transaction pipeline — Storage, Credit, Compute, Action, Bounce — per
// spec.md §4.E. Each engine is a function over the in-memory
// tonacc.Account; the driver (package txdriver) sequences them per
// transaction kind and stops at the first phase that aborts.
package phase

import (
	"fmt"

	"github.com/tonreplay/replayer/actionlist"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/message"
	"github.com/tonreplay/replayer/money"
	"github.com/tonreplay/replayer/tonacc"
	"github.com/tonreplay/replayer/vm"
)

// AbortedError marks a phase-level failure. The driver commits an Action
// or Bounce abort as a transaction with aborted=true, per spec.md §7, and
// turns RunCompute's abort for an unaccepted external-in message into a
// non-fatal rejection. The driver itself returns an AbortedError with
// Phase "invariant" as a fatal error for an unaccepted internal message.
type AbortedError struct {
	Phase  string
	Reason string
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("phase: %s aborted: %s", e.Phase, e.Reason)
}

func aborted(phaseName, format string, args ...interface{}) error {
	return &AbortedError{Phase: phaseName, Reason: fmt.Sprintf(format, args...)}
}

// StorageResult is the Storage phase's record, per spec.md §4.E.1. The
// Storage phase never aborts — it only ever reports what it collected.
type StorageResult struct {
	DueCollected money.Grams
	DueRemaining money.Grams
	StatusChange bool // true if the account's status changed (frozen/deleted)
}

// CreditResult is the Credit phase's record, per spec.md §4.E.2.
type CreditResult struct {
	Credited money.CurrencyCollection
	DueCleared money.Grams
}

// ComputeResult is the Compute phase's record, per spec.md §4.E.3.
type ComputeResult struct {
	Skipped    bool
	SkipReason vm.SkipReason
	Accepted   bool
	Success    bool
	ExitCode   int32
	GasUsed    uint64
	NewData    *cell.Cell
	Actions    actionlist.List
	GasFee     money.Grams
}

// ActionResult is the Action phase's record, per spec.md §4.E.4.
type ActionResult struct {
	OutMessages []OutMessage
	TotalFees   money.Grams
	Reserved    money.Grams
	DeleteAcc   bool
}

// OutMessage pairs an outbound message with the index the driver should
// assign it, in action-list order (spec.md §4.F.2).
type OutMessage struct {
	Msg   *message.Message
	Index uint32
	FwdFee money.Grams
	Value  money.CurrencyCollection
}

// BounceResult is the Bounce phase's record, per spec.md §4.E.5.
type BounceResult struct {
	Produced bool
	Out      *message.Message
	FwdFee   money.Grams
}

// Context groups the account being processed, the current wall clock,
// and the logical time assigned to this transaction.
type Context struct {
	Account *tonacc.Account
	Now     uint32
	LT      uint64
}
