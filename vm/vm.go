// Package vm declares the stack-VM boundary the Compute phase drives: an
// out-of-scope collaborator per spec.md §1, consumed only through this
// interface. See vm/vmtest for a concrete reference implementation used
// by the scenario tests.
package vm

import "github.com/tonreplay/replayer/cell"

// SkipReason classifies why Compute never ran the VM at all.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipNoState
	SkipBadState
	SkipNoGas
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipNoState:
		return "no_state"
	case SkipBadState:
		return "bad_state"
	case SkipNoGas:
		return "no_gas"
	default:
		return "unknown"
	}
}

// StackItemKind discriminates the tagged union the compute stack is built
// from.
type StackItemKind int

const (
	ItemInt StackItemKind = iota
	ItemCell
	ItemSlice
	ItemBool
)

// StackItem is one entry of the VM's initial or final stack.
type StackItem struct {
	Kind  StackItemKind
	Int   int64
	Cell  *cell.Cell
	Slice *cell.Slice
	Bool  bool
}

func Int(v int64) StackItem        { return StackItem{Kind: ItemInt, Int: v} }
func CellItem(c *cell.Cell) StackItem { return StackItem{Kind: ItemCell, Cell: c} }
func SliceItem(s *cell.Slice) StackItem { return StackItem{Kind: ItemSlice, Slice: s} }
func Bool(v bool) StackItem        { return StackItem{Kind: ItemBool, Bool: v} }

// Stack is an ordered list of StackItem, bottom first.
type Stack []StackItem

// GasContext carries the gas limit and credit the Compute phase computed
// for this run, per spec.md §4.E.3.
type GasContext struct {
	Limit  uint64
	Credit uint64
}

// VmResult is everything the Action/Compute accounting needs back from a
// run, per spec.md §6.
type VmResult struct {
	Accepted    bool
	Success     bool
	ExitCode    int32
	GasUsed     uint64
	NewData     *cell.Cell
	Actions     *cell.Cell // action-list cell chain, see package actionlist
	SkipReason  SkipReason
}

// VM runs a contract's code against data and an initial stack, subject to
// a gas budget, and returns the outcome Compute needs, per spec.md §6.
type VM interface {
	Run(
		code, data *cell.Cell,
		stack Stack,
		gas GasContext,
		libs *cell.Cell,
		randSeed [32]byte,
		globalConfig *cell.Cell,
	) (VmResult, error)
}
