package phase

import (
	"github.com/tonreplay/replayer/actionlist"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/message"
	"github.com/tonreplay/replayer/money"
	"github.com/tonreplay/replayer/netconfig"
	"github.com/tonreplay/replayer/tonacc"
)

// ActionInput bundles what RunAction needs beyond the account and action
// list, per spec.md §4.E.4.
type ActionInput struct {
	Config      *netconfig.Config
	InboundValue money.CurrencyCollection // the credited value of the inbound message, for mode 0x40
	IsSrcMasterchain bool
}

// RunAction iterates the action list sequentially, deferring
// carry-all-balance (mode 0x80) sends to run last against the balance
// left over after every non-carry-all action — the tie-break decided in
// SPEC_FULL.md §6.1 for the carry-all-vs-reserve open question of
// spec.md §9.
func RunAction(acc *tonacc.Account, list actionlist.List, in ActionInput) (ActionResult, error) {
	running := acc.Balance.Grams
	reserved := money.Zero
	var out []OutMessage
	var totalFees money.Grams
	var deferred []actionlist.Entry
	var idx uint32
	deleteAcc := false

	carryAllSeen := false
	for _, e := range list.Entries {
		if e.Kind == actionlist.KindSendMsg && e.Mode&actionlist.ModeCarryAllBalance != 0 {
			if carryAllSeen && e.Mode&actionlist.ModeIgnoreErrors == 0 {
				return ActionResult{}, aborted("action", "more than one carry-all-balance send without ignore-errors")
			}
			if carryAllSeen {
				continue // silently skipped per spec.md §4.E.4
			}
			carryAllSeen = true
			deferred = append(deferred, e)
			continue
		}

		msg, fee, value, err := processEntry(acc, e, in, running, reserved)
		if err != nil {
			if e.Mode&actionlist.ModeIgnoreErrors != 0 ||
				(e.Kind == actionlist.KindReserve && e.ReserveFlags&actionlist.ReserveFlagIgnoreError != 0) {
				continue
			}
			return ActionResult{}, err
		}
		switch e.Kind {
		case actionlist.KindSendMsg:
			debit, derr := fee.Add(value.Grams)
			if derr != nil {
				return ActionResult{}, derr
			}
			newRunning, serr := running.Sub(debit)
			if serr != nil {
				if e.Mode&actionlist.ModeIgnoreErrors != 0 {
					continue
				}
				return ActionResult{}, aborted("action", "insufficient balance for send: %v", serr)
			}
			running = newRunning
			totalFees, _ = totalFees.Add(fee)
			out = append(out, OutMessage{Msg: msg, Index: idx, FwdFee: fee, Value: value})
			idx++
			if e.Mode&actionlist.ModeDeleteIfZero != 0 && running.IsZero() {
				deleteAcc = true
			}
		case actionlist.KindReserve:
			reserved = value.Grams
		case actionlist.KindSetCode:
			acc.Code = e.NewCode
		case actionlist.KindChangeLibrary:
			acc.Library = e.Lib
		}
	}

	for _, e := range deferred {
		avail, err := running.Sub(reserved)
		if err != nil {
			avail = money.Zero
		}
		fwdFee, ferr := forwardFeeFor(in, e.Msg)
		if ferr != nil {
			if e.Mode&actionlist.ModeIgnoreErrors != 0 {
				continue
			}
			return ActionResult{}, ferr
		}
		delivered, serr := avail.Sub(fwdFee)
		if serr != nil {
			if e.Mode&actionlist.ModeIgnoreErrors != 0 {
				continue
			}
			return ActionResult{}, aborted("action", "carry-all send cannot cover forwarding fee")
		}
		msg, err := decorateOutbound(e.Msg, money.NewCurrencyCollection(delivered))
		if err != nil {
			return ActionResult{}, err
		}
		// A carry-all send spends everything available beyond the
		// reserve, so the running balance afterward is exactly what
		// was reserved — not zero, per SPEC_FULL.md §6.1's scenario S5.
		running = reserved
		totalFees, _ = totalFees.Add(fwdFee)
		out = append(out, OutMessage{Msg: msg, Index: idx, FwdFee: fwdFee, Value: money.NewCurrencyCollection(delivered)})
		idx++
		if e.Mode&actionlist.ModeDeleteIfZero != 0 && running.IsZero() {
			deleteAcc = true
		}
	}

	acc.Balance.Grams = running
	if deleteAcc {
		acc.Status = tonacc.StatusDeleted
		acc.Balance = money.NewCurrencyCollection(money.Zero)
	}

	return ActionResult{OutMessages: out, TotalFees: totalFees, Reserved: reserved, DeleteAcc: deleteAcc}, nil
}

// processEntry handles every non-carry-all-deferred entry kind, returning
// the outbound message (SendMsg only), its forwarding fee, and the value
// it carries.
func processEntry(acc *tonacc.Account, e actionlist.Entry, in ActionInput, running, reserved money.Grams) (*message.Message, money.Grams, money.CurrencyCollection, error) {
	switch e.Kind {
	case actionlist.KindSendMsg:
		tmpl, err := message.ParseIn(e.Msg)
		if err != nil {
			return nil, money.Zero, money.CurrencyCollection{}, err
		}
		value := tmpl.Value
		if e.Mode&actionlist.ModeCarryInboundValue != 0 {
			value = in.InboundValue
		}
		fwdFee, err := forwardFeeFor(in, e.Msg)
		if err != nil {
			return nil, money.Zero, money.CurrencyCollection{}, err
		}
		// The fee always leaves the running balance alongside the
		// delivered value (fee+delivered == total debited); only
		// whether the fee also comes out of the delivered value itself
		// depends on pay-fees-separately, per spec.md §4.E.4.
		if e.Mode&actionlist.ModePayFeesSeparately == 0 {
			v, serr := value.Grams.Sub(fwdFee)
			if serr != nil {
				return nil, money.Zero, money.CurrencyCollection{}, serr
			}
			value.Grams = v
		}
		msg, err := decorateOutbound(e.Msg, value)
		if err != nil {
			return nil, money.Zero, money.CurrencyCollection{}, err
		}
		return msg, fwdFee, value, nil
	case actionlist.KindReserve:
		amount, err := money.LoadGrams(cellSliceOf(e.Amount))
		if err != nil {
			return nil, money.Zero, money.CurrencyCollection{}, err
		}
		r, err := resolveReserve(e.ReserveMode, e.ReserveFlags, amount, running)
		if err != nil {
			return nil, money.Zero, money.CurrencyCollection{}, err
		}
		return nil, money.Zero, money.NewCurrencyCollection(r), nil
	case actionlist.KindSetCode, actionlist.KindChangeLibrary:
		return nil, money.Zero, money.CurrencyCollection{}, nil
	default:
		return nil, money.Zero, money.CurrencyCollection{}, aborted("action", "unknown action kind %d", e.Kind)
	}
}

// resolveReserve implements the exact/all-but/at-most reserve variants of
// spec.md §4.E.4. The negate flag treats amount as a deduction from
// balance rather than a target value.
func resolveReserve(mode actionlist.ReserveMode, flags uint8, amount, balance money.Grams) (money.Grams, error) {
	if flags&actionlist.ReserveFlagNegate != 0 {
		return balance.SaturatingSub(amount), nil
	}
	switch mode {
	case actionlist.ReserveExact:
		if amount.Cmp(balance) > 0 {
			return money.Zero, aborted("action", "reserve exact exceeds balance")
		}
		return amount, nil
	case actionlist.ReserveAllBut:
		return balance.SaturatingSub(amount), nil
	case actionlist.ReserveAtMost:
		return balance.Min(amount), nil
	default:
		return money.Zero, aborted("action", "unknown reserve mode %d", mode)
	}
}

// forwardFeeFor computes the base forwarding fee for an outbound message
// cell, choosing the masterchain or standard price table by the
// message's destination workchain, per spec.md §4.E.4.
func forwardFeeFor(in ActionInput, msgCell *cell.Cell) (money.Grams, error) {
	m, err := message.ParseIn(msgCell)
	if err != nil {
		return money.Zero, err
	}
	dest, err := m.Dest.Std()
	if err != nil {
		return money.Zero, err
	}
	cells, bits := countCellTree(msgCell)
	return message.ForwardFees(in.Config, dest.IsMasterchain(), cells, bits)
}

// decorateOutbound re-parses the VM-emitted message template and
// substitutes the value the Action phase actually computed for it,
// leaving addressing and flags untouched.
func decorateOutbound(msgCell *cell.Cell, value money.CurrencyCollection) (*message.Message, error) {
	m, err := message.ParseIn(msgCell)
	if err != nil {
		return nil, err
	}
	m.Value = value
	return m, nil
}

func cellSliceOf(c *cell.Cell) *cell.Slice { return cell.NewSlice(c) }

// countCellTree walks c's DAG, deduplicating by hash, and returns the
// total cell and bit counts the forwarding-fee formula bills for —
// mirroring tonacc.Account.Rescan's walk.
func countCellTree(c *cell.Cell) (cells, bits uint64) {
	seen := map[[32]byte]bool{}
	var walk func(n *cell.Cell)
	walk = func(n *cell.Cell) {
		h := n.Hash()
		if seen[h] {
			return
		}
		seen[h] = true
		cells++
		bits += uint64(n.BitLen())
		for i := 0; i < n.RefCount(); i++ {
			r, err := n.Ref(i)
			if err != nil {
				continue
			}
			walk(r)
		}
	}
	walk(c)
	return cells, bits
}
