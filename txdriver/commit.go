package txdriver

import (
	"fmt"

	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/message"
	"github.com/tonreplay/replayer/money"
	"github.com/tonreplay/replayer/phase"
	"github.com/tonreplay/replayer/tonacc"
)

type finalizeInput struct {
	kind         string
	lt           uint64
	now          uint32
	prevLT       uint64
	prevHash     [32]byte
	preHash      [32]byte
	origStatus   tonacc.Status
	inMsg        *message.Message
	storageFirst bool

	storage phase.StorageResult
	credit  *phase.CreditResult
	compute phase.ComputeResult
	action  *phase.ActionResult
	bounce  *phase.BounceResult

	aborted       bool
	abortedPhase  string
	abortedReason string
}

// finalize assembles the output message list in action-list order (spec.md
// §4.F.2), advances last_trans_lt (§4.F.3), re-serializes the account and
// computes its state_update (§4.F.4-5), and, if that serialization would
// overflow (§4.F's last paragraph), drops the Action-phase output
// messages, recomputes total_fees and marks the transaction aborted.
func finalize(acc *tonacc.Account, in finalizeInput) (*Transaction, error) {
	outMessages, totalFees, err := collectOutput(in)
	if err != nil {
		return nil, err
	}

	outMsgCnt := uint32(len(outMessages))
	acc.LastTransLT = in.lt + 1 + uint64(outMsgCnt)

	postHash, overflowed, err := commitAccount(acc, outMessages)
	if err != nil {
		return nil, err
	}
	if overflowed {
		outMessages, totalFees = rewindToMinimal(in)
		outMsgCnt = uint32(len(outMessages))
		acc.LastTransLT = in.lt + 1 + uint64(outMsgCnt)
		postHash, _, err = commitAccount(acc, outMessages)
		if err != nil {
			return nil, err
		}
		in.aborted = true
	}

	desc := Description{
		Kind:          in.kind,
		StorageFirst:  in.storageFirst,
		Storage:       in.storage,
		Credit:        in.credit,
		Compute:       in.compute,
		Action:        in.action,
		Bounce:        in.bounce,
		Aborted:       in.aborted,
		AbortedPhase:  in.abortedPhase,
		AbortedReason: in.abortedReason,
	}

	return &Transaction{
		AccountAddr: acc.Addr,
		LT:          in.lt,
		PrevLT:      in.prevLT,
		PrevHash:    in.prevHash,
		Now:         in.now,
		OrigStatus:  in.origStatus,
		EndStatus:   acc.Status,
		InMsg:       in.inMsg,
		OutMessages: outMessages,
		OutMsgCnt:   outMsgCnt,
		TotalFees:   totalFees,
		StateUpdate: StateUpdate{PreHash: in.preHash, PostHash: postHash},
		Description: desc,
	}, nil
}

// collectOutput appends the Bounce phase's message (if any) after every
// Action-phase message, assigns it the next index, and sums every fee
// component spec.md §8 property 1's balance-conservation invariant
// requires in total_fees: storage due collected, the Compute gas fee, the
// Action phase's accumulated forwarding fees, and the Bounce message's
// own forwarding fee.
func collectOutput(in finalizeInput) ([]phase.OutMessage, money.CurrencyCollection, error) {
	var outMessages []phase.OutMessage
	fees := in.storage.DueCollected
	var addErr error
	add := func(g money.Grams) {
		if addErr != nil {
			return
		}
		f, err := fees.Add(g)
		if err != nil {
			addErr = err
			return
		}
		fees = f
	}
	add(in.compute.GasFee)

	if in.action != nil {
		outMessages = append(outMessages, in.action.OutMessages...)
		add(in.action.TotalFees)
	}
	if in.bounce != nil && in.bounce.Produced {
		outMessages = append(outMessages, phase.OutMessage{
			Msg:    in.bounce.Out,
			Index:  uint32(len(outMessages)),
			FwdFee: in.bounce.FwdFee,
			Value:  in.bounce.Out.Value,
		})
		add(in.bounce.FwdFee)
	}
	if addErr != nil {
		return nil, money.CurrencyCollection{}, fmt.Errorf("accumulate total fees: %w", addErr)
	}
	return outMessages, money.NewCurrencyCollection(fees), nil
}

// rewindToMinimal drops every Action-phase output message, keeping only
// the Bounce message if one was produced, and recomputes total_fees as the
// storage due collected plus that message's forwarding fee (spec.md
// §4.F's serialization-overflow fallback). The description built by
// finalize still carries every phase record.
func rewindToMinimal(in finalizeInput) ([]phase.OutMessage, money.CurrencyCollection) {
	if in.bounce != nil && in.bounce.Produced {
		fees := in.storage.DueCollected
		if sum, err := fees.Add(in.bounce.FwdFee); err == nil {
			fees = sum
		}
		return []phase.OutMessage{{Msg: in.bounce.Out, Index: 0, FwdFee: in.bounce.FwdFee, Value: in.bounce.Out.Value}},
			money.NewCurrencyCollection(fees)
	}
	return nil, money.NewCurrencyCollection(in.storage.DueCollected)
}

// commitAccount re-serializes acc twice (per tonacc.Account.Store's own
// doc: store once to learn the new storage stats from the produced cell
// tree, then store again so the committed cell reflects them) and reports
// whether either pass would overflow the transaction's serialization
// budget, approximated here as the account cell plus every outbound
// message cell (spec.md §1 leaves the real BoC/TL-B transaction codec out
// of scope, so this is a deliberately simple stand-in — see DESIGN.md).
func commitAccount(acc *tonacc.Account, outMessages []phase.OutMessage) ([32]byte, bool, error) {
	c1, err := storeAccount(acc)
	if err != nil {
		return [32]byte{}, false, err
	}
	acc.Rescan(c1)

	c2, err := storeAccount(acc)
	if err != nil {
		return [32]byte{}, false, err
	}

	total := c2.BitLen()
	for _, om := range outMessages {
		b := cell.NewBuilder()
		if err := om.Msg.Store(b); err == nil {
			if mc, ferr := b.Finalize(); ferr == nil {
				total += mc.BitLen()
			}
		}
	}
	return c2.Hash(), total > maxTxBits, nil
}

func storeAccount(acc *tonacc.Account) (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := acc.Store(b); err != nil {
		return nil, err
	}
	return b.Finalize()
}
