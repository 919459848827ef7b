package txdriver

import (
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/phase"
)

// Store serializes the tagged transaction description: which kind ran,
// the storage/credit ordering flag, each phase record present, and the
// aborted outcome, per spec.md §3's "description (a tagged variant per
// kind capturing each phase result)".
func (d Description) Store(b *cell.Builder) error {
	if err := phase.StoreReason(b, d.Kind); err != nil {
		return err
	}
	if err := b.StoreBit(d.StorageFirst); err != nil {
		return err
	}
	if err := d.Storage.Store(b); err != nil {
		return err
	}
	if err := b.StoreBit(d.Credit != nil); err != nil {
		return err
	}
	if d.Credit != nil {
		if err := d.Credit.Store(b); err != nil {
			return err
		}
	}
	if err := d.Compute.Store(b); err != nil {
		return err
	}
	if err := b.StoreBit(d.Action != nil); err != nil {
		return err
	}
	if d.Action != nil {
		if err := d.Action.Store(b); err != nil {
			return err
		}
	}
	if err := b.StoreBit(d.Bounce != nil); err != nil {
		return err
	}
	if d.Bounce != nil {
		if err := d.Bounce.Store(b); err != nil {
			return err
		}
	}
	if err := b.StoreBit(d.Aborted); err != nil {
		return err
	}
	if !d.Aborted {
		return nil
	}
	if err := phase.StoreReason(b, d.AbortedPhase); err != nil {
		return err
	}
	return phase.StoreReason(b, d.AbortedReason)
}

// storeAddress writes a Address as its 32-bit signed workchain followed by
// the 256-bit account id, the same layout message.Message's internal
// address codec uses for the source/destination fields.
func storeAddress(b *cell.Builder, workchain int32, id [32]byte) error {
	if err := b.StoreUint(uint64(workchain), 32); err != nil {
		return err
	}
	return b.StoreBits(id[:], 256)
}

// storeOutMessages links the transaction's output messages into a cons-list
// cell chain — presence bit, index/fwd_fee/value fields, a ref to the
// message body, and a ref to the next node — mirroring actionlist.Encode's
// own linked-list-of-cells shape (spec.md §4.D).
func storeOutMessages(b *cell.Builder, msgs []phase.OutMessage) error {
	if len(msgs) == 0 {
		return b.StoreBit(false)
	}
	if err := b.StoreBit(true); err != nil {
		return err
	}
	head := msgs[0]
	if err := b.StoreUint(uint64(head.Index), 32); err != nil {
		return err
	}
	if err := head.FwdFee.Store(b); err != nil {
		return err
	}
	if err := head.Value.Store(b); err != nil {
		return err
	}
	mb := cell.NewBuilder()
	if err := head.Msg.Store(mb); err != nil {
		return err
	}
	mc, err := mb.Finalize()
	if err != nil {
		return err
	}
	if err := b.StoreRef(mc); err != nil {
		return err
	}

	tb := cell.NewBuilder()
	if err := storeOutMessages(tb, msgs[1:]); err != nil {
		return err
	}
	tc, err := tb.Finalize()
	if err != nil {
		return err
	}
	return b.StoreRef(tc)
}

// Store serializes the committed Transaction record into tx_cell, per
// spec.md §3's field list: account address, lt/prev_lt/prev_hash/now,
// origin/end status, the optional in_msg, the out_msg list, total_fees,
// the pre/post state_update hashes, and the tagged description.
func (tx *Transaction) Store(b *cell.Builder) error {
	if err := storeAddress(b, tx.AccountAddr.Workchain, tx.AccountAddr.ID); err != nil {
		return err
	}
	if err := b.StoreUint(tx.LT, 64); err != nil {
		return err
	}
	if err := b.StoreUint(tx.PrevLT, 64); err != nil {
		return err
	}
	if err := b.StoreBits(tx.PrevHash[:], 256); err != nil {
		return err
	}
	if err := b.StoreUint(uint64(tx.Now), 32); err != nil {
		return err
	}
	if err := b.StoreUint(uint64(tx.OrigStatus), 3); err != nil {
		return err
	}
	if err := b.StoreUint(uint64(tx.EndStatus), 3); err != nil {
		return err
	}

	if err := b.StoreBit(tx.InMsg != nil); err != nil {
		return err
	}
	if tx.InMsg != nil {
		mb := cell.NewBuilder()
		if err := tx.InMsg.Store(mb); err != nil {
			return err
		}
		mc, err := mb.Finalize()
		if err != nil {
			return err
		}
		if err := b.StoreRef(mc); err != nil {
			return err
		}
	}

	outB := cell.NewBuilder()
	if err := storeOutMessages(outB, tx.OutMessages); err != nil {
		return err
	}
	outC, err := outB.Finalize()
	if err != nil {
		return err
	}
	if err := b.StoreRef(outC); err != nil {
		return err
	}
	if err := b.StoreUint(uint64(tx.OutMsgCnt), 32); err != nil {
		return err
	}

	if err := tx.TotalFees.Store(b); err != nil {
		return err
	}

	if err := b.StoreBits(tx.StateUpdate.PreHash[:], 256); err != nil {
		return err
	}
	if err := b.StoreBits(tx.StateUpdate.PostHash[:], 256); err != nil {
		return err
	}

	descB := cell.NewBuilder()
	if err := tx.Description.Store(descB); err != nil {
		return err
	}
	descC, err := descB.Finalize()
	if err != nil {
		return err
	}
	return b.StoreRef(descC)
}
