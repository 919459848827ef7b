package phase

import (
	"github.com/tonreplay/replayer/cell"
)

// Store methods below serialize each phase's record for inclusion in the
// transaction description cell, following the same declare-in-order,
// propagate-the-first-error convention as money/message/tonacc's own
// Store methods (spec.md §9).

func (r StorageResult) Store(b *cell.Builder) error {
	if err := r.DueCollected.Store(b); err != nil {
		return err
	}
	if err := r.DueRemaining.Store(b); err != nil {
		return err
	}
	return b.StoreBit(r.StatusChange)
}

func (r CreditResult) Store(b *cell.Builder) error {
	if err := r.Credited.Store(b); err != nil {
		return err
	}
	return r.DueCleared.Store(b)
}

func (r ComputeResult) Store(b *cell.Builder) error {
	if err := b.StoreBit(r.Skipped); err != nil {
		return err
	}
	if err := b.StoreUint(uint64(r.SkipReason), 4); err != nil {
		return err
	}
	if err := b.StoreBit(r.Accepted); err != nil {
		return err
	}
	if err := b.StoreBit(r.Success); err != nil {
		return err
	}
	if err := b.StoreUint(uint64(r.ExitCode), 32); err != nil {
		return err
	}
	if err := b.StoreUint(r.GasUsed, 64); err != nil {
		return err
	}
	if err := b.StoreMaybeRef(r.NewData); err != nil {
		return err
	}
	return r.GasFee.Store(b)
}

func (r ActionResult) Store(b *cell.Builder) error {
	if err := b.StoreUint(uint64(len(r.OutMessages)), 16); err != nil {
		return err
	}
	if err := r.TotalFees.Store(b); err != nil {
		return err
	}
	if err := r.Reserved.Store(b); err != nil {
		return err
	}
	return b.StoreBit(r.DeleteAcc)
}

func (r BounceResult) Store(b *cell.Builder) error {
	if err := b.StoreBit(r.Produced); err != nil {
		return err
	}
	return r.FwdFee.Store(b)
}

// StoreReason writes a length-prefixed ASCII reason string, truncated to
// 255 bytes — an auditing aid with no protocol-defined wire shape, not a
// TL-B field, so a simple length-prefixed blob is sufficient. Exported so
// package txdriver's Description.Store (the type that embeds these phase
// records) can reuse it for its own free-text fields.
func StoreReason(b *cell.Builder, s string) error {
	if len(s) > 255 {
		s = s[:255]
	}
	if err := b.StoreUint(uint64(len(s)), 8); err != nil {
		return err
	}
	return b.StoreBits([]byte(s), len(s)*8)
}
