package tonacc

import (
	"fmt"

	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/money"
)

// Unpack decodes a ShardAccount-wrapped account cell, per spec.md §4.B.
// If the wrapper's presence bit is unset (account_none), it returns a
// fresh nonexistent account seeded with seedAddr instead of reading
// further. allowSpecial has no effect: Unpack relaxes nothing for special
// contracts, and the returned Account does not record the flag.
func Unpack(s *cell.Slice, seedAddr addr.Address, now uint32, allowSpecial bool) (*Account, error) {
	present, err := s.LoadBit()
	if err != nil {
		return nil, fmt.Errorf("tonacc: unpack shard account wrapper: %w", err)
	}
	if !present {
		return nonexistent(seedAddr), nil
	}

	a := &Account{AddrOrig: seedAddr, Addr: seedAddr, SplitDepth: -1}

	statusV, err := s.LoadUint(3)
	if err != nil {
		return nil, fmt.Errorf("tonacc: unpack status: %w", err)
	}
	a.Status = Status(statusV)

	if a.Balance, err = money.LoadCurrencyCollection(s); err != nil {
		return nil, fmt.Errorf("tonacc: unpack balance: %w", err)
	}

	cells, err := s.LoadUint(32)
	if err != nil {
		return nil, fmt.Errorf("tonacc: unpack stats.cells: %w", err)
	}
	bits, err := s.LoadUint(32)
	if err != nil {
		return nil, fmt.Errorf("tonacc: unpack stats.bits: %w", err)
	}
	pub, err := s.LoadUint(32)
	if err != nil {
		return nil, fmt.Errorf("tonacc: unpack stats.public_cells: %w", err)
	}
	a.Stats = StorageStats{Cells: cells, Bits: bits, PublicCells: pub}

	if a.LastTransLT, err = s.LoadUint(64); err != nil {
		return nil, fmt.Errorf("tonacc: unpack last_trans_lt: %w", err)
	}
	lastPaid, err := s.LoadUint(32)
	if err != nil {
		return nil, fmt.Errorf("tonacc: unpack last_paid: %w", err)
	}
	a.LastPaid = uint32(lastPaid)

	if a.DuePayment, err = money.LoadGrams(s); err != nil {
		return nil, fmt.Errorf("tonacc: unpack due_payment: %w", err)
	}

	hasSplit, err := s.LoadBit()
	if err != nil {
		return nil, fmt.Errorf("tonacc: unpack split_depth presence: %w", err)
	}
	if hasSplit {
		sd, err := s.LoadUint(8)
		if err != nil {
			return nil, fmt.Errorf("tonacc: unpack split_depth: %w", err)
		}
		a.SplitDepth = int(sd)
	}
	if a.SplitDepth > 0 {
		hasRewrite, err := s.LoadBit()
		if err != nil {
			return nil, fmt.Errorf("tonacc: unpack anycast presence: %w", err)
		}
		if hasRewrite {
			pfx, err := s.LoadBits(a.SplitDepth)
			if err != nil {
				return nil, fmt.Errorf("tonacc: unpack anycast rewrite_pfx: %w", err)
			}
			a.RewritePfx = pfx
		}
	}

	if a.Tick, err = s.LoadBit(); err != nil {
		return nil, fmt.Errorf("tonacc: unpack tick: %w", err)
	}
	if a.Tock, err = s.LoadBit(); err != nil {
		return nil, fmt.Errorf("tonacc: unpack tock: %w", err)
	}

	if a.Code, err = s.LoadMaybeRef(); err != nil {
		return nil, fmt.Errorf("tonacc: unpack code: %w", err)
	}
	if a.Data, err = s.LoadMaybeRef(); err != nil {
		return nil, fmt.Errorf("tonacc: unpack data: %w", err)
	}
	if a.Library, err = s.LoadMaybeRef(); err != nil {
		return nil, fmt.Errorf("tonacc: unpack library: %w", err)
	}

	a.ComputeMyAddr(true)
	_ = allowSpecial // carried for caller bookkeeping; tonacc applies no special-case relaxation itself
	_ = now
	return a, nil
}

// Store serializes the account, writing a.Stats as they currently stand;
// it does not rescan the produced cell tree. Callers that need the stored
// counts to match that tree call Rescan on the result and store again
// (txdriver's commit does), since those counts feed next transaction's
// storage-fee computation (spec.md §4.B).
func (a *Account) Store(b *cell.Builder) error {
	present := a.Status != StatusNonexistent
	if err := b.StoreBit(present); err != nil {
		return err
	}
	if !present {
		return nil
	}

	if err := b.StoreUint(uint64(a.Status), 3); err != nil {
		return err
	}
	if err := a.Balance.Store(b); err != nil {
		return err
	}
	if err := b.StoreUint(a.Stats.Cells, 32); err != nil {
		return err
	}
	if err := b.StoreUint(a.Stats.Bits, 32); err != nil {
		return err
	}
	if err := b.StoreUint(a.Stats.PublicCells, 32); err != nil {
		return err
	}
	if err := b.StoreUint(a.LastTransLT, 64); err != nil {
		return err
	}
	if err := b.StoreUint(uint64(a.LastPaid), 32); err != nil {
		return err
	}
	if err := a.DuePayment.Store(b); err != nil {
		return err
	}
	if err := b.StoreBit(a.SplitDepth >= 0); err != nil {
		return err
	}
	if a.SplitDepth >= 0 {
		if err := b.StoreUint(uint64(a.SplitDepth), 8); err != nil {
			return err
		}
	}
	if a.SplitDepth > 0 {
		if err := b.StoreBit(len(a.RewritePfx) > 0); err != nil {
			return err
		}
		if len(a.RewritePfx) > 0 {
			if err := b.StoreBits(a.RewritePfx, a.SplitDepth); err != nil {
				return err
			}
		}
	}
	if err := b.StoreBit(a.Tick); err != nil {
		return err
	}
	if err := b.StoreBit(a.Tock); err != nil {
		return err
	}
	if err := b.StoreMaybeRef(a.Code); err != nil {
		return err
	}
	if err := b.StoreMaybeRef(a.Data); err != nil {
		return err
	}
	return b.StoreMaybeRef(a.Library)
}

// Rescan walks the finalized account cell c and refreshes a.Stats to
// match — cells, bits, and public_cells counted per spec.md §4.B.
func (a *Account) Rescan(c *cell.Cell) {
	seen := map[[32]byte]bool{}
	var cells, bits, public uint64
	var walk func(n *cell.Cell)
	walk = func(n *cell.Cell) {
		h := n.Hash()
		if seen[h] {
			return
		}
		seen[h] = true
		cells++
		bits += uint64(n.BitLen())
		if n.IsExotic() {
			public++
		}
		for i := 0; i < n.RefCount(); i++ {
			r, err := n.Ref(i)
			if err != nil {
				continue
			}
			walk(r)
		}
	}
	walk(c)
	a.Stats = StorageStats{Cells: cells, Bits: bits, PublicCells: public}
}
