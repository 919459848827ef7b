package phase

import (
	"github.com/tonreplay/replayer/money"
	"github.com/tonreplay/replayer/netconfig"
	"github.com/tonreplay/replayer/tonacc"
)

// RunStorage charges rent for the interval [acc.LastPaid, now) against the
// account's own storage stats, per spec.md §4.E.1. It never aborts: a
// transaction is always committed even when storage pushes the account
// into frozen or deleted.
func RunStorage(acc *tonacc.Account, cfg *netconfig.Config, now uint32) (StorageResult, error) {
	if now < acc.LastPaid {
		// Clock went backwards relative to the account: nothing accrues,
		// but this is not treated as an invariant violation here — the
		// driver is responsible for monotonic `now` across calls.
		acc.LastPaid = now
		return StorageResult{}, nil
	}

	prices, err := cfg.StoragePricesTable()
	if err != nil {
		return StorageResult{}, err
	}

	due := computeStorageFee(prices, acc, acc.LastPaid, now)
	acc.LastPaid = now

	total, err := acc.DuePayment.Add(due)
	if err != nil {
		return StorageResult{}, err
	}

	result := StorageResult{}
	if acc.Balance.Grams.Cmp(total) >= 0 {
		newBal, err := acc.Balance.Grams.Sub(total)
		if err != nil {
			return StorageResult{}, err
		}
		acc.Balance.Grams = newBal
		acc.DuePayment = money.Zero
		result.DueCollected = total
	} else {
		collected := acc.Balance.Grams
		acc.Balance.Grams = money.Zero
		acc.DuePayment = total.SaturatingSub(collected)
		result.DueCollected = collected
		result.DueRemaining = acc.DuePayment
	}

	gp, err := cfg.GasPrices(acc.Addr.IsMasterchain())
	if err != nil {
		return StorageResult{}, err
	}
	if acc.DuePayment.Cmp(gp.FreezeDueLimit) > 0 && acc.Status == tonacc.StatusActive {
		acc.Status = tonacc.StatusFrozen
		result.StatusChange = true
	}
	if acc.DuePayment.Cmp(gp.DeleteDueLimit) > 0 && acc.Status == tonacc.StatusFrozen {
		acc.Status = tonacc.StatusDeleted
		acc.Balance = money.NewCurrencyCollection(money.Zero)
		result.StatusChange = true
	}
	return result, nil
}

// computeStorageFee sums the piecewise-constant rate buckets of prices
// over [from, to), time-weighting each bucket's overlap with the
// interval, per spec.md §4.E.1.
func computeStorageFee(prices netconfig.StoragePrices, acc *tonacc.Account, from, to uint32) money.Grams {
	if to <= from {
		return money.Zero
	}
	entries := prices.Entries
	var total uint64
	for i, e := range entries {
		segStart := e.UtimeSince
		var segEnd uint32
		if i+1 < len(entries) {
			segEnd = entries[i+1].UtimeSince
		} else {
			segEnd = to
		}
		overlapStart := segStart
		if overlapStart < from {
			overlapStart = from
		}
		overlapEnd := segEnd
		if overlapEnd > to {
			overlapEnd = to
		}
		if overlapEnd <= overlapStart {
			continue
		}
		seconds := uint64(overlapEnd - overlapStart)

		bitPrice, cellPrice := e.BitPricePS, e.CellPricePS
		if acc.Addr.IsMasterchain() {
			bitPrice, cellPrice = e.McBitPricePS, e.McCellPricePS
		}
		perSecond := acc.Stats.Bits*bitPrice + acc.Stats.Cells*cellPrice
		total += (perSecond * seconds) >> 16
	}
	return money.NewGrams(total)
}
