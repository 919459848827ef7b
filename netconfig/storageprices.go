package netconfig

import (
	"sort"

	"github.com/tonreplay/replayer/cell"
)

// StoragePriceEntry is one bucket of param 18's piecewise-constant,
// time-indexed storage price schedule: the rates in this entry apply from
// UtimeSince until the next entry's UtimeSince (or forever, for the last
// entry), per spec.md §4.E.1.
type StoragePriceEntry struct {
	UtimeSince      uint32
	BitPricePS      uint64
	CellPricePS     uint64
	McBitPricePS    uint64
	McCellPricePS   uint64
}

// StoragePrices is param 18's ordered bucket list.
type StoragePrices struct {
	Entries []StoragePriceEntry // sorted ascending by UtimeSince
}

// StoragePricesTable returns param 18.
func (c *Config) StoragePricesTable() (StoragePrices, error) {
	p, err := c.param(ParamStoragePrices)
	if err != nil {
		return StoragePrices{}, err
	}
	sp, err := decodeStoragePrices(p)
	if err != nil {
		return StoragePrices{}, fatalf(ParamStoragePrices, "decode: %v", err)
	}
	return sp, nil
}

// RateAt returns the bucket effective at unix time now: the last entry
// whose UtimeSince <= now. Per spec.md §4.E.1 invariant, Entries[0] must
// have UtimeSince==0 for this to always resolve.
func (sp StoragePrices) RateAt(now uint32) (StoragePriceEntry, bool) {
	var best StoragePriceEntry
	found := false
	for _, e := range sp.Entries {
		if e.UtimeSince <= now && (!found || e.UtimeSince >= best.UtimeSince) {
			best = e
			found = true
		}
	}
	return best, found
}

func (sp StoragePrices) Store(b *cell.Builder) error {
	entries := make([]StoragePriceEntry, len(sp.Entries))
	copy(entries, sp.Entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].UtimeSince < entries[j].UtimeSince })

	if err := b.StoreUint(uint64(len(entries)), 16); err != nil {
		return err
	}
	for _, e := range entries {
		if err := b.StoreUint(uint64(e.UtimeSince), 32); err != nil {
			return err
		}
		if err := b.StoreUint(e.BitPricePS, 64); err != nil {
			return err
		}
		if err := b.StoreUint(e.CellPricePS, 64); err != nil {
			return err
		}
		if err := b.StoreUint(e.McBitPricePS, 64); err != nil {
			return err
		}
		if err := b.StoreUint(e.McCellPricePS, 64); err != nil {
			return err
		}
	}
	return nil
}

func decodeStoragePrices(c *cell.Cell) (StoragePrices, error) {
	s := cell.NewSlice(c)
	n, err := s.LoadUint(16)
	if err != nil {
		return StoragePrices{}, err
	}
	entries := make([]StoragePriceEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		var e StoragePriceEntry
		v, err := s.LoadUint(32)
		if err != nil {
			return StoragePrices{}, err
		}
		e.UtimeSince = uint32(v)
		if e.BitPricePS, err = s.LoadUint(64); err != nil {
			return StoragePrices{}, err
		}
		if e.CellPricePS, err = s.LoadUint(64); err != nil {
			return StoragePrices{}, err
		}
		if e.McBitPricePS, err = s.LoadUint(64); err != nil {
			return StoragePrices{}, err
		}
		if e.McCellPricePS, err = s.LoadUint(64); err != nil {
			return StoragePrices{}, err
		}
		entries = append(entries, e)
	}
	return StoragePrices{Entries: entries}, nil
}

// EncodeStoragePrices is the fixture-construction counterpart of
// decodeStoragePrices.
func EncodeStoragePrices(sp StoragePrices) (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := sp.Store(b); err != nil {
		return nil, err
	}
	return b.Finalize()
}
