package netconfig

import (
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/money"
)

// GasLimitsPrices holds param 20 (masterchain) or 21 (standard workchains):
// the gas price and the limits that bound a Compute phase's gas budget.
type GasLimitsPrices struct {
	GasPrice       uint64 // nanograms per gas unit, scaled by 2^16
	GasLimit       uint64
	GasCredit      uint64
	BlockGasLimit  uint64
	FreezeDueLimit money.Grams
	DeleteDueLimit money.Grams
	FlatGasLimit   uint64
	FlatGasPrice   uint64
}

// GasPrices returns param 20 or 21 depending on isMasterchain.
func (c *Config) GasPrices(isMasterchain bool) (GasLimitsPrices, error) {
	idx := ParamGasPricesStandard
	if isMasterchain {
		idx = ParamGasPricesMasterchain
	}
	p, err := c.param(idx)
	if err != nil {
		return GasLimitsPrices{}, err
	}
	g, err := decodeGasLimitsPrices(p)
	if err != nil {
		return GasLimitsPrices{}, fatalf(idx, "decode: %v", err)
	}
	return g, nil
}

// Store/Encode+Decode follow the "serialize fields in declaration order,
// propagate the first error" pattern of spec.md §9 (no metaprogramming).

func (g GasLimitsPrices) Store(b *cell.Builder) error {
	if err := b.StoreUint(g.GasPrice, 64); err != nil {
		return err
	}
	if err := b.StoreUint(g.GasLimit, 64); err != nil {
		return err
	}
	if err := b.StoreUint(g.GasCredit, 64); err != nil {
		return err
	}
	if err := b.StoreUint(g.BlockGasLimit, 64); err != nil {
		return err
	}
	if err := g.FreezeDueLimit.Store(b); err != nil {
		return err
	}
	if err := g.DeleteDueLimit.Store(b); err != nil {
		return err
	}
	if err := b.StoreUint(g.FlatGasLimit, 64); err != nil {
		return err
	}
	return b.StoreUint(g.FlatGasPrice, 64)
}

func decodeGasLimitsPrices(c *cell.Cell) (GasLimitsPrices, error) {
	s := cell.NewSlice(c)
	var g GasLimitsPrices
	var err error
	if g.GasPrice, err = s.LoadUint(64); err != nil {
		return g, err
	}
	if g.GasLimit, err = s.LoadUint(64); err != nil {
		return g, err
	}
	if g.GasCredit, err = s.LoadUint(64); err != nil {
		return g, err
	}
	if g.BlockGasLimit, err = s.LoadUint(64); err != nil {
		return g, err
	}
	if g.FreezeDueLimit, err = money.LoadGrams(s); err != nil {
		return g, err
	}
	if g.DeleteDueLimit, err = money.LoadGrams(s); err != nil {
		return g, err
	}
	if g.FlatGasLimit, err = s.LoadUint(64); err != nil {
		return g, err
	}
	if g.FlatGasPrice, err = s.LoadUint(64); err != nil {
		return g, err
	}
	return g, nil
}

// EncodeGasLimitsPrices is the test/fixture-construction counterpart of
// decodeGasLimitsPrices.
func EncodeGasLimitsPrices(g GasLimitsPrices) (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := g.Store(b); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// ComputeGasFee converts a gas amount to grams at this price's rate: the
// TON convention scales GasPrice by 2^16, so fee = ceil(gasUsed*price/2^16).
func (g GasLimitsPrices) ComputeGasFee(gasUsed uint64) money.Grams {
	num := gasUsed * g.GasPrice
	fee := num >> 16
	if num&0xFFFF != 0 {
		fee++
	}
	return money.NewGrams(fee)
}
