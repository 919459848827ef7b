package netconfig

import (
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/money"
)

// MsgForwardPrices holds param 24 (masterchain) or 25 (standard
// workchains): the pricing schedule message forwarding fees are derived
// from, per spec.md §4.C.
type MsgForwardPrices struct {
	LumpPrice     uint64
	BitPrice      uint64
	CellPrice     uint64
	IhrPriceFactor uint32
	FirstFrac     uint32 // out of 0xffff
	NextFrac      uint32 // out of 0xffff
}

// MsgPricesMC returns param 24.
func (c *Config) MsgPricesMC() (MsgForwardPrices, error) {
	return c.msgPrices(ParamMsgPricesMasterchain)
}

// MsgPricesStd returns param 25.
func (c *Config) MsgPricesStd() (MsgForwardPrices, error) {
	return c.msgPrices(ParamMsgPricesStandard)
}

func (c *Config) msgPrices(idx int) (MsgForwardPrices, error) {
	p, err := c.param(idx)
	if err != nil {
		return MsgForwardPrices{}, err
	}
	m, err := decodeMsgForwardPrices(p)
	if err != nil {
		return MsgForwardPrices{}, fatalf(idx, "decode: %v", err)
	}
	return m, nil
}

func (m MsgForwardPrices) Store(b *cell.Builder) error {
	if err := b.StoreUint(m.LumpPrice, 64); err != nil {
		return err
	}
	if err := b.StoreUint(m.BitPrice, 64); err != nil {
		return err
	}
	if err := b.StoreUint(m.CellPrice, 64); err != nil {
		return err
	}
	if err := b.StoreUint(uint64(m.IhrPriceFactor), 32); err != nil {
		return err
	}
	if err := b.StoreUint(uint64(m.FirstFrac), 16); err != nil {
		return err
	}
	return b.StoreUint(uint64(m.NextFrac), 16)
}

func decodeMsgForwardPrices(c *cell.Cell) (MsgForwardPrices, error) {
	s := cell.NewSlice(c)
	var m MsgForwardPrices
	var err error
	if m.LumpPrice, err = s.LoadUint(64); err != nil {
		return m, err
	}
	if m.BitPrice, err = s.LoadUint(64); err != nil {
		return m, err
	}
	if m.CellPrice, err = s.LoadUint(64); err != nil {
		return m, err
	}
	v, err := s.LoadUint(32)
	if err != nil {
		return m, err
	}
	m.IhrPriceFactor = uint32(v)
	if v, err = s.LoadUint(16); err != nil {
		return m, err
	}
	m.FirstFrac = uint32(v)
	if v, err = s.LoadUint(16); err != nil {
		return m, err
	}
	m.NextFrac = uint32(v)
	return m, nil
}

// EncodeMsgForwardPrices is the fixture-construction counterpart of
// decodeMsgForwardPrices.
func EncodeMsgForwardPrices(m MsgForwardPrices) (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := m.Store(b); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// ForwardFee computes the base forwarding fee for a message spanning the
// given number of cells and bits: lump_price plus a per-unit charge scaled
// by 2^16, rounded up. first_frac/next_frac are not applied here, and the
// Action and Bounce phases do not apply them either: they bill this full
// amount, and FirstFraction/NextFraction have no caller in those phases.
func (m MsgForwardPrices) ForwardFee(cells, bits uint64) money.Grams {
	num := m.CellPrice*cells + m.BitPrice*bits
	scaled := num >> 16
	if num&0xFFFF != 0 {
		scaled++
	}
	return money.NewGrams(m.LumpPrice + scaled)
}

// FirstFraction applies first_frac/0xffff to fee, rounding up, per the TON
// "mine" fraction taken by the originating shardchain from the total
// forwarding fee before the remainder continues onward as fwd_fee.
func (m MsgForwardPrices) FirstFraction(fee money.Grams) money.Grams {
	return fracOf(fee, m.FirstFrac)
}

// NextFraction applies next_frac/0xffff to fee, for each subsequent hop.
func (m MsgForwardPrices) NextFraction(fee money.Grams) money.Grams {
	return fracOf(fee, m.NextFrac)
}

func fracOf(fee money.Grams, frac uint32) money.Grams {
	v := fee.Uint64()
	num := v * uint64(frac)
	out := num >> 16
	if num&0xFFFF != 0 {
		out++
	}
	return money.NewGrams(out)
}
