package money

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"
	"github.com/tonreplay/replayer/cell"
)

// CurrencyID identifies an extra-currency within a CurrencyCollection.
type CurrencyID uint32

// CurrencyCollection pairs a grams amount with a sparse map of extra
// currencies; a currency absent from Extra is defined to be zero.
type CurrencyCollection struct {
	Grams Grams
	Extra map[CurrencyID]*uint256.Int
}

// NewCurrencyCollection returns a collection holding only grams.
func NewCurrencyCollection(g Grams) CurrencyCollection {
	return CurrencyCollection{Grams: g}
}

func cloneExtra(e map[CurrencyID]*uint256.Int) map[CurrencyID]*uint256.Int {
	if len(e) == 0 {
		return nil
	}
	out := make(map[CurrencyID]*uint256.Int, len(e))
	for k, v := range e {
		out[k] = new(uint256.Int).Set(v)
	}
	return out
}

// Clone returns a deep copy.
func (c CurrencyCollection) Clone() CurrencyCollection {
	return CurrencyCollection{Grams: c.Grams, Extra: cloneExtra(c.Extra)}
}

// sortedIDs returns the union of keys present in either collection, sorted,
// so arithmetic over the Extra maps is order-independent and deterministic.
func sortedIDs(a, b map[CurrencyID]*uint256.Int) []CurrencyID {
	seen := make(map[CurrencyID]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	ids := make([]CurrencyID, 0, len(seen))
	for k := range seen {
		ids = append(ids, k)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Add returns c+o, pointwise on Extra; missing keys are treated as zero.
func (c CurrencyCollection) Add(o CurrencyCollection) (CurrencyCollection, error) {
	g, err := c.Grams.Add(o.Grams)
	if err != nil {
		return CurrencyCollection{}, err
	}
	out := CurrencyCollection{Grams: g}
	for _, id := range sortedIDs(c.Extra, o.Extra) {
		sum := new(uint256.Int)
		av, bv := c.Extra[id], o.Extra[id]
		if av == nil {
			av = new(uint256.Int)
		}
		if bv == nil {
			bv = new(uint256.Int)
		}
		if _, overflow := sum.AddOverflow(av, bv); overflow {
			return CurrencyCollection{}, fmt.Errorf("%w: extra currency %d", ErrOverflow, id)
		}
		if !sum.IsZero() {
			if out.Extra == nil {
				out.Extra = make(map[CurrencyID]*uint256.Int)
			}
			out.Extra[id] = sum
		}
	}
	return out, nil
}

// Sub returns c-o, failing with ErrUnderflow if any component of o exceeds
// the corresponding component of c.
func (c CurrencyCollection) Sub(o CurrencyCollection) (CurrencyCollection, error) {
	g, err := c.Grams.Sub(o.Grams)
	if err != nil {
		return CurrencyCollection{}, err
	}
	out := CurrencyCollection{Grams: g}
	for _, id := range sortedIDs(c.Extra, o.Extra) {
		av, bv := c.Extra[id], o.Extra[id]
		if av == nil {
			av = new(uint256.Int)
		}
		if bv == nil {
			bv = new(uint256.Int)
		}
		if av.Lt(bv) {
			return CurrencyCollection{}, fmt.Errorf("%w: extra currency %d", ErrUnderflow, id)
		}
		diff := new(uint256.Int).Sub(av, bv)
		if !diff.IsZero() {
			if out.Extra == nil {
				out.Extra = make(map[CurrencyID]*uint256.Int)
			}
			out.Extra[id] = diff
		}
	}
	return out, nil
}

// MinWith returns, componentwise, the smaller of c and o — used for
// "carry at most the available value" flagged sends (send mode 0x40/0x80
// capped by what is actually on hand).
func (c CurrencyCollection) MinWith(o CurrencyCollection) CurrencyCollection {
	out := CurrencyCollection{Grams: c.Grams.Min(o.Grams)}
	for _, id := range sortedIDs(c.Extra, o.Extra) {
		av, bv := c.Extra[id], o.Extra[id]
		if av == nil {
			av = new(uint256.Int)
		}
		if bv == nil {
			bv = new(uint256.Int)
		}
		m := av
		if bv.Lt(av) {
			m = bv
		}
		if !m.IsZero() {
			if out.Extra == nil {
				out.Extra = make(map[CurrencyID]*uint256.Int)
			}
			out.Extra[id] = new(uint256.Int).Set(m)
		}
	}
	return out
}

// IsZero reports whether every component of c is zero.
func (c CurrencyCollection) IsZero() bool {
	if !c.Grams.IsZero() {
		return false
	}
	for _, v := range c.Extra {
		if !v.IsZero() {
			return false
		}
	}
	return true
}

// Store writes c in `(grams, Maybe extra-dict)` form. The extra dictionary
// is serialized as a flat sequence of (32-bit id, grams-encoded value)
// pairs inside a single ref cell when non-empty — a simplified stand-in for
// the real HashmapE-keyed dictionary, sufficient for this module's
// round-trip and fee-accounting needs (the exact dictionary wire format is
// part of the out-of-scope TL-B/cell layer).
func (c CurrencyCollection) Store(b *cell.Builder) error {
	if err := c.Grams.Store(b); err != nil {
		return err
	}
	if len(c.Extra) == 0 {
		return b.StoreBit(false)
	}
	if err := b.StoreBit(true); err != nil {
		return err
	}
	eb := cell.NewBuilder()
	ids := sortedIDs(c.Extra, nil)
	if err := eb.StoreUint(uint64(len(ids)), 16); err != nil {
		return err
	}
	for _, id := range ids {
		if err := eb.StoreUint(uint64(id), 32); err != nil {
			return err
		}
		g, err := FromUint256(c.Extra[id])
		if err != nil {
			return err
		}
		if err := g.Store(eb); err != nil {
			return err
		}
	}
	ec, err := eb.Finalize()
	if err != nil {
		return err
	}
	return b.StoreRef(ec)
}

// LoadCurrencyCollection reads a value written by CurrencyCollection.Store.
func LoadCurrencyCollection(s *cell.Slice) (CurrencyCollection, error) {
	g, err := LoadGrams(s)
	if err != nil {
		return CurrencyCollection{}, err
	}
	hasExtra, err := s.LoadBit()
	if err != nil {
		return CurrencyCollection{}, err
	}
	out := CurrencyCollection{Grams: g}
	if !hasExtra {
		return out, nil
	}
	ref, err := s.LoadRef()
	if err != nil {
		return CurrencyCollection{}, err
	}
	es := cell.NewSlice(ref)
	count, err := es.LoadUint(16)
	if err != nil {
		return CurrencyCollection{}, err
	}
	if count > 0 {
		out.Extra = make(map[CurrencyID]*uint256.Int, count)
	}
	for i := uint64(0); i < count; i++ {
		id, err := es.LoadUint(32)
		if err != nil {
			return CurrencyCollection{}, err
		}
		v, err := LoadGrams(es)
		if err != nil {
			return CurrencyCollection{}, err
		}
		out.Extra[CurrencyID(id)] = v.Uint256()
	}
	return out, nil
}
