package netconfig

import (
	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/cell"
)

// WorkchainInfo describes a single entry of param 12's workchain list.
type WorkchainInfo struct {
	Enabled    bool
	Basic      bool
	ActiveFrom uint32
}

// EncodeWorkchains serializes a workchain-id -> info map.
func EncodeWorkchains(wcs map[int32]WorkchainInfo) (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := b.StoreUint(uint64(len(wcs)), 16); err != nil {
		return nil, err
	}
	for id, info := range wcs {
		if err := b.StoreUint(uint64(int32(id)), 32); err != nil {
			return nil, err
		}
		if err := b.StoreBit(info.Enabled); err != nil {
			return nil, err
		}
		if err := b.StoreBit(info.Basic); err != nil {
			return nil, err
		}
		if err := b.StoreUint(uint64(info.ActiveFrom), 32); err != nil {
			return nil, err
		}
	}
	return b.Finalize()
}

func decodeWorkchains(c *cell.Cell) (map[int32]WorkchainInfo, error) {
	s := cell.NewSlice(c)
	n, err := s.LoadUint(16)
	if err != nil {
		return nil, fatalf(ParamWorkchains, "decode count: %v", err)
	}
	out := make(map[int32]WorkchainInfo, n)
	for i := uint64(0); i < n; i++ {
		id, err := s.LoadInt(32)
		if err != nil {
			return nil, fatalf(ParamWorkchains, "decode id: %v", err)
		}
		enabled, err := s.LoadBit()
		if err != nil {
			return nil, fatalf(ParamWorkchains, "decode enabled: %v", err)
		}
		basic, err := s.LoadBit()
		if err != nil {
			return nil, fatalf(ParamWorkchains, "decode basic: %v", err)
		}
		from, err := s.LoadUint(32)
		if err != nil {
			return nil, fatalf(ParamWorkchains, "decode active_from: %v", err)
		}
		out[int32(id)] = WorkchainInfo{Enabled: enabled, Basic: basic, ActiveFrom: uint32(from)}
	}
	return out, nil
}

// EncodeAddressSet serializes the special_smc_set of param 31.
func EncodeAddressSet(addrs []addr.Address) (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := b.StoreUint(uint64(len(addrs)), 16); err != nil {
		return nil, err
	}
	for _, a := range addrs {
		if err := b.StoreUint(uint64(int32(a.Workchain)), 32); err != nil {
			return nil, err
		}
		if err := b.StoreBits(a.ID[:], 256); err != nil {
			return nil, err
		}
	}
	return b.Finalize()
}

func decodeAddressSet(c *cell.Cell) (map[addr.Address]struct{}, error) {
	s := cell.NewSlice(c)
	n, err := s.LoadUint(16)
	if err != nil {
		return nil, err
	}
	out := make(map[addr.Address]struct{}, n)
	for i := uint64(0); i < n; i++ {
		wc, err := s.LoadInt(32)
		if err != nil {
			return nil, err
		}
		idBytes, err := s.LoadBits(256)
		if err != nil {
			return nil, err
		}
		var a addr.Address
		a.Workchain = int32(wc)
		copy(a.ID[:], idBytes)
		out[a] = struct{}{}
	}
	return out, nil
}
