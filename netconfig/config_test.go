package netconfig

import (
	"testing"

	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/cell"
)

func buildTestConfig(t *testing.T, extra map[int]*cell.Cell) *cell.Cell {
	t.Helper()
	params := map[int]*cell.Cell{}
	for k, v := range extra {
		params[k] = v
	}

	capsBuilder := cell.NewBuilder()
	if err := capsBuilder.StoreUint(uint64(CapBounceMsgBody|CapReportVersion), 64); err != nil {
		t.Fatalf("caps: %v", err)
	}
	caps, err := capsBuilder.Finalize()
	if err != nil {
		t.Fatalf("finalize caps: %v", err)
	}
	params[ParamCapabilities] = caps

	wcs, err := EncodeWorkchains(map[int32]WorkchainInfo{
		0: {Enabled: true, Basic: true, ActiveFrom: 0},
	})
	if err != nil {
		t.Fatalf("workchains: %v", err)
	}
	params[ParamWorkchains] = wcs

	smc, err := EncodeAddressSet([]addr.Address{{Workchain: -1, ID: [32]byte{1, 2, 3}}})
	if err != nil {
		t.Fatalf("smc: %v", err)
	}
	params[ParamSpecialSmc] = smc

	root, err := EncodeParams(params)
	if err != nil {
		t.Fatalf("encode params: %v", err)
	}
	return root
}

func TestLoadAndCapabilities(t *testing.T) {
	root := buildTestConfig(t, nil)
	cfg, err := Load(root, NeedCapabilities|NeedWorkchainInfo|NeedSpecialSmc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.HasCapability(CapBounceMsgBody) {
		t.Fatalf("expected CapBounceMsgBody set")
	}
	if cfg.HasCapability(CapShortDequeue) {
		t.Fatalf("did not expect CapShortDequeue set")
	}
	if !cfg.IsSpecialAccount(addr.Address{Workchain: -1, ID: [32]byte{1, 2, 3}}) {
		t.Fatalf("expected special account to be recognized")
	}
	if cfg.IsSpecialAccount(addr.Address{Workchain: 0, ID: [32]byte{9}}) {
		t.Fatalf("did not expect unrelated address to be special")
	}
	wcs, err := cfg.Workchains()
	if err != nil {
		t.Fatalf("Workchains: %v", err)
	}
	if info, ok := wcs[0]; !ok || !info.Enabled || !info.Basic {
		t.Fatalf("unexpected workchain 0 info: %+v ok=%v", info, ok)
	}
}

func TestLoadMissingRequiredParamIsFatal(t *testing.T) {
	root := buildTestConfig(t, nil)
	// Strip special smc by rebuilding without it.
	params, err := decodeParamDict(root)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	delete(params, ParamSpecialSmc)
	stripped, err := EncodeParams(params)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	_, err = Load(stripped, NeedSpecialSmc)
	if err == nil {
		t.Fatalf("expected fatal error for missing special smc param")
	}
	if !IsFatal(err) {
		t.Fatalf("expected IsFatal(err) true, got %v", err)
	}
}

func TestGasPrices(t *testing.T) {
	want := GasLimitsPrices{
		GasPrice:      65536,
		GasLimit:      1000000,
		GasCredit:     10000,
		BlockGasLimit: 11000000,
		FlatGasLimit:  100,
		FlatGasPrice:  1000000,
	}
	gasCell, err := EncodeGasLimitsPrices(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	root := buildTestConfig(t, map[int]*cell.Cell{ParamGasPricesStandard: gasCell})
	cfg, err := Load(root, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := cfg.GasPrices(false)
	if err != nil {
		t.Fatalf("GasPrices: %v", err)
	}
	if got != want {
		t.Fatalf("GasPrices mismatch: got %+v want %+v", got, want)
	}
	// 1 gas unit at price 65536 (== 2^16) costs exactly 1 gram.
	if fee := got.ComputeGasFee(1); fee.Uint64() != 1 {
		t.Fatalf("ComputeGasFee(1) = %d, want 1", fee.Uint64())
	}
}

func TestMsgForwardFee(t *testing.T) {
	m := MsgForwardPrices{
		LumpPrice: 1000000,
		BitPrice:  65536,
		CellPrice: 65536 * 100,
		FirstFrac: 0x5555,
		NextFrac:  0x5555,
	}
	fee := m.ForwardFee(2, 1000)
	// cellPrice*cells + bitPrice*bits = 65536*100*2 + 65536*1000 = 13107200+65536000=78643200
	// /2^16 = 1200 exactly
	if fee.Uint64() != 1000000+1200 {
		t.Fatalf("ForwardFee = %d, want %d", fee.Uint64(), 1000000+1200)
	}
}

func TestStoragePricesRateAt(t *testing.T) {
	sp := StoragePrices{Entries: []StoragePriceEntry{
		{UtimeSince: 0, BitPricePS: 1, CellPricePS: 2},
		{UtimeSince: 1000, BitPricePS: 3, CellPricePS: 4},
	}}
	if r, ok := sp.RateAt(500); !ok || r.BitPricePS != 1 {
		t.Fatalf("RateAt(500) = %+v ok=%v, want bucket 0", r, ok)
	}
	if r, ok := sp.RateAt(1500); !ok || r.BitPricePS != 3 {
		t.Fatalf("RateAt(1500) = %+v ok=%v, want bucket 1", r, ok)
	}

	c, err := EncodeStoragePrices(sp)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := decodeStoragePrices(c)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(back.Entries) != 2 || back.Entries[1].UtimeSince != 1000 {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}
