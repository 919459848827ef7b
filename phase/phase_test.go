package phase

import (
	"testing"

	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/money"
	"github.com/tonreplay/replayer/netconfig"
)

// buildTestConfig assembles a minimal but complete config cell covering
// every param the phase engines consult, following the same
// declare-then-EncodeParams pattern netconfig's own tests use.
func buildTestConfig(t *testing.T) *netconfig.Config {
	t.Helper()
	params := map[int]*cell.Cell{}

	capsBuilder := cell.NewBuilder()
	if err := capsBuilder.StoreUint(uint64(netconfig.CapBounceMsgBody), 64); err != nil {
		t.Fatalf("caps: %v", err)
	}
	caps, err := capsBuilder.Finalize()
	if err != nil {
		t.Fatalf("finalize caps: %v", err)
	}
	params[netconfig.ParamCapabilities] = caps

	wcs, err := netconfig.EncodeWorkchains(map[int32]netconfig.WorkchainInfo{
		0: {Enabled: true, Basic: true, ActiveFrom: 0},
	})
	if err != nil {
		t.Fatalf("workchains: %v", err)
	}
	params[netconfig.ParamWorkchains] = wcs

	smc, err := netconfig.EncodeAddressSet(nil)
	if err != nil {
		t.Fatalf("smc: %v", err)
	}
	params[netconfig.ParamSpecialSmc] = smc

	gas := netconfig.GasLimitsPrices{
		GasPrice:       65536,
		GasLimit:       1000000,
		GasCredit:      10000,
		BlockGasLimit:  11000000,
		FreezeDueLimit: money.NewGrams(100000000),
		DeleteDueLimit: money.NewGrams(1000000000),
		FlatGasLimit:   100,
		FlatGasPrice:   1000000,
	}
	gasCell, err := netconfig.EncodeGasLimitsPrices(gas)
	if err != nil {
		t.Fatalf("gas: %v", err)
	}
	params[netconfig.ParamGasPricesStandard] = gasCell
	params[netconfig.ParamGasPricesMasterchain] = gasCell

	msg := netconfig.MsgForwardPrices{
		LumpPrice: 1000000,
		BitPrice:  65536,
		CellPrice: 65536 * 100,
		FirstFrac: 0x5555,
		NextFrac:  0x5555,
	}
	msgCell, err := netconfig.EncodeMsgForwardPrices(msg)
	if err != nil {
		t.Fatalf("msg: %v", err)
	}
	params[netconfig.ParamMsgPricesStandard] = msgCell
	params[netconfig.ParamMsgPricesMasterchain] = msgCell

	sp := netconfig.StoragePrices{Entries: []netconfig.StoragePriceEntry{
		{UtimeSince: 0, BitPricePS: 1, CellPricePS: 2, McBitPricePS: 1, McCellPricePS: 2},
	}}
	spCell, err := netconfig.EncodeStoragePrices(sp)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	params[netconfig.ParamStoragePrices] = spCell

	root, err := netconfig.EncodeParams(params)
	if err != nil {
		t.Fatalf("encode params: %v", err)
	}
	cfg, err := netconfig.Load(root, netconfig.NeedCapabilities|netconfig.NeedWorkchainInfo|netconfig.NeedSpecialSmc)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return cfg
}

func sampleAddr() addr.Address {
	return addr.Address{Workchain: 0, ID: [32]byte{7, 7, 7}}
}
