package tonacc

import (
	"testing"

	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/money"
)

func sampleAddr() addr.Address {
	return addr.Address{Workchain: 0, ID: [32]byte{1, 2, 3, 4}}
}

func TestInitNewDefaults(t *testing.T) {
	a := InitNew(sampleAddr(), 1000)
	if a.Status != StatusUninit {
		t.Fatalf("expected StatusUninit, got %v", a.Status)
	}
	if !a.Balance.IsZero() {
		t.Fatalf("expected zero balance")
	}
	if a.LastPaid != 1000 {
		t.Fatalf("expected LastPaid=1000, got %d", a.LastPaid)
	}
	if err := a.CheckInvariants(); err != nil {
		t.Fatalf("unexpected invariant violation: %v", err)
	}
}

func TestUnpackNonexistent(t *testing.T) {
	b := cell.NewBuilder()
	if err := b.StoreBit(false); err != nil {
		t.Fatalf("store: %v", err)
	}
	c, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	a, err := Unpack(cell.NewSlice(c), sampleAddr(), 0, false)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if a.Status != StatusNonexistent {
		t.Fatalf("expected StatusNonexistent, got %v", a.Status)
	}
}

func TestStoreUnpackRoundTrip(t *testing.T) {
	a := InitNew(sampleAddr(), 500)
	a.Status = StatusActive
	codeBuilder := cell.NewBuilder()
	if err := codeBuilder.StoreUint(0xCAFE, 16); err != nil {
		t.Fatalf("code builder: %v", err)
	}
	code, err := codeBuilder.Finalize()
	if err != nil {
		t.Fatalf("finalize code: %v", err)
	}
	a.Code = code
	a.Balance = money.NewCurrencyCollection(money.NewGrams(12345))
	a.LastTransLT = 42

	b := cell.NewBuilder()
	if err := a.Store(b); err != nil {
		t.Fatalf("Store: %v", err)
	}
	c, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	got, err := Unpack(cell.NewSlice(c), sampleAddr(), 0, false)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.Status != StatusActive {
		t.Fatalf("status mismatch: %v", got.Status)
	}
	if got.Balance.Grams.Uint64() != 12345 {
		t.Fatalf("balance mismatch: %d", got.Balance.Grams.Uint64())
	}
	if got.LastTransLT != 42 {
		t.Fatalf("last_trans_lt mismatch: %d", got.LastTransLT)
	}
	if got.Code == nil || !got.Code.Equal(code) {
		t.Fatalf("code mismatch")
	}
	if err := got.CheckInvariants(); err != nil {
		t.Fatalf("unexpected invariant violation: %v", err)
	}
}

func TestCheckInvariantsActiveWithoutCode(t *testing.T) {
	a := InitNew(sampleAddr(), 0)
	a.Status = StatusActive
	if err := a.CheckInvariants(); err == nil {
		t.Fatalf("expected invariant violation for active account without code")
	}
}

func TestComputeMyAddrRewritesAnycastPrefix(t *testing.T) {
	a := InitNew(sampleAddr(), 0)
	a.SplitDepth = 8
	a.RewritePfx = []byte{0xFF}

	a.ComputeMyAddr(true)
	if a.Addr == a.AddrOrig {
		t.Fatalf("expected Addr to differ from AddrOrig once an anycast rewrite prefix is applied")
	}
	if a.Addr.ID[0] != 0xFF {
		t.Fatalf("expected the first byte of Addr rewritten to 0xFF, got %#x", a.Addr.ID[0])
	}
	if a.AddrOrig.ID[0] == 0xFF {
		t.Fatalf("expected AddrOrig to remain unchanged")
	}
}

func TestComputeMyAddrNoRewriteWithoutStoredPrefix(t *testing.T) {
	a := InitNew(sampleAddr(), 0)
	a.SplitDepth = 8 // split_depth alone, with no stored prefix, rewrites nothing

	a.ComputeMyAddr(true)
	if a.Addr != a.AddrOrig {
		t.Fatalf("expected Addr == AddrOrig when no rewrite prefix is stored")
	}
}

func TestStoreUnpackRoundTripPreservesRewritePrefix(t *testing.T) {
	a := InitNew(sampleAddr(), 0)
	a.Status = StatusActive
	codeBuilder := cell.NewBuilder()
	if err := codeBuilder.StoreUint(0xCAFE, 16); err != nil {
		t.Fatalf("code builder: %v", err)
	}
	code, err := codeBuilder.Finalize()
	if err != nil {
		t.Fatalf("finalize code: %v", err)
	}
	a.Code = code
	a.SplitDepth = 8
	a.RewritePfx = []byte{0xAB}

	b := cell.NewBuilder()
	if err := a.Store(b); err != nil {
		t.Fatalf("Store: %v", err)
	}
	c, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	got, err := Unpack(cell.NewSlice(c), sampleAddr(), 0, false)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.SplitDepth != 8 {
		t.Fatalf("split_depth mismatch: %d", got.SplitDepth)
	}
	if len(got.RewritePfx) != 1 || got.RewritePfx[0] != 0xAB {
		t.Fatalf("rewrite_pfx mismatch: %#v", got.RewritePfx)
	}
	if got.Addr.ID[0] != 0xAB {
		t.Fatalf("expected Unpack's ComputeMyAddr(true) call to rewrite Addr, got %#x", got.Addr.ID[0])
	}
	if got.Addr == got.AddrOrig {
		t.Fatalf("expected Addr to differ from AddrOrig once rewritten")
	}
}

func TestRescanCounts(t *testing.T) {
	a := InitNew(sampleAddr(), 0)
	b := cell.NewBuilder()
	if err := a.Store(b); err != nil {
		t.Fatalf("store: %v", err)
	}
	c, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	a.Rescan(c)
	if a.Stats.Cells == 0 {
		t.Fatalf("expected nonzero cell count after rescan")
	}
}
