package txdriver

import (
	"testing"

	"github.com/tonreplay/replayer/cell"
)

func TestReplayRequestRoundTrip(t *testing.T) {
	msgB := cell.NewBuilder()
	if err := msgB.StoreUint(0xBEEF, 16); err != nil {
		t.Fatalf("store msg: %v", err)
	}
	msgCell, err := msgB.Finalize()
	if err != nil {
		t.Fatalf("finalize msg: %v", err)
	}

	req := ReplayRequest{LT: 42, Now: 12345, PrevLT: 41, PrevHash: [32]byte{9, 9, 9}, InMsg: msgCell}

	b := cell.NewBuilder()
	if err := req.Store(b); err != nil {
		t.Fatalf("store: %v", err)
	}
	c, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	got, err := LoadReplayRequest(c)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.LT != req.LT || got.Now != req.Now || got.PrevLT != req.PrevLT || got.PrevHash != req.PrevHash {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, req)
	}
	if got.InMsg == nil || !got.InMsg.Equal(msgCell) {
		t.Fatalf("round trip InMsg mismatch")
	}
}

func TestReplayRequestRoundTripNoMessage(t *testing.T) {
	req := ReplayRequest{LT: 7, Now: 1, PrevLT: 6, PrevHash: [32]byte{1}}
	b := cell.NewBuilder()
	if err := req.Store(b); err != nil {
		t.Fatalf("store: %v", err)
	}
	c, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	got, err := LoadReplayRequest(c)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.InMsg != nil {
		t.Fatalf("expected nil InMsg, got %v", got.InMsg)
	}
}
