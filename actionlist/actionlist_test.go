package actionlist

import (
	"testing"

	"github.com/tonreplay/replayer/cell"
)

func dummyMsg(t *testing.T, tag uint64) *cell.Cell {
	t.Helper()
	b := cell.NewBuilder()
	if err := b.StoreUint(tag, 8); err != nil {
		t.Fatalf("store: %v", err)
	}
	c, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return c
}

func TestEmptyListRoundTrip(t *testing.T) {
	c, err := Encode(List{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(c)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Entries) != 0 {
		t.Fatalf("expected empty list, got %d entries", len(got.Entries))
	}
}

func TestSendMsgAndReserveRoundTrip(t *testing.T) {
	msg1 := dummyMsg(t, 1)
	msg2 := dummyMsg(t, 2)
	amount := dummyMsg(t, 3)

	list := List{Entries: []Entry{
		{Kind: KindSendMsg, Mode: ModeCarryAllBalance, Msg: msg1},
		{Kind: KindReserve, ReserveMode: ReserveExact, Amount: amount},
		{Kind: KindSendMsg, Mode: ModeIgnoreErrors | ModeDeleteIfZero, Msg: msg2},
	}}

	c, err := Encode(list)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(c)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got.Entries))
	}
	if got.Entries[0].Mode != ModeCarryAllBalance {
		t.Fatalf("entry 0 mode mismatch: %x", got.Entries[0].Mode)
	}
	if got.Entries[1].Kind != KindReserve {
		t.Fatalf("entry 1 kind mismatch")
	}
	if got.Entries[2].Mode != ModeIgnoreErrors|ModeDeleteIfZero {
		t.Fatalf("entry 2 mode mismatch: %x", got.Entries[2].Mode)
	}
	if !got.Entries[0].Msg.Equal(msg1) {
		t.Fatalf("entry 0 msg mismatch")
	}
}

func TestSetCodeAndChangeLibraryRoundTrip(t *testing.T) {
	code := dummyMsg(t, 9)
	list := List{Entries: []Entry{
		{Kind: KindSetCode, NewCode: code},
		{Kind: KindChangeLibrary, LibMode: 2, Lib: nil},
	}}
	c, err := Encode(list)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(c)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got.Entries))
	}
	if !got.Entries[0].NewCode.Equal(code) {
		t.Fatalf("new code mismatch")
	}
	if got.Entries[1].LibMode != 2 || got.Entries[1].Lib != nil {
		t.Fatalf("change library mismatch: %+v", got.Entries[1])
	}
}
