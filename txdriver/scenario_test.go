package txdriver

import (
	"testing"

	"github.com/tonreplay/replayer/actionlist"
	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/money"
	"github.com/tonreplay/replayer/vm"
)

// These two scenarios reproduce, through the full Credit/Compute/Action
// pipeline and the spec's exact literal balances, the structural cases a
// VM-emitted action list can put an account through: a deferred
// carry-all-balance send competing with a plain send (S1), and a
// carry-all-balance send competing with a reserve (S5). Scenarios S2-S4 and
// S6 in the same table hinge on a historical gas/fee schedule that isn't
// reconstructable from this repository's sources — see DESIGN.md.

func encodeActions(t *testing.T, entries []actionlist.Entry) *cell.Cell {
	t.Helper()
	c, err := actionlist.Encode(actionlist.List{Entries: entries})
	if err != nil {
		t.Fatalf("encode actions: %v", err)
	}
	return c
}

// TestScenarioS1FlagOneTwentyEightProcessedLast reproduces spec.md §8's S1:
// an account with balance 310,000,000 credited by an inbound message
// carrying 1,230,000,000, whose code emits a flag-128 (carry-all-balance)
// send followed by a flag-1 (pay-fees-separately) send of zero value. The
// carry-all send is deferred to run last regardless of list order, so it
// drains the account to exactly the reserved amount (zero, since nothing
// reserves) — outmsg_cnt=2, final balance=0.
func TestScenarioS1FlagOneTwentyEightProcessedLast(t *testing.T) {
	cfg := zeroFeeConfig(t)
	acc := activeAccount(t, 310000000)
	sender := addr.Address{Workchain: 0, ID: [32]byte{9}}
	other := addr.Address{Workchain: 0, ID: [32]byte{42}}

	actions := []actionlist.Entry{
		{Kind: actionlist.KindSendMsg, Mode: actionlist.ModeCarryAllBalance, Msg: internalMsgCell(t, sampleAddr(), other, money.Zero, false)},
		{Kind: actionlist.KindSendMsg, Mode: actionlist.ModePayFeesSeparately, Msg: internalMsgCell(t, sampleAddr(), other, money.Zero, false)},
	}
	fv := &fakeVM{result: vm.VmResult{Accepted: true, Success: true, Actions: encodeActions(t, actions)}}

	msgCell := internalMsgCell(t, sender, sampleAddr(), money.NewGrams(1230000000), false)
	tx, err := RunOrdinary(acc, msgCell, cfg, fv, 100, 12345, 99, [32]byte{1}, testRT([32]byte{2}))
	if err != nil {
		t.Fatalf("RunOrdinary: %v", err)
	}
	if tx.Description.Aborted {
		t.Fatalf("expected a non-aborted transaction, got %+v", tx.Description)
	}
	if tx.OutMsgCnt != 2 {
		t.Fatalf("expected outmsg_cnt=2, got %d", tx.OutMsgCnt)
	}
	if acc.Balance.Grams.Uint64() != 0 {
		t.Fatalf("expected final balance=0, got %d", acc.Balance.Grams.Uint64())
	}
}

// TestScenarioS5ReserveThenCarryAllLeavesReservedBalance reproduces
// spec.md §8's S5: a flag-128 send followed by RAWRESERVE 1000 0. The
// reserve is not carry-all, so it runs immediately and sets aside 1000;
// the deferred carry-all send then drains everything above that —
// outmsg_cnt=1, final balance=1000, regardless of the starting balance.
func TestScenarioS5ReserveThenCarryAllLeavesReservedBalance(t *testing.T) {
	cfg := zeroFeeConfig(t)
	acc := activeAccount(t, 1000000)
	sender := addr.Address{Workchain: 0, ID: [32]byte{9}}
	other := addr.Address{Workchain: 0, ID: [32]byte{42}}

	actions := []actionlist.Entry{
		{Kind: actionlist.KindSendMsg, Mode: actionlist.ModeCarryAllBalance, Msg: internalMsgCell(t, sampleAddr(), other, money.Zero, false)},
		{Kind: actionlist.KindReserve, ReserveMode: actionlist.ReserveExact, Amount: reserveAmountCell(t, 1000)},
	}
	fv := &fakeVM{result: vm.VmResult{Accepted: true, Success: true, Actions: encodeActions(t, actions)}}

	msgCell := internalMsgCell(t, sender, sampleAddr(), money.NewGrams(1000000), false)
	tx, err := RunOrdinary(acc, msgCell, cfg, fv, 100, 12345, 99, [32]byte{1}, testRT([32]byte{2}))
	if err != nil {
		t.Fatalf("RunOrdinary: %v", err)
	}
	if tx.Description.Aborted {
		t.Fatalf("expected a non-aborted transaction, got %+v", tx.Description)
	}
	if tx.OutMsgCnt != 1 {
		t.Fatalf("expected outmsg_cnt=1, got %d", tx.OutMsgCnt)
	}
	if acc.Balance.Grams.Uint64() != 1000 {
		t.Fatalf("expected final balance=1000, got %d", acc.Balance.Grams.Uint64())
	}
}

func reserveAmountCell(t *testing.T, v uint64) *cell.Cell {
	t.Helper()
	b := cell.NewBuilder()
	if err := money.NewGrams(v).Store(b); err != nil {
		t.Fatalf("store reserve amount: %v", err)
	}
	c, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize reserve amount: %v", err)
	}
	return c
}
