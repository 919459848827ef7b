package phase

import (
	"testing"

	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/message"
	"github.com/tonreplay/replayer/money"
	"github.com/tonreplay/replayer/netconfig"
	"github.com/tonreplay/replayer/tonacc"
)

func buildBody(t *testing.T, bits int) *cell.Cell {
	t.Helper()
	b := cell.NewBuilder()
	for i := 0; i < bits; i++ {
		if err := b.StoreBit(i%2 == 0); err != nil {
			t.Fatalf("store bit: %v", err)
		}
	}
	c, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return c
}

func TestRunBounceTruncatesBodyAndReturnsResidual(t *testing.T) {
	cfg := zeroFeeConfigWithCaps(t, netconfig.CapBounceMsgBody)
	acc := tonacc.InitNew(sampleAddr(), 0)
	acc.Balance = money.NewCurrencyCollection(money.NewGrams(1000)) // as if Credit already ran
	sender := addr.Address{Workchain: 0, ID: [32]byte{9}}

	inbound := &message.Message{
		Kind: message.KindInternal,
		Src:  addr.FromStd(sender),
		Dest: addr.FromStd(sampleAddr()),
		Body: buildBody(t, 400), // exceeds the 256-bit cap
	}

	res, err := RunBounce(acc, BounceInput{
		Config:       cfg,
		In:           inbound,
		InboundValue: money.NewCurrencyCollection(money.NewGrams(1000)),
	})
	if err != nil {
		t.Fatalf("RunBounce: %v", err)
	}
	if !res.Produced {
		t.Fatalf("expected a bounce message to be produced")
	}
	if acc.Balance.Grams.Uint64() != 0 {
		t.Fatalf("expected the bounced residual debited back out, got balance %d", acc.Balance.Grams.Uint64())
	}
	if !res.Out.Bounced || res.Out.Bounce {
		t.Fatalf("expected bounce=false bounced=true, got bounce=%v bounced=%v", res.Out.Bounce, res.Out.Bounced)
	}
	if res.Out.Value.Grams.Uint64() != 1000 {
		t.Fatalf("expected full residual value with zero fwd fee, got %d", res.Out.Value.Grams.Uint64())
	}
	if res.Out.Body == nil || res.Out.Body.BitLen() != bounceMsgBodyBits {
		t.Fatalf("expected body truncated to exactly %d bits, got %+v", bounceMsgBodyBits, res.Out.Body)
	}
	destStd, err := res.Out.Dest.Std()
	if err != nil {
		t.Fatalf("dest: %v", err)
	}
	if destStd != sender {
		t.Fatalf("expected bounce addressed back to original sender, got %+v", destStd)
	}
}

func TestRunBounceNoCapabilityOmitsBody(t *testing.T) {
	// zeroFeeConfig never sets CapBounceMsgBody, unlike buildTestConfig.
	noCapCfg := zeroFeeConfig(t)
	acc := tonacc.InitNew(sampleAddr(), 0)
	acc.Balance = money.NewCurrencyCollection(money.NewGrams(500))
	sender := addr.Address{Workchain: 0, ID: [32]byte{9}}

	inbound := &message.Message{
		Kind: message.KindInternal,
		Src:  addr.FromStd(sender),
		Dest: addr.FromStd(sampleAddr()),
		Body: buildBody(t, 10),
	}
	res, err := RunBounce(acc, BounceInput{Config: noCapCfg, In: inbound, InboundValue: money.NewCurrencyCollection(money.NewGrams(500))})
	if err != nil {
		t.Fatalf("RunBounce: %v", err)
	}
	if res.Out.Body != nil {
		t.Fatalf("expected no body echoed when capability is disabled")
	}
}

func TestRunBounceDebitsResidualPlusForwardingFee(t *testing.T) {
	cfg := buildTestConfig(t) // nonzero LumpPrice=1000000, unlike zeroFeeConfig
	acc := tonacc.InitNew(sampleAddr(), 0)
	acc.Balance = money.NewCurrencyCollection(money.NewGrams(2000000)) // as if Credit already ran
	sender := addr.Address{Workchain: 0, ID: [32]byte{9}}

	inbound := &message.Message{
		Kind: message.KindInternal,
		Src:  addr.FromStd(sender),
		Dest: addr.FromStd(sampleAddr()),
	}
	res, err := RunBounce(acc, BounceInput{
		Config:       cfg,
		In:           inbound,
		InboundValue: money.NewCurrencyCollection(money.NewGrams(2000000)),
	})
	if err != nil {
		t.Fatalf("RunBounce: %v", err)
	}
	if !res.Produced {
		t.Fatalf("expected a bounce message to be produced")
	}
	if res.FwdFee.Uint64() != 1000000 {
		t.Fatalf("expected fwdFee=1000000 (bare LumpPrice, no body), got %d", res.FwdFee.Uint64())
	}
	if res.Out.Value.Grams.Uint64() != 1000000 {
		t.Fatalf("expected residual of 1000000 on the bounce message, got %d", res.Out.Value.Grams.Uint64())
	}
	// Balance must be debited residual+fwdFee (2000000), not just the
	// residual (1000000) leaving the message: the forwarding fee is paid
	// out of the account, same as phase/action.go's send path.
	if acc.Balance.Grams.Uint64() != 0 {
		t.Fatalf("expected balance debited by residual+fwdFee down to 0, got %d", acc.Balance.Grams.Uint64())
	}
}

func TestRunBounceInsufficientResidualProducesNothing(t *testing.T) {
	cfg := buildTestConfig(t)
	acc := tonacc.InitNew(sampleAddr(), 0)
	sender := addr.Address{Workchain: 0, ID: [32]byte{9}}

	inbound := &message.Message{
		Kind: message.KindInternal,
		Src:  addr.FromStd(sender),
		Dest: addr.FromStd(sampleAddr()),
	}
	res, err := RunBounce(acc, BounceInput{Config: cfg, In: inbound, InboundValue: money.NewCurrencyCollection(money.Zero)})
	if err != nil {
		t.Fatalf("RunBounce: %v", err)
	}
	if res.Produced {
		t.Fatalf("expected no bounce message when residual cannot cover the forwarding fee")
	}
}
