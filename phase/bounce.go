package phase

import (
	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/message"
	"github.com/tonreplay/replayer/money"
	"github.com/tonreplay/replayer/netconfig"
	"github.com/tonreplay/replayer/tonacc"
)

// bounceMsgBodyBits is the hard cap on the echoed body length when
// CapBounceMsgBody is set, per the open-question decision of
// SPEC_FULL.md §6.2: truncate to exactly this many bits, never round up.
const bounceMsgBodyBits = 256

// BounceInput bundles what RunBounce needs beyond the account itself, per
// spec.md §4.E.5. Callers (txdriver) only invoke RunBounce for internal
// messages whose Bounce flag is set and whose Compute result did not
// succeed for a reason other than "external message not accepted" — that
// case never reaches here because it's an internal message.
type BounceInput struct {
	Config       *netconfig.Config
	In           *message.Message // the original inbound internal message
	InboundValue money.CurrencyCollection
}

// RunBounce returns the residual inbound value, minus the forwarding fee,
// to the original sender, with bounce=false, bounced=true, echoing up to
// bounceMsgBodyBits of the original body when CapBounceMsgBody is set (no
// body at all otherwise). If the residual value cannot even cover the
// forwarding fee, no bounce message is produced.
func RunBounce(acc *tonacc.Account, in BounceInput) (BounceResult, error) {
	destIsMasterchain := acc.Addr.IsMasterchain()

	var body *cell.Cell
	var err error
	if in.In.Body != nil && in.Config.HasCapability(netconfig.CapBounceMsgBody) {
		body, err = truncateBody(in.In.Body, bounceMsgBodyBits)
		if err != nil {
			return BounceResult{}, err
		}
	}

	cells, bits := countBounceTree(body)
	fwdFee, err := message.ForwardFees(in.Config, destIsMasterchain, cells, bits)
	if err != nil {
		return BounceResult{}, err
	}

	residual, err := in.InboundValue.Grams.Sub(fwdFee)
	if err != nil {
		// Residual value cannot cover even the forwarding fee: the
		// original sender is left uncompensated, no bounce is sent.
		return BounceResult{}, nil
	}

	// The inbound value was already credited to the account by the Credit
	// phase in full; the residual leaves via this message and the
	// forwarding fee leaves with it (it is paid out of the account, not
	// out of the message value, since residual is already value-fwdFee),
	// so both must come out of the balance, per spec.md §8 property 1
	// (balance conservation).
	debit, err := residual.Add(fwdFee)
	if err != nil {
		return BounceResult{}, err
	}
	newBal, err := acc.Balance.Grams.Sub(debit)
	if err != nil {
		return BounceResult{}, err
	}
	acc.Balance.Grams = newBal

	out := &message.Message{
		Kind:    message.KindInternal,
		Src:     addr.FromStd(acc.Addr),
		Dest:    in.In.Src,
		Value:   money.NewCurrencyCollection(residual),
		Bounce:  false,
		Bounced: true,
		FwdFee:  fwdFee,
		Body:    body,
	}
	return BounceResult{Produced: true, Out: out, FwdFee: fwdFee}, nil
}

// truncateBody copies at most limit bits of body into a fresh cell,
// discarding the remainder and any references, per the bit-exact
// truncation decided in SPEC_FULL.md §6.2.
func truncateBody(body *cell.Cell, limit int) (*cell.Cell, error) {
	s := cell.NewSlice(body)
	n := s.RemainingBits()
	if n > limit {
		n = limit
	}
	raw, err := s.LoadBits(n)
	if err != nil {
		return nil, err
	}
	b := cell.NewBuilder()
	if err := b.StoreBits(raw, n); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// countBounceTree returns the cell/bit counts the forwarding-fee formula
// bills for the bounce message's body, treating an absent body as empty.
func countBounceTree(body *cell.Cell) (cells, bits uint64) {
	if body == nil {
		return 0, 0
	}
	return 1, uint64(body.BitLen())
}
