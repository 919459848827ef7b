package txdriver

import (
	"errors"
	"fmt"
	"time"

	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/message"
	"github.com/tonreplay/replayer/money"
	"github.com/tonreplay/replayer/netconfig"
	"github.com/tonreplay/replayer/phase"
	"github.com/tonreplay/replayer/runtimectx"
	"github.com/tonreplay/replayer/tonacc"
	"github.com/tonreplay/replayer/vm"
)

// maxTxBits bounds the transaction's serialized size, approximated by
// commitAccount as the account cell's bits plus every outbound message
// cell's bits; past it, finalize drops the Action-phase output messages,
// per spec.md §4.F's last paragraph.
const maxTxBits = cell.MaxBits * 4

// RunOrdinary executes a complete ordinary transaction against acc for
// the inbound message in msgCell, per spec.md §4.F and §4.E.2's
// bounce-flag-driven Storage/Credit ordering. message.ErrRejected is
// returned unwrapped when the inbound message is a non-fatal external
// rejection (spec.md §7's "External-rejected" class, detected at
// message-unpack time per SPEC_FULL.md §5.3); every other error is fatal
// and acc is left in whatever partial state the failing phase produced —
// callers must discard acc on a non-ErrRejected error. rt supplies the
// logger, gas-phase random seed, and (optionally) the metrics collectors
// phase outcomes are reported to.
func RunOrdinary(acc *tonacc.Account, msgCell *cell.Cell, cfg *netconfig.Config, vmi vm.VM, lt uint64, now uint32, prevLT uint64, prevHash [32]byte, rt *runtimectx.RuntimeContext) (*Transaction, error) {
	log := rt.WithField("addr", acc.Addr.ID).WithField("lt", lt)

	preHash, err := hashAccount(acc)
	if err != nil {
		return nil, fmt.Errorf("txdriver: hash pre-state: %w", err)
	}

	msg, err := unpackInbound(msgCell)
	if err != nil {
		if errors.Is(err, message.ErrRejected) {
			rt.Metrics.ObserveRejected()
			log.Debug("txdriver: inbound message rejected")
			return nil, err
		}
		return nil, err
	}
	if msg.Kind == message.KindExternalOut {
		return nil, fmt.Errorf("txdriver: inbound message cannot be external-out")
	}
	isInternal := msg.Kind == message.KindInternal
	isExternal := msg.Kind == message.KindExternalIn

	origStatus := acc.Status

	storageFirst := !(isInternal && !msg.Bounce)
	storageRes, creditRes, err := timedStorageAndCredit(rt, acc, cfg, now, isInternal, msg.Value, storageFirst)
	if err != nil {
		rt.Metrics.ObserveFatal("invariant")
		return nil, fmt.Errorf("txdriver: %w", err)
	}

	gasCtx, err := gasContextFor(acc, cfg, isExternal)
	if err != nil {
		rt.Metrics.ObserveFatal("config")
		return nil, fmt.Errorf("txdriver: gas context: %w", err)
	}

	computeStart := time.Now()
	computeRes, err := phase.RunCompute(acc, phase.ComputeInput{
		VM:           vmi,
		Msg:          msg,
		ExternalIn:   isExternal,
		RandSeed:     rt.RandSeed,
		GlobalConfig: cfg,
	}, gasCtx)
	if err != nil {
		var ae *phase.AbortedError
		if errors.As(err, &ae) {
			rt.Metrics.ObservePhase("compute", "aborted", time.Since(computeStart).Seconds())
			if isExternal {
				// spec.md §7: an unaccepted external-in message is a
				// non-fatal rejection, not a committed aborted transaction.
				rt.Metrics.ObserveRejected()
				log.WithField("reason", ae.Reason).Debug("txdriver: external-in not accepted")
				return nil, message.ErrRejected
			}
			log.WithField("reason", ae.Reason).Error("txdriver: internal message not accepted")
			rt.Metrics.ObserveFatal("invariant")
			return nil, &phase.AbortedError{Phase: "invariant", Reason: "unaccepted internal message: " + ae.Reason}
		}
		rt.Metrics.ObserveFatal("invariant")
		return nil, fmt.Errorf("txdriver: compute: %w", err)
	}
	if isInternal && !computeRes.Skipped && !computeRes.Accepted {
		log.Error("txdriver: internal message not accepted")
		rt.Metrics.ObserveFatal("invariant")
		return nil, &phase.AbortedError{Phase: "invariant", Reason: "unaccepted internal message"}
	}
	rt.Metrics.ObservePhase("compute", computeOutcome(computeRes), time.Since(computeStart).Seconds())

	actionRes, bounceRes, aborted, abortedPhase, abortedReason, err := runActionAndBounce(acc, cfg, msg, isInternal, isExternal, computeRes)
	if err != nil {
		if errors.Is(err, message.ErrRejected) {
			rt.Metrics.ObserveRejected()
			log.Debug("txdriver: compute skipped on external-in message, rejected")
			return nil, err
		}
		rt.Metrics.ObserveFatal("invariant")
		return nil, fmt.Errorf("txdriver: %w", err)
	}
	if aborted {
		log.WithField("phase", abortedPhase).WithField("reason", abortedReason).Warn("txdriver: transaction aborted")
	}

	tx, err := finalize(acc, finalizeInput{
		kind:          "ordinary",
		lt:            lt,
		now:           now,
		prevLT:        prevLT,
		prevHash:      prevHash,
		preHash:       preHash,
		origStatus:    origStatus,
		inMsg:         msg,
		storageFirst:  storageFirst,
		storage:       storageRes,
		credit:        creditRes,
		compute:       computeRes,
		action:        actionRes,
		bounce:        bounceRes,
		aborted:       aborted,
		abortedPhase:  abortedPhase,
		abortedReason: abortedReason,
	})
	if err != nil {
		rt.Metrics.ObserveFatal("invariant")
		return nil, fmt.Errorf("txdriver: %w", err)
	}
	return tx, nil
}

// RunTickTock executes a tick or tock transaction: Storage -> Compute ->
// Action only, no inbound message, no credit, no bounce, per spec.md
// §4.F. allow_special is hardcoded true for both kinds, matching
// SPEC_FULL.md §5.4's supplemented detail — it is the caller's
// responsibility to have unpacked acc with allowSpecial=true.
func RunTickTock(acc *tonacc.Account, isTock bool, cfg *netconfig.Config, vmi vm.VM, lt uint64, now uint32, prevLT uint64, prevHash [32]byte, rt *runtimectx.RuntimeContext) (*Transaction, error) {
	log := rt.WithField("addr", acc.Addr.ID).WithField("lt", lt)

	preHash, err := hashAccount(acc)
	if err != nil {
		return nil, fmt.Errorf("txdriver: hash pre-state: %w", err)
	}
	origStatus := acc.Status

	storageStart := time.Now()
	storageRes, err := phase.RunStorage(acc, cfg, now)
	if err != nil {
		rt.Metrics.ObserveFatal("invariant")
		return nil, fmt.Errorf("txdriver: storage: %w", err)
	}
	rt.Metrics.ObservePhase("storage", "ok", time.Since(storageStart).Seconds())

	gasCtx, err := gasContextFor(acc, cfg, false)
	if err != nil {
		rt.Metrics.ObserveFatal("config")
		return nil, fmt.Errorf("txdriver: gas context: %w", err)
	}

	computeStart := time.Now()
	computeRes, err := phase.RunCompute(acc, phase.ComputeInput{
		VM:           vmi,
		Msg:          nil,
		IsTock:       isTock,
		RandSeed:     rt.RandSeed,
		GlobalConfig: cfg,
	}, gasCtx)
	if err != nil {
		rt.Metrics.ObserveFatal("invariant")
		return nil, fmt.Errorf("txdriver: compute: %w", err)
	}
	rt.Metrics.ObservePhase("compute", computeOutcome(computeRes), time.Since(computeStart).Seconds())

	actionRes, _, aborted, abortedPhase, abortedReason, err := runActionAndBounce(acc, cfg, nil, false, false, computeRes)
	if err != nil {
		rt.Metrics.ObserveFatal("invariant")
		return nil, fmt.Errorf("txdriver: %w", err)
	}
	if aborted {
		log.WithField("phase", abortedPhase).WithField("reason", abortedReason).Warn("txdriver: tick/tock aborted")
	}

	kind := "tick"
	if isTock {
		kind = "tock"
	}
	tx, err := finalize(acc, finalizeInput{
		kind:          kind,
		lt:            lt,
		now:           now,
		prevLT:        prevLT,
		prevHash:      prevHash,
		preHash:       preHash,
		origStatus:    origStatus,
		storageFirst:  true,
		storage:       storageRes,
		compute:       computeRes,
		action:        actionRes,
		aborted:       aborted,
		abortedPhase:  abortedPhase,
		abortedReason: abortedReason,
	})
	if err != nil {
		rt.Metrics.ObserveFatal("invariant")
		return nil, fmt.Errorf("txdriver: %w", err)
	}
	return tx, nil
}

// unpackInbound wraps message.ParseIn. A failure to unpack is a non-fatal
// external rejection when the message's own tag says it is external-in;
// any other unpack failure (including an external-in message whose tag
// cannot even be read) is fatal, per SPEC_FULL.md §5.3's "failing to
// unpack an internal message is fatal, rejecting an external one is not."
func unpackInbound(msgCell *cell.Cell) (*message.Message, error) {
	msg, err := message.ParseIn(msgCell)
	if err == nil {
		return msg, nil
	}
	if kind, kerr := message.PeekKind(msgCell); kerr == nil && kind == message.KindExternalIn {
		return nil, message.ErrRejected
	}
	return nil, fmt.Errorf("txdriver: unpack inbound message: %w", err)
}

func timedStorageAndCredit(rt *runtimectx.RuntimeContext, acc *tonacc.Account, cfg *netconfig.Config, now uint32, isInternal bool, value money.CurrencyCollection, storageFirst bool) (phase.StorageResult, *phase.CreditResult, error) {
	start := time.Now()
	sr, cr, err := runStorageAndCredit(acc, cfg, now, isInternal, value, storageFirst)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	rt.Metrics.ObservePhase("storage", outcome, time.Since(start).Seconds())
	if isInternal {
		rt.Metrics.ObservePhase("credit", outcome, 0)
	}
	return sr, cr, err
}

func runStorageAndCredit(acc *tonacc.Account, cfg *netconfig.Config, now uint32, isInternal bool, value money.CurrencyCollection, storageFirst bool) (phase.StorageResult, *phase.CreditResult, error) {
	runStorage := func() (phase.StorageResult, error) { return phase.RunStorage(acc, cfg, now) }
	runCredit := func() (*phase.CreditResult, error) {
		if !isInternal {
			return nil, nil
		}
		cr, err := phase.RunCredit(acc, value)
		if err != nil {
			return nil, err
		}
		return &cr, nil
	}

	if storageFirst {
		sr, err := runStorage()
		if err != nil {
			return phase.StorageResult{}, nil, fmt.Errorf("storage: %w", err)
		}
		cr, err := runCredit()
		if err != nil {
			return phase.StorageResult{}, nil, fmt.Errorf("credit: %w", err)
		}
		return sr, cr, nil
	}
	cr, err := runCredit()
	if err != nil {
		return phase.StorageResult{}, nil, fmt.Errorf("credit: %w", err)
	}
	sr, err := runStorage()
	if err != nil {
		return phase.StorageResult{}, nil, fmt.Errorf("storage: %w", err)
	}
	return sr, cr, nil
}

// gasContextFor builds the Compute gas budget per spec.md §4.E.3: limit =
// min(balance/gas_price, gas_limit_cfg); credit = gas_credit only for an
// external-in call, since that is the only case the contract may run
// before having accepted anything.
func gasContextFor(acc *tonacc.Account, cfg *netconfig.Config, isExternal bool) (vm.GasContext, error) {
	gp, err := cfg.GasPrices(acc.Addr.IsMasterchain())
	if err != nil {
		return vm.GasContext{}, err
	}
	limit := gp.GasLimit
	if gp.GasPrice > 0 {
		byBalance := acc.Balance.Grams.Uint64() / gp.GasPrice
		if byBalance < limit {
			limit = byBalance
		}
	}
	var credit uint64
	if isExternal {
		credit = gp.GasCredit
	}
	return vm.GasContext{Limit: limit, Credit: credit}, nil
}

func computeOutcome(res phase.ComputeResult) string {
	if res.Skipped {
		return "skipped"
	}
	if res.Success {
		return "ok"
	}
	return "failed"
}

// runActionAndBounce runs the Action phase when Compute succeeded, and
// the Bounce phase when it did not and a bounce was requested, per
// spec.md §4.E.4/§4.E.5. A phase.AbortedError from Action is folded into
// the aborted-transaction outcome rather than propagated, matching
// spec.md §7 ("the driver never converts a phase-level aborted into a
// fatal error"). A Skipped compute (uninit/frozen account, no or
// mismatched StateInit) is not itself accepted-or-not: for an external-in
// message it is a non-fatal rejection exactly like an unaccepted message,
// signaled by returning message.ErrRejected; for an internal message with
// Bounce requested it still runs the Bounce phase against the already-
// credited inbound value, same as a failed Compute would.
func runActionAndBounce(acc *tonacc.Account, cfg *netconfig.Config, msg *message.Message, isInternal, isExternal bool, computeRes phase.ComputeResult) (actionRes *phase.ActionResult, bounceRes *phase.BounceResult, aborted bool, abortedPhase, abortedReason string, err error) {
	if computeRes.Skipped {
		if isExternal {
			return nil, nil, false, "", "", message.ErrRejected
		}
		abortedPhase = "compute"
		abortedReason = fmt.Sprintf("skip=%s", computeRes.SkipReason)
		if isInternal && msg.Bounce {
			br, berr := phase.RunBounce(acc, phase.BounceInput{Config: cfg, In: msg, InboundValue: msg.Value})
			if berr != nil {
				var ae *phase.AbortedError
				if errors.As(berr, &ae) {
					return nil, nil, true, ae.Phase, ae.Reason, nil
				}
				return nil, nil, false, "", "", fmt.Errorf("bounce: %w", berr)
			}
			bounceRes = &br
		}
		return nil, bounceRes, true, abortedPhase, abortedReason, nil
	}

	if !computeRes.Success {
		aborted = true
		abortedPhase = "compute"
		abortedReason = fmt.Sprintf("exit_code=%d skip=%s", computeRes.ExitCode, computeRes.SkipReason)
		if isInternal && msg.Bounce {
			br, berr := phase.RunBounce(acc, phase.BounceInput{Config: cfg, In: msg, InboundValue: msg.Value})
			if berr != nil {
				var ae *phase.AbortedError
				if errors.As(berr, &ae) {
					abortedPhase, abortedReason = ae.Phase, ae.Reason
					return nil, nil, true, abortedPhase, abortedReason, nil
				}
				return nil, nil, false, "", "", fmt.Errorf("bounce: %w", berr)
			}
			bounceRes = &br
		}
		return nil, bounceRes, aborted, abortedPhase, abortedReason, nil
	}

	inboundValue := money.CurrencyCollection{}
	if isInternal {
		inboundValue = msg.Value
	}
	ar, aerr := phase.RunAction(acc, computeRes.Actions, phase.ActionInput{
		Config:           cfg,
		InboundValue:     inboundValue,
		IsSrcMasterchain: acc.Addr.IsMasterchain(),
	})
	if aerr != nil {
		var ae *phase.AbortedError
		if errors.As(aerr, &ae) {
			return nil, nil, true, ae.Phase, ae.Reason, nil
		}
		return nil, nil, false, "", "", fmt.Errorf("action: %w", aerr)
	}
	return &ar, nil, false, "", "", nil
}

func hashAccount(acc *tonacc.Account) ([32]byte, error) {
	b := cell.NewBuilder()
	if err := acc.Store(b); err != nil {
		return [32]byte{}, err
	}
	c, err := b.Finalize()
	if err != nil {
		return [32]byte{}, err
	}
	return c.Hash(), nil
}
