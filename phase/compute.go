package phase

import (
	"fmt"

	"github.com/tonreplay/replayer/actionlist"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/message"
	"github.com/tonreplay/replayer/money"
	"github.com/tonreplay/replayer/netconfig"
	"github.com/tonreplay/replayer/tonacc"
	"github.com/tonreplay/replayer/vm"
)

// ComputeInput bundles the inputs RunCompute needs beyond the account
// itself, per spec.md §4.E.3.
type ComputeInput struct {
	VM           vm.VM
	Msg          *message.Message // nil for tick/tock
	IsTock       bool             // only meaningful when Msg == nil
	ExternalIn   bool
	AlreadyAccepted bool
	RandSeed     [32]byte
	GlobalConfig *netconfig.Config
}

// RunCompute prepares the initial stack, validates StateInit when the
// account is uninit/frozen, and drives the VM, per spec.md §4.E.3.
func RunCompute(acc *tonacc.Account, in ComputeInput, gasCtx vm.GasContext) (ComputeResult, error) {
	if acc.Status == tonacc.StatusUninit || acc.Status == tonacc.StatusFrozen {
		reason, ok := validateStateInit(acc, in.Msg)
		if !ok {
			return ComputeResult{Skipped: true, SkipReason: reason}, nil
		}
		if in.Msg != nil && in.Msg.Init != nil {
			acc.Code = in.Msg.Init.Code
			acc.Data = in.Msg.Init.Data
			acc.Status = tonacc.StatusActive
		}
	}

	stack := buildStack(acc, in)

	var globalConfig *cell.Cell
	if in.GlobalConfig != nil {
		globalConfig = in.GlobalConfig.Root()
	}
	res, err := in.VM.Run(acc.Code, acc.Data, stack, gasCtx, acc.Library, in.RandSeed, globalConfig)
	if err != nil {
		return ComputeResult{}, fmt.Errorf("phase: compute: vm run: %w", err)
	}

	if in.ExternalIn && !res.Accepted {
		return ComputeResult{}, aborted("compute", "external message not accepted")
	}

	actions, err := actionlist.Decode(res.Actions)
	if err != nil {
		return ComputeResult{}, fmt.Errorf("phase: compute: decode actions: %w", err)
	}

	if res.Success {
		acc.Data = res.NewData
	}

	var gasFee money.Grams
	if in.GlobalConfig != nil {
		gp, gerr := in.GlobalConfig.GasPrices(acc.Addr.IsMasterchain())
		if gerr == nil {
			gasFee = gp.ComputeGasFee(res.GasUsed)
			if newBal, serr := acc.Balance.Grams.Sub(gasFee); serr == nil {
				acc.Balance.Grams = newBal
			} else {
				acc.Balance.Grams = money.Zero
			}
		}
	}

	return ComputeResult{
		Accepted: res.Accepted,
		Success:  res.Success,
		ExitCode: res.ExitCode,
		GasUsed:  res.GasUsed,
		NewData:  res.NewData,
		Actions:  actions,
		GasFee:   gasFee,
	}, nil
}

// validateStateInit checks that an inbound message to an uninit/frozen
// account carries a StateInit whose hash matches the account address,
// per spec.md §4.E.3. ok=false means Compute must be skipped with the
// returned reason.
func validateStateInit(acc *tonacc.Account, msg *message.Message) (vm.SkipReason, bool) {
	if msg == nil {
		// tick/tock against an uninit/frozen account: nothing to run.
		return vm.SkipNoState, false
	}
	if msg.Init == nil {
		return vm.SkipNoState, false
	}
	h := msg.Init.Hash()
	if h != acc.Addr.ID {
		return vm.SkipBadState, false
	}
	return vm.SkipNone, true
}

// buildStack assembles the initial VM stack. Ordinary transactions get
// (balance, msg_value, msg_body), where msg_body is the body cell, or a
// zero-value StackItem when the message has no body; tick/tock get
// (balance, is_masterchain, is_tock). No msg_cell, function selector or
// account address is pushed.
func buildStack(acc *tonacc.Account, in ComputeInput) vm.Stack {
	if in.Msg == nil {
		return vm.Stack{
			vm.Int(int64(acc.Balance.Grams.Uint64())),
			vm.Bool(acc.Addr.IsMasterchain()),
			vm.Bool(in.IsTock),
		}
	}
	var bodySlice vm.StackItem
	if in.Msg.Body != nil {
		bodySlice = vm.CellItem(in.Msg.Body)
	}
	return vm.Stack{
		vm.Int(int64(acc.Balance.Grams.Uint64())),
		vm.Int(int64(in.Msg.Value.Grams.Uint64())),
		bodySlice,
	}
}
