// Package replay exposes the two pure entry points external callers drive
// the transaction pipeline through: ReplayOrdinary and ReplayTickTock, per
// spec.md §4.G. Both take and return cell roots only — the account, the
// config, and the inbound message (when present) are unpacked internally,
// and the resulting transaction and post-state account are serialized back
// into fresh cells before returning.
package replay

import (
	"errors"
	"fmt"

	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/message"
	"github.com/tonreplay/replayer/netconfig"
	"github.com/tonreplay/replayer/runtimectx"
	"github.com/tonreplay/replayer/tonacc"
	"github.com/tonreplay/replayer/txdriver"
	"github.com/tonreplay/replayer/vm"
)

// configMode eagerly validates the workchain list, the capability bitset,
// and the special-account set, so a missing one surfaces here as a single
// netconfig.FatalError. Gas, message and storage prices are not checked
// here; a missing one surfaces when a phase first reads it.
const configMode = netconfig.NeedWorkchainInfo | netconfig.NeedCapabilities | netconfig.NeedSpecialSmc

// ReplayOrdinary unpacks accCell (addressed by seedAddr, since the account
// wrapper cell does not self-encode its own address — see DESIGN.md),
// cfgCell, and msgCell, runs a complete ordinary transaction through vmi,
// and serializes the result. It returns (nil, nil, nil) — an empty result,
// not an error — when the inbound message is a non-fatal external
// rejection (spec.md §4.G, §7's "External-rejected" class); every other
// failure is fatal and reported as a non-nil error with nil cells.
func ReplayOrdinary(
	accCell, msgCell, cfgCell *cell.Cell,
	seedAddr addr.Address,
	lt uint64,
	now uint32,
	prevLT uint64,
	prevHash [32]byte,
	isSpecial bool,
	vmi vm.VM,
	rt *runtimectx.RuntimeContext,
) (txCell, accCellOut *cell.Cell, err error) {
	cfg, err := netconfig.Load(cfgCell, configMode)
	if err != nil {
		rt.Metrics.ObserveFatal("config")
		return nil, nil, fmt.Errorf("replay: load config: %w", err)
	}

	acc, err := tonacc.Unpack(cell.NewSlice(accCell), seedAddr, now, isSpecial)
	if err != nil {
		rt.Metrics.ObserveFatal("invariant")
		return nil, nil, fmt.Errorf("replay: unpack account: %w", err)
	}

	tx, err := txdriver.RunOrdinary(acc, msgCell, cfg, vmi, lt, now, prevLT, prevHash, rt)
	if err != nil {
		if errors.Is(err, message.ErrRejected) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	return packResult(tx, acc)
}

// ReplayTickTock unpacks accCell (addressed by seedAddr) and cfgCell, runs
// a tick or tock transaction through vmi, and serializes the result.
// allow_special is hardcoded true per SPEC_FULL.md §5.4: tick/tock
// transactions only ever run against special accounts. Every failure is
// fatal — a tick/tock call has no non-fatal rejection path, since there is
// no inbound message to reject.
func ReplayTickTock(
	accCell, cfgCell *cell.Cell,
	seedAddr addr.Address,
	lt uint64,
	now uint32,
	prevLT uint64,
	prevHash [32]byte,
	isTock bool,
	vmi vm.VM,
	rt *runtimectx.RuntimeContext,
) (txCell, accCellOut *cell.Cell, err error) {
	cfg, err := netconfig.Load(cfgCell, configMode)
	if err != nil {
		rt.Metrics.ObserveFatal("config")
		return nil, nil, fmt.Errorf("replay: load config: %w", err)
	}

	acc, err := tonacc.Unpack(cell.NewSlice(accCell), seedAddr, now, true)
	if err != nil {
		rt.Metrics.ObserveFatal("invariant")
		return nil, nil, fmt.Errorf("replay: unpack account: %w", err)
	}

	tx, err := txdriver.RunTickTock(acc, isTock, cfg, vmi, lt, now, prevLT, prevHash, rt)
	if err != nil {
		return nil, nil, err
	}

	return packResult(tx, acc)
}

// packResult serializes the committed transaction and the account's
// post-state into fresh cell roots, per spec.md §4.G's "outputs are
// freshly produced cell roots."
func packResult(tx *txdriver.Transaction, acc *tonacc.Account) (*cell.Cell, *cell.Cell, error) {
	txB := cell.NewBuilder()
	if err := tx.Store(txB); err != nil {
		return nil, nil, fmt.Errorf("replay: serialize transaction: %w", err)
	}
	txC, err := txB.Finalize()
	if err != nil {
		return nil, nil, fmt.Errorf("replay: finalize transaction cell: %w", err)
	}

	accB := cell.NewBuilder()
	if err := acc.Store(accB); err != nil {
		return nil, nil, fmt.Errorf("replay: serialize account: %w", err)
	}
	accC, err := accB.Finalize()
	if err != nil {
		return nil, nil, fmt.Errorf("replay: finalize account cell: %w", err)
	}

	return txC, accC, nil
}
