// Command replayer is the thin CLI front-end over package replay, per
// spec.md §6: `replayer <acc> <tx> <cfg> <acc_out> <tx_out>` — reads three
// cell files, writes two; exit 0 on success, -2 on bad arguments, nonzero
// on fatal error. It is not part of the core: all it does is read/write
// cell files (package internal/boc), load settings (internal/config), and
// call into package replay.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/internal/boc"
	"github.com/tonreplay/replayer/internal/config"
	"github.com/tonreplay/replayer/internal/metrics"
	"github.com/tonreplay/replayer/replay"
	"github.com/tonreplay/replayer/runtimectx"
	"github.com/tonreplay/replayer/txdriver"
	"github.com/tonreplay/replayer/vm/vmtest"
)

// exitBadArgs matches spec.md §6's "-2 on bad arguments".
const exitBadArgs = -2

// exitRejected is returned when the inbound message was a non-fatal
// external rejection: no transaction was produced, but nothing fatal
// happened either. The literal spec text only names 0/-2/nonzero; this is
// a CLI-level refinement of the "nonzero" case (see DESIGN.md).
const exitRejected = 3

func main() {
	os.Exit(run())
}

func run() int {
	var workchain int32
	var accountIDHex string
	var isSpecial bool
	var isTock bool
	var settingsPath string

	root := &cobra.Command{
		Use:           "replayer <acc> <tx> <cfg> <acc_out> <tx_out>",
		Short:         "replay a single ordinary or tick/tock transaction",
		Args:          cobra.ExactArgs(5),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(settingsPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("workchain") {
				workchain = settings.DefaultWorkchain
			}

			log := newLogger(settings.LogLevel)
			rt, err := runtimectx.NewWithRandomSeed(log)
			if err != nil {
				return fmt.Errorf("seed runtime: %w", err)
			}
			collectors := metrics.New()
			rt = rt.WithMetrics(collectors)

			if settings.MetricsAddr != "" {
				srv := collectors.StartServer(settings.MetricsAddr)
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = srv.Shutdown(ctx)
				}()
			}

			seedAddr, err := parseSeedAddr(workchain, accountIDHex)
			if err != nil {
				return &badArgsError{err}
			}
			return replayOne(args, seedAddr, isSpecial, isTock, rt)
		},
	}
	root.Flags().Int32Var(&workchain, "workchain", 0, "workchain the acc/acc_out cells belong to (the configured default when not given)")
	root.Flags().StringVar(&accountIDHex, "account-id", "", "64-char hex account id the acc/acc_out cells belong to (required: the wrapper cell does not self-encode it)")
	root.Flags().BoolVar(&isSpecial, "special", false, "treat the account as a special contract for an ordinary transaction")
	root.Flags().BoolVar(&isTock, "tock", false, "run a tock rather than a tick when the tx cell carries no inbound message")
	root.Flags().StringVar(&settingsPath, "config", "replayer.yaml", "path to the CLI settings file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "replayer:", err)
		var bad *badArgsError
		if errors.As(err, &bad) {
			return exitBadArgs
		}
		return 1
	}
	return 0
}

// badArgsError marks a failure in reading or parsing one of the three
// input cell files, or a malformed --account-id/--workchain seed address —
// spec.md §6's "-2 on bad arguments" class, as opposed
// to a fatal replay error.
type badArgsError struct{ err error }

func (e *badArgsError) Error() string { return e.err.Error() }
func (e *badArgsError) Unwrap() error { return e.err }

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

// parseSeedAddr builds the account address tonacc.Unpack needs but the
// account wrapper cell cannot supply on its own (see DESIGN.md).
func parseSeedAddr(workchain int32, idHex string) (addr.Address, error) {
	raw, err := hex.DecodeString(idHex)
	if err != nil || len(raw) != 32 {
		return addr.Address{}, fmt.Errorf("--account-id must be 64 hex chars (32 bytes)")
	}
	var a addr.Address
	a.Workchain = workchain
	copy(a.ID[:], raw)
	return a, nil
}

func replayOne(paths []string, seedAddr addr.Address, isSpecial, isTock bool, rt *runtimectx.RuntimeContext) error {
	accCell, err := boc.ReadFile(paths[0])
	if err != nil {
		return &badArgsError{fmt.Errorf("read acc file %q: %w", paths[0], err)}
	}
	reqCell, err := boc.ReadFile(paths[1])
	if err != nil {
		return &badArgsError{fmt.Errorf("read tx file %q: %w", paths[1], err)}
	}
	cfgCell, err := boc.ReadFile(paths[2])
	if err != nil {
		return &badArgsError{fmt.Errorf("read cfg file %q: %w", paths[2], err)}
	}
	req, err := txdriver.LoadReplayRequest(reqCell)
	if err != nil {
		return &badArgsError{fmt.Errorf("parse tx cell %q: %w", paths[1], err)}
	}

	vmi := vmtest.New(os.TempDir())

	var txCell, accOutCell *cell.Cell
	if req.InMsg != nil {
		txCell, accOutCell, err = replay.ReplayOrdinary(accCell, req.InMsg, cfgCell, seedAddr, req.LT, req.Now, req.PrevLT, req.PrevHash, isSpecial, vmi, rt)
	} else {
		txCell, accOutCell, err = replay.ReplayTickTock(accCell, cfgCell, seedAddr, req.LT, req.Now, req.PrevLT, req.PrevHash, isTock, vmi, rt)
	}
	if err != nil {
		return err
	}
	if txCell == nil && accOutCell == nil {
		fmt.Fprintln(os.Stderr, "replayer: inbound message rejected; no transaction produced")
		os.Exit(exitRejected)
	}

	if err := boc.WriteFile(paths[3], accOutCell); err != nil {
		return fmt.Errorf("write acc_out file %q: %w", paths[3], err)
	}
	if err := boc.WriteFile(paths[4], txCell); err != nil {
		return fmt.Errorf("write tx_out file %q: %w", paths[4], err)
	}
	return nil
}
