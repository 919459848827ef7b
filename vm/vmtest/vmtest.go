package vmtest

import (
	"errors"
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/tonreplay/replayer/actionlist"
	"github.com/tonreplay/replayer/addr"
	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/money"
	tonvm "github.com/tonreplay/replayer/vm"
)

// gasPerInstruction is the flat per-step charge this reference VM bills,
// loosely mirroring the teacher's GasCost(op)-per-opcode metering.
const gasPerInstruction = 10

// exitOutOfGas is the conventional TVM exit code this harness reports
// when a program exceeds its gas limit mid-run.
const exitOutOfGas int32 = -14

// VM is a reference vm.VM backed by an actual Wasmer module: its driver
// loop runs in WASM, calling back into Go once per assembly instruction.
// Opcode semantics themselves are not part of any real protocol VM —
// they exist solely to drive the Action-phase scenario fixtures of
// spec.md §8.
type VM struct {
	workDir string // temp dir used to stage the compiled driver module
}

// New builds a VM that stages its compiled driver WASM under workDir.
func New(workDir string) *VM {
	return &VM{workDir: workDir}
}

type runState struct {
	prog     []instr
	pc       int
	gasUsed  uint64
	gasLimit uint64
	accepted bool
	actions  []actionlist.Entry
	failed   error
}

// Run implements vm.VM. code must have been produced by EncodeSource;
// data, if non-nil, carries a single maybe-ref to a template outbound
// message used by SENDRAWMSG (vmtest has no real message-construction
// opcodes of its own).
func (v *VM) Run(
	code, data *cell.Cell,
	stack tonvm.Stack,
	gas tonvm.GasContext,
	libs *cell.Cell,
	randSeed [32]byte,
	globalConfig *cell.Cell,
) (tonvm.VmResult, error) {
	src, err := DecodeSource(code)
	if err != nil {
		return tonvm.VmResult{}, fmt.Errorf("vmtest: decode source: %w", err)
	}
	prog, err := parseProgram(src)
	if err != nil {
		return tonvm.VmResult{}, err
	}

	tmpl, err := templateMessage(data)
	if err != nil {
		return tonvm.VmResult{}, err
	}

	st := &runState{prog: prog, gasLimit: gas.Limit + gas.Credit}

	wasmBytes, err := compileWAT(driverWAT, v.workDir)
	if err != nil {
		return tonvm.VmResult{}, fmt.Errorf("vmtest: compile driver: %w", err)
	}

	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)
	module, err := wasmer.NewModule(store, wasmBytes)
	if err != nil {
		return tonvm.VmResult{}, fmt.Errorf("vmtest: load module: %w", err)
	}

	imports := wasmer.NewImportObject()
	step := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(), wasmer.NewValueTypes(wasmer.I32)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(runStep(st, tmpl))}, nil
		},
	)
	imports.Register("env", map[string]wasmer.IntoExtern{"host_step": step})

	instance, err := wasmer.NewInstance(module, imports)
	if err != nil {
		return tonvm.VmResult{}, fmt.Errorf("vmtest: instantiate: %w", err)
	}
	start, err := instance.Exports.GetFunction("_start")
	if err != nil {
		return tonvm.VmResult{}, fmt.Errorf("vmtest: missing _start: %w", err)
	}
	if _, err := start(); err != nil {
		return tonvm.VmResult{}, fmt.Errorf("vmtest: run: %w", err)
	}

	actionsCell, err := actionlist.Encode(actionlist.List{Entries: st.actions})
	if err != nil {
		return tonvm.VmResult{}, fmt.Errorf("vmtest: encode actions: %w", err)
	}

	result := tonvm.VmResult{
		Accepted: st.accepted,
		GasUsed:  st.gasUsed,
		NewData:  data,
		Actions:  actionsCell,
	}
	if st.failed != nil {
		result.Success = false
		result.ExitCode = exitOutOfGas
	} else {
		result.Success = true
	}
	return result, nil
}

// runStep executes one program instruction and returns 1 (continue),
// 0 (program exhausted), or a negative value (fatal, e.g. out of gas) —
// the protocol the driverWAT loop expects from host_step.
func runStep(st *runState, tmpl *cell.Cell) int32 {
	if st.pc >= len(st.prog) {
		return 0
	}
	if st.gasUsed+gasPerInstruction > st.gasLimit {
		st.failed = errors.New("vmtest: out of gas")
		return -1
	}
	st.gasUsed += gasPerInstruction

	in := st.prog[st.pc]
	st.pc++
	switch in.kind {
	case instrAccept:
		st.accepted = true
	case instrSendRawMsg:
		st.actions = append(st.actions, actionlist.Entry{
			Kind: actionlist.KindSendMsg,
			Mode: in.toSendMode(),
			Msg:  tmpl,
		})
	case instrRawReserve:
		amountCell, err := encodeReserveAmount(in.toReserveAmount())
		if err != nil {
			st.failed = err
			return -1
		}
		st.actions = append(st.actions, actionlist.Entry{
			Kind:        actionlist.KindReserve,
			ReserveMode: in.toReserveMode(),
			Amount:      amountCell,
		})
	}
	if st.pc >= len(st.prog) {
		return 0
	}
	return 1
}

func encodeReserveAmount(v int64) (*cell.Cell, error) {
	g := money.NewGrams(uint64(v))
	b := cell.NewBuilder()
	if err := g.Store(b); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// templateMessage loads the SENDRAWMSG template from data's maybe-ref, or
// synthesizes a minimal zero-value internal message to a dummy address
// when data carries none.
func templateMessage(data *cell.Cell) (*cell.Cell, error) {
	if data != nil {
		s := cell.NewSlice(data)
		if s.RemainingRefs() > 0 {
			if tmpl, err := s.LoadMaybeRef(); err == nil && tmpl != nil {
				return tmpl, nil
			}
		}
	}
	b := cell.NewBuilder()
	if err := b.StoreUint(1, 2); err != nil { // internal tag
		return nil, err
	}
	if err := b.StoreUint(0, 2); err != nil { // src: addr_none
		return nil, err
	}
	if err := b.StoreUint(1, 2); err != nil { // dest: addr_std
		return nil, err
	}
	if err := b.StoreUint(0, 32); err != nil { // dest workchain 0
		return nil, err
	}
	var zero addr.Address
	if err := b.StoreBits(zero.ID[:], 256); err != nil {
		return nil, err
	}
	if err := money.NewCurrencyCollection(money.Zero).Store(b); err != nil {
		return nil, err
	}
	if err := b.StoreBit(false); err != nil { // bounce
		return nil, err
	}
	if err := b.StoreBit(false); err != nil { // bounced
		return nil, err
	}
	if err := money.Zero.Store(b); err != nil { // ihr_fee
		return nil, err
	}
	if err := money.Zero.Store(b); err != nil { // fwd_fee
		return nil, err
	}
	if err := b.StoreUint(0, 64); err != nil { // created_lt
		return nil, err
	}
	if err := b.StoreUint(0, 32); err != nil { // created_at
		return nil, err
	}
	if err := b.StoreMaybeRef(nil); err != nil { // body
		return nil, err
	}
	return b.Finalize()
}
