// Package vmtest is a reference vm.VM implementation used by the
// scenario tests of spec.md §8. It interprets the tiny stack-machine
// assembly those scenarios are written in (ACCEPT / SENDRAWMSG /
// RAWRESERVE) and drives the interpreter loop through an actual Wasmer
// module, the way the teacher's heavy VM drives opcode execution through
// host-function callbacks.
package vmtest

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
)

// compileWAT turns inline WAT source into WASM bytes via the external
// wat2wasm tool, mirroring the teacher's CompileWASM helper. Tests that
// construct a VM skip gracefully if wat2wasm isn't installed, exactly as
// the teacher's TestHeavyVMInvokeWithReceipt does.
func compileWAT(wat string, dir string) ([]byte, error) {
	src := filepath.Join(dir, "driver.wat")
	if err := os.WriteFile(src, []byte(wat), 0o644); err != nil {
		return nil, err
	}
	out := filepath.Join(dir, "driver.wasm")
	cmd := exec.Command("wat2wasm", "-o", out, src)
	if err := cmd.Run(); err != nil {
		return nil, errors.Join(errors.New("vmtest: wat2wasm"), err)
	}
	return os.ReadFile(out)
}

// driverWAT is the fixed driver module every vmtest.VM run compiles: its
// _start loop calls the host step function until it signals completion
// (0) or failure (negative). All instruction-level semantics live in the
// Go-side host callback, not in WASM, since the scenario assembly's
// opcode set belongs to the replayer's test fixtures, not to any real
// protocol VM.
const driverWAT = `(module
  (import "env" "host_step" (func $step (result i32)))
  (memory (export "memory") 1)
  (func (export "_start")
    (local $r i32)
    (block $done
      (loop $again
        (local.set $r (call $step))
        (br_if $done (i32.le_s (local.get $r) (i32.const 0)))
        (br $again)
      )
    )
  )
)`
