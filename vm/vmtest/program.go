package vmtest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tonreplay/replayer/actionlist"
)

// instrKind is the tiny opcode set the scenario fixtures of spec.md §8
// are written in.
type instrKind int

const (
	instrAccept instrKind = iota
	instrSendRawMsg
	instrRawReserve
)

type instr struct {
	kind instrKind
	args []int64
}

// parseProgram tokenizes one instruction per line. Blank lines and lines
// starting with ";" are ignored. Numeric tokens preceding a mnemonic are
// that instruction's arguments, e.g. "128 SENDRAWMSG" or
// "1000 0 RAWRESERVE".
func parseProgram(src string) ([]instr, error) {
	var out []instr
	for lineNo, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		mnemonic := strings.ToUpper(fields[len(fields)-1])
		args := make([]int64, 0, len(fields)-1)
		for _, f := range fields[:len(fields)-1] {
			v, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("vmtest: line %d: bad argument %q: %w", lineNo+1, f, err)
			}
			args = append(args, v)
		}
		switch mnemonic {
		case "ACCEPT":
			out = append(out, instr{kind: instrAccept})
		case "SENDRAWMSG":
			if len(args) != 1 {
				return nil, fmt.Errorf("vmtest: line %d: SENDRAWMSG wants 1 argument, got %d", lineNo+1, len(args))
			}
			out = append(out, instr{kind: instrSendRawMsg, args: args})
		case "RAWRESERVE":
			if len(args) != 2 {
				return nil, fmt.Errorf("vmtest: line %d: RAWRESERVE wants 2 arguments, got %d", lineNo+1, len(args))
			}
			out = append(out, instr{kind: instrRawReserve, args: args})
		default:
			return nil, fmt.Errorf("vmtest: line %d: unknown mnemonic %q", lineNo+1, mnemonic)
		}
	}
	return out, nil
}

// actionKind/mode translation: SENDRAWMSG's single argument is the send
// mode (spec.md §4.E.4); RAWRESERVE's two arguments are (amount, mode),
// matching the assembly notation "RAWRESERVE 1000 0" of scenario S5.
func (p instr) toSendMode() uint16  { return uint16(p.args[0]) }
func (p instr) toReserveAmount() int64 { return p.args[0] }
func (p instr) toReserveMode() actionlist.ReserveMode {
	return actionlist.ReserveMode(p.args[1])
}
