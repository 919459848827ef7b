package txdriver

import "github.com/tonreplay/replayer/cell"

// ReplayRequest is the small header a caller supplies alongside the
// account and config cells to drive a single replay call: the logical
// time and wall clock to run at, the previous transaction's lt/hash this
// one must chain from, and (for an ordinary transaction) the inbound
// message. It is deliberately not the committed Transaction record itself
// — spec.md §4.G's replay_ordinary/replay_ticktock take these fields as
// separate scalar arguments; ReplayRequest only exists so cmd/replayer can
// pack them into the single "tx" cell file its positional-argument
// contract (spec.md §6) reads.
type ReplayRequest struct {
	LT       uint64
	Now      uint32
	PrevLT   uint64
	PrevHash [32]byte
	InMsg    *cell.Cell // nil for a tick/tock request
}

// Store serializes the request: lt, now, prev_lt, prev_hash, then an
// optional ref to the inbound message cell.
func (r ReplayRequest) Store(b *cell.Builder) error {
	if err := b.StoreUint(r.LT, 64); err != nil {
		return err
	}
	if err := b.StoreUint(uint64(r.Now), 32); err != nil {
		return err
	}
	if err := b.StoreUint(r.PrevLT, 64); err != nil {
		return err
	}
	if err := b.StoreBits(r.PrevHash[:], 256); err != nil {
		return err
	}
	return b.StoreMaybeRef(r.InMsg)
}

// LoadReplayRequest parses a cell written by ReplayRequest.Store.
func LoadReplayRequest(c *cell.Cell) (ReplayRequest, error) {
	s := cell.NewSlice(c)
	var r ReplayRequest
	var err error
	if r.LT, err = s.LoadUint(64); err != nil {
		return ReplayRequest{}, err
	}
	now, err := s.LoadUint(32)
	if err != nil {
		return ReplayRequest{}, err
	}
	r.Now = uint32(now)
	if r.PrevLT, err = s.LoadUint(64); err != nil {
		return ReplayRequest{}, err
	}
	prevHash, err := s.LoadBits(256)
	if err != nil {
		return ReplayRequest{}, err
	}
	copy(r.PrevHash[:], prevHash)
	if r.InMsg, err = s.LoadMaybeRef(); err != nil {
		return ReplayRequest{}, err
	}
	return r, nil
}
