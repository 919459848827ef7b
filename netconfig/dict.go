package netconfig

import (
	"fmt"

	"github.com/tonreplay/replayer/cell"
)

// The param "dictionary" is not the real protocol HashmapE (out of scope
// per spec.md §1); it is a minimal linked structure sufficient to store an
// arbitrary number of (index -> cell) pairs within the 4-ref-per-cell
// budget: each node holds up to 3 (index, cell) entries plus an optional
// "next node" reference in its 4th ref slot.
const entriesPerNode = 3

// EncodeParams builds the param-dictionary cell from a param index -> cell map.
func EncodeParams(params map[int]*cell.Cell) (*cell.Cell, error) {
	indices := make([]int, 0, len(params))
	for idx := range params {
		indices = append(indices, idx)
	}
	return encodeParamNode(indices, params)
}

func encodeParamNode(indices []int, params map[int]*cell.Cell) (*cell.Cell, error) {
	n := len(indices)
	if n > entriesPerNode {
		n = entriesPerNode
	}
	b := cell.NewBuilder()
	hasNext := len(indices) > entriesPerNode
	if err := b.StoreBit(hasNext); err != nil {
		return nil, err
	}
	if err := b.StoreUint(uint64(n), 8); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := b.StoreUint(uint64(int32(indices[i])), 32); err != nil {
			return nil, err
		}
	}
	for i := 0; i < n; i++ {
		if err := b.StoreRef(params[indices[i]]); err != nil {
			return nil, err
		}
	}
	if hasNext {
		next, err := encodeParamNode(indices[entriesPerNode:], params)
		if err != nil {
			return nil, err
		}
		if err := b.StoreRef(next); err != nil {
			return nil, err
		}
	}
	return b.Finalize()
}

func decodeParamDict(root *cell.Cell) (map[int]*cell.Cell, error) {
	out := make(map[int]*cell.Cell)
	node := root
	for node != nil {
		s := cell.NewSlice(node)
		hasNext, err := s.LoadBit()
		if err != nil {
			return nil, err
		}
		n, err := s.LoadUint(8)
		if err != nil {
			return nil, err
		}
		idxs := make([]int32, n)
		for i := range idxs {
			v, err := s.LoadInt(32)
			if err != nil {
				return nil, err
			}
			idxs[i] = int32(v)
		}
		for i := range idxs {
			r, err := s.LoadRef()
			if err != nil {
				return nil, err
			}
			out[int(idxs[i])] = r
		}
		if !hasNext {
			break
		}
		node, err = s.LoadRef()
		if err != nil {
			return nil, fmt.Errorf("param dict: missing chained node: %w", err)
		}
	}
	return out, nil
}
