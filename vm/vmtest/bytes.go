package vmtest

import "github.com/tonreplay/replayer/cell"

// Source programs are ASCII assembly text, which rarely fits a single
// 1023-bit cell; EncodeSource/DecodeSource chain cells via refs the same
// way the rest of the replayer chains overflow data, rather than
// inventing a new container type just for this test harness.
const bytesPerCell = cell.MaxBits / 8

// EncodeSource packs src into a chain of cells, bytesPerCell bytes each,
// with each cell's single ref pointing at the continuation.
func EncodeSource(src string) (*cell.Cell, error) {
	data := []byte(src)
	return encodeChunk(data)
}

func encodeChunk(data []byte) (*cell.Cell, error) {
	b := cell.NewBuilder()
	n := len(data)
	if n > bytesPerCell {
		n = bytesPerCell
	}
	if err := b.StoreBits(data[:n], n*8); err != nil {
		return nil, err
	}
	if len(data) > n {
		rest, err := encodeChunk(data[n:])
		if err != nil {
			return nil, err
		}
		if err := b.StoreRef(rest); err != nil {
			return nil, err
		}
	}
	return b.Finalize()
}

// DecodeSource is the inverse of EncodeSource.
func DecodeSource(c *cell.Cell) (string, error) {
	var out []byte
	node := c
	for node != nil {
		s := cell.NewSlice(node)
		n := s.RemainingBits() / 8
		chunk, err := s.LoadBits(n * 8)
		if err != nil {
			return "", err
		}
		out = append(out, chunk...)
		if s.RemainingRefs() == 0 {
			break
		}
		node, err = s.LoadRef()
		if err != nil {
			return "", err
		}
	}
	return string(out), nil
}
