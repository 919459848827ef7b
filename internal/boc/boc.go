// Package boc gives cmd/replayer something concrete to read and write cell
// trees from/to disk with. The wider bag-of-cells wire format is explicitly
// out of scope for this module (spec.md §1, §6: "the core does not redefine
// it"); this is a minimal stand-in tree serialization — bit length, raw bit
// data, then each child ref inline and recursive — good enough to round-trip
// the fixtures the CLI and its tests drive, not a protocol-grade codec.
package boc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/tonreplay/replayer/cell"
)

// Write serializes c to w in this package's tree format.
func Write(w io.Writer, c *cell.Cell) error {
	bw := bufio.NewWriter(w)
	if err := writeCell(bw, c); err != nil {
		return err
	}
	return bw.Flush()
}

func writeCell(w *bufio.Writer, c *cell.Cell) error {
	if c == nil {
		return binary.Write(w, binary.BigEndian, uint16(0xFFFF))
	}
	bits := c.BitLen()
	if err := binary.Write(w, binary.BigEndian, uint16(bits)); err != nil {
		return err
	}
	data, err := extractBits(c, bits)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	refs := c.RefCount()
	if err := w.WriteByte(byte(refs)); err != nil {
		return err
	}
	for i := 0; i < refs; i++ {
		r, err := c.Ref(i)
		if err != nil {
			return err
		}
		if err := writeCell(w, r); err != nil {
			return err
		}
	}
	return nil
}

// extractBits reads back exactly bits bits from c via a fresh Slice, the
// only way this package's read-only Cell exposes its payload.
func extractBits(c *cell.Cell, bits int) ([]byte, error) {
	s := cell.NewSlice(c)
	full := bits / 8
	rem := bits % 8
	out := make([]byte, 0, full+1)
	if full > 0 {
		b, err := s.LoadBits(full * 8)
		if err != nil {
			return nil, fmt.Errorf("boc: read cell payload: %w", err)
		}
		out = append(out, b...)
	}
	if rem > 0 {
		tail, err := s.LoadUint(rem)
		if err != nil {
			return nil, fmt.Errorf("boc: read cell tail bits: %w", err)
		}
		out = append(out, byte(tail<<(8-rem)))
	}
	return out, nil
}

// Read deserializes a cell tree previously written by Write.
func Read(r io.Reader) (*cell.Cell, error) {
	br := bufio.NewReader(r)
	return readCell(br)
}

func readCell(r *bufio.Reader) (*cell.Cell, error) {
	var bits uint16
	if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
		return nil, err
	}
	if bits == 0xFFFF {
		return nil, nil
	}
	full := int(bits) / 8
	rem := int(bits) % 8
	n := full
	if rem > 0 {
		n++
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("boc: read cell payload: %w", err)
	}
	refCountByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("boc: read ref count: %w", err)
	}

	b := cell.NewBuilder()
	if full > 0 {
		if err := b.StoreBits(data[:full], full*8); err != nil {
			return nil, err
		}
	}
	if rem > 0 {
		if err := b.StoreUint(uint64(data[full])>>(8-rem), rem); err != nil {
			return nil, err
		}
	}
	for i := 0; i < int(refCountByte); i++ {
		ref, err := readCell(r)
		if err != nil {
			return nil, err
		}
		if err := b.StoreRef(ref); err != nil {
			return nil, err
		}
	}
	return b.Finalize()
}

// ReadFile and WriteFile are the convenience wrappers cmd/replayer uses for
// its five positional cell-file arguments.
func ReadFile(path string) (*cell.Cell, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

func WriteFile(path string, c *cell.Cell) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Write(f, c)
}
