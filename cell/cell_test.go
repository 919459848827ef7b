package cell

import "testing"

func TestBuilderRoundTrip(t *testing.T) {
	child := NewBuilder()
	if err := child.StoreUint(0xABCD, 16); err != nil {
		t.Fatalf("store child: %v", err)
	}
	childCell, err := child.Finalize()
	if err != nil {
		t.Fatalf("finalize child: %v", err)
	}

	b := NewBuilder()
	if err := b.StoreUint(7, 3); err != nil {
		t.Fatalf("store uint: %v", err)
	}
	if err := b.StoreBit(true); err != nil {
		t.Fatalf("store bit: %v", err)
	}
	if err := b.StoreMaybeRef(childCell); err != nil {
		t.Fatalf("store maybe ref: %v", err)
	}
	root, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize root: %v", err)
	}

	s := NewSlice(root)
	v, err := s.LoadUint(3)
	if err != nil || v != 7 {
		t.Fatalf("load uint: got %d, %v", v, err)
	}
	bit, err := s.LoadBit()
	if err != nil || !bit {
		t.Fatalf("load bit: got %v, %v", bit, err)
	}
	ref, err := s.LoadMaybeRef()
	if err != nil {
		t.Fatalf("load maybe ref: %v", err)
	}
	if ref == nil || !ref.Equal(childCell) {
		t.Fatalf("expected child ref round trip")
	}
	if s.RemainingBits() != 0 || s.RemainingRefs() != 0 {
		t.Fatalf("expected slice fully consumed, got %d bits %d refs", s.RemainingBits(), s.RemainingRefs())
	}
}

func TestBuilderOverflow(t *testing.T) {
	b := NewBuilder()
	big := make([]byte, 200)
	if err := b.StoreBits(big, 1023); err != nil {
		t.Fatalf("fill to capacity: %v", err)
	}
	if err := b.StoreBit(true); err == nil {
		t.Fatalf("expected overflow error")
	}
	for i := 0; i < MaxRefs; i++ {
		leaf, _ := NewBuilder().Finalize()
		if err := b.StoreRef(leaf); err != nil {
			t.Fatalf("store ref %d: %v", i, err)
		}
	}
	leaf, _ := NewBuilder().Finalize()
	if err := b.StoreRef(leaf); err == nil {
		t.Fatalf("expected ref overflow error")
	}
}

func TestHashDeterministic(t *testing.T) {
	mk := func() *Cell {
		b := NewBuilder()
		_ = b.StoreUint(42, 8)
		c, _ := b.Finalize()
		return c
	}
	a, c := mk(), mk()
	if a.Hash() != c.Hash() {
		t.Fatalf("expected identical content to hash identically")
	}
}
