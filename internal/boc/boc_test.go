package boc

import (
	"path/filepath"
	"testing"

	"github.com/tonreplay/replayer/cell"
	"github.com/tonreplay/replayer/internal/testutil"
)

func buildFixtureCell(t *testing.T) *cell.Cell {
	t.Helper()
	leaf := cell.NewBuilder()
	if err := leaf.StoreUint(0xDEAD, 16); err != nil {
		t.Fatalf("store leaf: %v", err)
	}
	leafCell, err := leaf.Finalize()
	if err != nil {
		t.Fatalf("finalize leaf: %v", err)
	}

	root := cell.NewBuilder()
	if err := root.StoreBit(true); err != nil {
		t.Fatalf("store bit: %v", err)
	}
	if err := root.StoreUint(7, 3); err != nil {
		t.Fatalf("store uint: %v", err)
	}
	if err := root.StoreRef(leafCell); err != nil {
		t.Fatalf("store ref: %v", err)
	}
	rootCell, err := root.Finalize()
	if err != nil {
		t.Fatalf("finalize root: %v", err)
	}
	return rootCell
}

func TestWriteReadRoundTrip(t *testing.T) {
	want := buildFixtureCell(t)

	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	path := sb.Path("fixture.cell")
	if err := WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestWriteReadNilCell(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	path := filepath.Join(sb.Root, "nil.cell")
	if err := WriteFile(path, nil); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil cell, got %+v", got)
	}
}
