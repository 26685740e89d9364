package minifs_test

import (
	"testing"

	"github.com/ztygod/mini-fs"
)

func TestSuperBlockMarshalUnmarshalRoundTrip(t *testing.T) {
	dev := newMockDevice()
	fsys := minifs.New(dev)
	if err := fsys.Format(); err != nil {
		t.Fatalf("format: %v", err)
	}

	buf := make([]byte, minifs.BlockSize)
	if err := dev.ReadBlock(0, buf); err != nil {
		t.Fatalf("read_block(0): %v", err)
	}

	var sb minifs.SuperBlock
	if err := sb.UnmarshalBinary(buf); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sb.TotalBlocks != minifs.DefaultTotalBlocks {
		t.Errorf("TotalBlocks = %d, want %d", sb.TotalBlocks, minifs.DefaultTotalBlocks)
	}
	if sb.TotalInodes != minifs.DefaultTotalInodes {
		t.Errorf("TotalInodes = %d, want %d", sb.TotalInodes, minifs.DefaultTotalInodes)
	}
	if !sb.Mounted {
		t.Error("Mounted = false after format")
	}
}

func TestSuperBlockRejectsBadMagic(t *testing.T) {
	var sb minifs.SuperBlock
	buf := make([]byte, minifs.BlockSize)
	if err := sb.UnmarshalBinary(buf); err == nil {
		t.Fatal("unmarshal of zeroed block succeeded, want bad-magic error")
	}
}
