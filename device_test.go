package minifs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ztygod/mini-fs"
)

func TestFileDeviceReadWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := minifs.OpenFileDevice(path, 4)
	if err != nil {
		t.Fatalf("open_file_device: %v", err)
	}
	defer dev.Close()

	want := repeatedByte(minifs.BlockSize, 0xAB)
	if err := dev.WriteBlock(2, want); err != nil {
		t.Fatalf("write_block: %v", err)
	}

	got := make([]byte, minifs.BlockSize)
	if err := dev.ReadBlock(2, got); err != nil {
		t.Fatalf("read_block: %v", err)
	}
	if string(got) != string(want) {
		t.Fatal("read_block did not return what write_block wrote")
	}
}

func TestFileDeviceRejectsWrongSizedBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := minifs.OpenFileDevice(path, 4)
	if err != nil {
		t.Fatalf("open_file_device: %v", err)
	}
	defer dev.Close()

	if err := dev.WriteBlock(0, make([]byte, 10)); err == nil {
		t.Fatal("write_block with undersized buffer succeeded")
	}
	if err := dev.ReadBlock(0, make([]byte, 10)); err == nil {
		t.Fatal("read_block with undersized buffer succeeded")
	}
}

func TestFileDeviceGrowsToGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := minifs.OpenFileDevice(path, 4)
	if err != nil {
		t.Fatalf("open_file_device: %v", err)
	}
	dev.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 4*minifs.BlockSize {
		t.Fatalf("image size = %d, want %d", info.Size(), 4*minifs.BlockSize)
	}
}

func repeatedByte(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
