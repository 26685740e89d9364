package minifs_test

import (
	"bytes"
	"testing"

	"github.com/ztygod/mini-fs"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	dev := newMockDevice()
	fsys := minifs.New(dev)
	if err := fsys.Format(); err != nil {
		t.Fatalf("format: %v", err)
	}
	if _, err := fsys.CreateOrWriteFile("/", "hello.txt", []byte("hi")); err != nil {
		t.Fatalf("create_or_write_file: %v", err)
	}
	if err := fsys.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	var backup bytes.Buffer
	if err := minifs.Snapshot(dev, minifs.DefaultTotalBlocks, &backup); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	restored := newMockDevice()
	if err := minifs.Restore(restored, minifs.DefaultTotalBlocks, &backup); err != nil {
		t.Fatalf("restore: %v", err)
	}

	restoredFs := minifs.New(restored)
	if err := restoredFs.Mount(); err != nil {
		t.Fatalf("mount restored: %v", err)
	}
	got, err := restoredFs.ReadFile("/", "hello.txt")
	if err != nil {
		t.Fatalf("read_file on restored image: %v", err)
	}
	if !bytes.Equal(got, []byte("hi")) {
		t.Fatalf("read_file on restored image = %q, want %q", got, "hi")
	}
}
