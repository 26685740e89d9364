package minifs_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/ztygod/mini-fs"
)

func newFormatted(t *testing.T) *minifs.FileSystem {
	t.Helper()
	fsys := minifs.New(newMockDevice())
	if err := fsys.Format(); err != nil {
		t.Fatalf("format: %v", err)
	}
	return fsys
}

func TestFormatYieldsEmptyRoot(t *testing.T) {
	fsys := newFormatted(t)
	entries, err := fsys.ListDir("/")
	if err != nil {
		t.Fatalf("list_dir: %v", err)
	}
	want := []string{".", ".."}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("list_dir(/) = %v, want %v", entries, want)
	}
}

func TestCreateDirAppearsSortedAndResolves(t *testing.T) {
	fsys := newFormatted(t)
	idx, err := fsys.CreateDir("/", "a")
	if err != nil {
		t.Fatalf("create_dir: %v", err)
	}
	if idx != 1 {
		t.Fatalf("create_dir returned inode %d, want 1", idx)
	}

	entries, err := fsys.ListDir("/")
	if err != nil {
		t.Fatalf("list_dir: %v", err)
	}
	want := []string{".", "..", "a"}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("list_dir(/) = %v, want %v", entries, want)
	}

	st, err := fsys.Stat("/", "a")
	if err != nil {
		t.Fatalf("stat(/a): %v", err)
	}
	if st.Kind != minifs.TypeDirectory {
		t.Fatalf("stat(/a).Kind = %v, want TypeDirectory", st.Kind)
	}
}

func TestCreateOrWriteThenReadAndStat(t *testing.T) {
	fsys := newFormatted(t)
	if _, err := fsys.CreateOrWriteFile("/", "hello.txt", []byte("hi")); err != nil {
		t.Fatalf("create_or_write_file: %v", err)
	}

	got, err := fsys.ReadFile("/", "hello.txt")
	if err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if !bytes.Equal(got, []byte("hi")) {
		t.Fatalf("read_file = %q, want %q", got, "hi")
	}

	st, err := fsys.Stat("/", "hello.txt")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size != 2 {
		t.Errorf("stat.Size = %d, want 2", st.Size)
	}
	if st.Kind != minifs.TypeFile {
		t.Errorf("stat.Kind = %v, want TypeFile", st.Kind)
	}
	if st.Perm != 0o644 {
		t.Errorf("stat.Perm = %o, want 0644", st.Perm)
	}
}

// superBlockOf decodes the superblock most recently synced to dev.
func superBlockOf(t *testing.T, dev *mockDevice) minifs.SuperBlock {
	t.Helper()
	buf := make([]byte, minifs.BlockSize)
	if err := dev.ReadBlock(0, buf); err != nil {
		t.Fatalf("read_block(0): %v", err)
	}
	var sb minifs.SuperBlock
	if err := sb.UnmarshalBinary(buf); err != nil {
		t.Fatalf("unmarshal superblock: %v", err)
	}
	return sb
}

func TestOverwriteKeepsFreeBlocksBalanced(t *testing.T) {
	dev := newMockDevice()
	fsys := minifs.New(dev)
	if err := fsys.Format(); err != nil {
		t.Fatalf("format: %v", err)
	}
	if _, err := fsys.CreateOrWriteFile("/", "hello.txt", []byte("hi")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := fsys.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	before := superBlockOf(t, dev).FreeBlocks

	if _, err := fsys.CreateOrWriteFile("/", "hello.txt", []byte("abcd")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := fsys.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if after := superBlockOf(t, dev).FreeBlocks; after != before {
		t.Fatalf("free_blocks after overwrite = %d, want %d", after, before)
	}

	got, err := fsys.ReadFile("/", "hello.txt")
	if err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if !bytes.Equal(got, []byte("abcd")) {
		t.Fatalf("read_file = %q, want %q", got, "abcd")
	}
}

func TestDeleteEmptyDirSucceedsNonEmptyFails(t *testing.T) {
	fsys := newFormatted(t)
	if _, err := fsys.CreateDir("/", "a"); err != nil {
		t.Fatalf("create_dir: %v", err)
	}

	if err := fsys.DeleteDir("/", "a"); err != nil {
		t.Fatalf("delete_dir(empty): %v", err)
	}

	if _, err := fsys.CreateDir("/", "b"); err != nil {
		t.Fatalf("create_dir: %v", err)
	}
	if _, err := fsys.CreateFile("/b", "f"); err != nil {
		t.Fatalf("create_file: %v", err)
	}
	err := fsys.DeleteDir("/", "b")
	if err == nil {
		t.Fatal("delete_dir(non-empty) succeeded, want DirectoryNotEmpty")
	}
	var me *minifs.Error
	if !errors.As(err, &me) || me.Kind != minifs.KindDirectoryNotEmpty {
		t.Fatalf("delete_dir(non-empty) error = %v, want DirectoryNotEmpty", err)
	}
}

func TestSyncMountRoundTrip(t *testing.T) {
	dev := newMockDevice()
	fsys := minifs.New(dev)
	if err := fsys.Format(); err != nil {
		t.Fatalf("format: %v", err)
	}
	if _, err := fsys.CreateDir("/", "a"); err != nil {
		t.Fatalf("create_dir: %v", err)
	}
	if _, err := fsys.CreateOrWriteFile("/", "hello.txt", []byte("hi")); err != nil {
		t.Fatalf("create_or_write_file: %v", err)
	}
	if err := fsys.Unmount(); err != nil {
		t.Fatalf("unmount: %v", err)
	}

	fsys2 := minifs.New(dev)
	if err := fsys2.Mount(); err != nil {
		t.Fatalf("mount: %v", err)
	}

	entries, err := fsys2.ListDir("/")
	if err != nil {
		t.Fatalf("list_dir: %v", err)
	}
	want := []string{".", "..", "a", "hello.txt"}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("list_dir(/) after remount = %v, want %v", entries, want)
	}

	got, err := fsys2.ReadFile("/", "hello.txt")
	if err != nil {
		t.Fatalf("read_file after remount: %v", err)
	}
	if !bytes.Equal(got, []byte("hi")) {
		t.Fatalf("read_file after remount = %q, want %q", got, "hi")
	}
}

func TestCreateFileThenDeleteFreesInodeAndBlock(t *testing.T) {
	dev := newMockDevice()
	fsys := minifs.New(dev)
	if err := fsys.Format(); err != nil {
		t.Fatalf("format: %v", err)
	}
	before := superBlockOf(t, dev)

	if _, err := fsys.CreateOrWriteFile("/", "f", []byte("x")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := fsys.DeleteFile("/", "f"); err != nil {
		t.Fatalf("delete_file: %v", err)
	}
	if _, err := fsys.ReadFile("/", "f"); err == nil {
		t.Fatal("read_file succeeded after delete")
	}

	if err := fsys.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	after := superBlockOf(t, dev)
	if after.FreeInodes != before.FreeInodes {
		t.Errorf("free_inodes after create+delete = %d, want %d", after.FreeInodes, before.FreeInodes)
	}
	if after.FreeBlocks != before.FreeBlocks {
		t.Errorf("free_blocks after create+delete = %d, want %d", after.FreeBlocks, before.FreeBlocks)
	}
}

func TestOpenCreateAndPermissionChecks(t *testing.T) {
	fsys := newFormatted(t)

	h, err := fsys.Open("/new.txt", minifs.OpenCreate|minifs.OpenWrite)
	if err != nil {
		t.Fatalf("open(CREATE|WRITE): %v", err)
	}
	if h.Offset != 0 {
		t.Errorf("offset = %d, want 0", h.Offset)
	}

	if _, err := fsys.Open("/nope.txt", 0); err == nil {
		t.Fatal("open of missing path without CREATE succeeded")
	}

	if _, err := fsys.CreateDir("/", "d"); err != nil {
		t.Fatalf("create_dir: %v", err)
	}
	if _, err := fsys.Open("/d", minifs.OpenRead); err == nil {
		t.Fatal("open on a directory succeeded, want IsADirectory")
	}
}
