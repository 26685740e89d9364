//go:build fuse

package minifs

import (
	"io/fs"
	"os"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// FuseNode is a read-only node-hook adapter for embedding a mounted
// FileSystem into a larger go-fuse server. It is not a runnable FUSE
// binary — it only exposes the handful of hooks
// (Lookup/Open/OpenDir/ReadDir/FillAttr) a go-fuse RawFileSystem or
// nodefs wrapper needs, leaving mount setup and the server loop to
// the embedder.
type FuseNode struct {
	fs  *FileSystem
	ino uint64
}

// NewFuseNode wraps the inode at idx for FUSE node hooks.
func NewFuseNode(fs *FileSystem, idx uint64) *FuseNode {
	return &FuseNode{fs: fs, ino: idx}
}

func (n *FuseNode) inode() (*Inode, error) {
	return n.fs.inodeTable.get(n.ino)
}

// Lookup resolves name as a child of this node's directory.
func (n *FuseNode) Lookup(name string) (*FuseNode, error) {
	ino, err := n.inode()
	if err != nil {
		return nil, err
	}
	if ino.Kind != TypeDirectory {
		return nil, os.ErrInvalid
	}
	dir, err := n.fs.readDirectoryAt(n.ino)
	if err != nil {
		return nil, err
	}
	idx, ok := dir.find(name)
	if !ok {
		return nil, os.ErrNotExist
	}
	return NewFuseNode(n.fs, idx), nil
}

// Open always succeeds and asks go-fuse to cache the handle: MiniFS's
// own write path goes through FileSystem directly, not through this
// adapter, so there is nothing further to negotiate here.
func (n *FuseNode) Open(flags uint32) (uint32, error) {
	return fuse.FOPEN_KEEP_CACHE, nil
}

func (n *FuseNode) OpenDir() (uint32, error) {
	ino, err := n.inode()
	if err != nil {
		return 0, err
	}
	if ino.Kind != TypeDirectory {
		return 0, os.ErrInvalid
	}
	return fuse.FOPEN_KEEP_CACHE, nil
}

// ReadDir lists this node's directory into out, skipping "." and ".."
// since go-fuse's DirEntryList synthesizes those itself.
func (n *FuseNode) ReadDir(out *fuse.DirEntryList) error {
	ino, err := n.inode()
	if err != nil {
		return err
	}
	if ino.Kind != TypeDirectory {
		return os.ErrInvalid
	}
	dir, err := n.fs.readDirectoryAt(n.ino)
	if err != nil {
		return err
	}
	for _, name := range dir.listSorted() {
		if name == "." || name == ".." {
			continue
		}
		idx, _ := dir.find(name)
		child, err := n.fs.inodeTable.get(idx)
		if err != nil {
			continue
		}
		if !out.Add(0, name, idx, uint32(child.Perm)) {
			return nil
		}
	}
	return nil
}

// FillAttr files a fuse.Attr structure from this node's inode.
func (n *FuseNode) FillAttr(attr *fuse.Attr) error {
	ino, err := n.inode()
	if err != nil {
		return err
	}
	attr.Ino = n.ino
	attr.Size = ino.Size
	attr.Blocks = ino.blockCount()
	attr.Mode = ModeToUnix(ino.Kind.Mode() | fs.FileMode(ino.Perm&0o777))
	attr.Nlink = ino.LinkCount
	attr.Atime = ino.Atime
	attr.Mtime = ino.Mtime
	attr.Ctime = ino.Ctime
	attr.Owner.Uid = ino.UID
	attr.Owner.Gid = ino.GID
	return nil
}
