package minifs

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/google/uuid"
)

// Inode is the metadata record for one file or directory. A free slot
// holds the zero value with an empty ID; "live" means the inode
// bitmap's matching bit is set, not any field of the record itself.
type Inode struct {
	ID                string
	Kind              Type
	Size              uint64
	Perm              uint16
	UID               uint32
	GID               uint32
	LinkCount         uint32
	Atime             uint64
	Mtime             uint64
	Ctime             uint64
	Direct            [DirectPtrs]uint64
	HasIndirect       bool
	Indirect          uint64
	HasDoubleIndirect bool
	DoubleIndirect    uint64
}

func newInode(kind Type, uid, gid uint32, perm uint16) Inode {
	now := uint64(time.Now().Unix())
	return Inode{
		ID:        uuid.NewString(),
		Kind:      kind,
		Perm:      perm,
		UID:       uid,
		GID:       gid,
		LinkCount: 1,
		Atime:     now,
		Mtime:     now,
		Ctime:     now,
	}
}

func (n *Inode) isFree() bool { return n.ID == "" }

func (n *Inode) touch() {
	now := uint64(time.Now().Unix())
	n.Atime, n.Mtime, n.Ctime = now, now, now
}

// addBlock fills the first zero direct pointer, falling back to the
// single-indirect slot once all 12 direct slots are used. Beyond
// that, MiniFS does not allocate a second block per file.
func (n *Inode) addBlock(blockID uint64) error {
	for i := range n.Direct {
		if n.Direct[i] == 0 {
			n.Direct[i] = blockID
			return nil
		}
	}
	if !n.HasIndirect {
		n.HasIndirect = true
		n.Indirect = blockID
		return nil
	}
	return errCorrupted("inode: no space in block pointers")
}

func (n *Inode) blockCount() uint64 {
	var c uint64
	for _, b := range n.Direct {
		if b != 0 {
			c++
		}
	}
	if n.HasIndirect {
		c++
	}
	if n.HasDoubleIndirect {
		c++
	}
	return c
}

// blocks returns every non-zero block pointer owned by the inode, in
// the order they'd be freed.
func (n *Inode) blocks() []uint64 {
	out := make([]uint64, 0, DirectPtrs+2)
	for _, b := range n.Direct {
		if b != 0 {
			out = append(out, b)
		}
	}
	if n.HasIndirect {
		out = append(out, n.Indirect)
	}
	if n.HasDoubleIndirect {
		out = append(out, n.DoubleIndirect)
	}
	return out
}

func (n *Inode) clearBlocks() {
	for i := range n.Direct {
		n.Direct[i] = 0
	}
	n.HasIndirect, n.Indirect = false, 0
	n.HasDoubleIndirect, n.DoubleIndirect = false, 0
}

// onDiskInodeSize is the exact byte count encode/decode below produce
// for one record: 16-byte raw UUID, 1-byte kind, 46 bytes of
// fixed-width fields (size+perm+uid+gid+link_count+3 timestamps), 96
// bytes of direct pointers, and 16 bytes for the indirect/
// double-indirect pointers. geometry.go sizes the inode table's block
// span from this constant, so it must stay in lockstep with encode.
const onDiskInodeSize = 16 + 1 + (8 + 2 + 4 + 4 + 4 + 8 + 8 + 8) + DirectPtrs*8 + 8 + 8

// encode writes a fixed-size record for n: a raw 16-byte UUID (the
// zero UUID for a free slot), then fixed-width fields in declaration
// order. Indirect/DoubleIndirect are written as plain uint64s with 0
// meaning absent — block 0 is the superblock and is never a valid
// data pointer, so it needs no separate presence flag, the same
// sentinel convention the Direct array already uses.
func (n *Inode) encode(w *bytes.Buffer) error {
	var idBytes [16]byte
	if n.ID != "" {
		parsed, err := uuid.Parse(n.ID)
		if err != nil {
			return errCorrupted("inode: malformed id")
		}
		idBytes = [16]byte(parsed)
	}
	if _, err := w.Write(idBytes[:]); err != nil {
		return errIo(err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(n.Kind)); err != nil {
		return errIo(err)
	}
	for _, f := range []interface{}{
		n.Size, n.Perm, n.UID, n.GID, n.LinkCount,
		n.Atime, n.Mtime, n.Ctime,
	} {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return errIo(err)
		}
	}
	for _, b := range n.Direct {
		if err := binary.Write(w, binary.LittleEndian, b); err != nil {
			return errIo(err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, n.Indirect); err != nil {
		return errIo(err)
	}
	return binary.Write(w, binary.LittleEndian, n.DoubleIndirect)
}

func (n *Inode) decode(r *bytes.Reader) error {
	var idBytes [16]byte
	if _, err := io.ReadFull(r, idBytes[:]); err != nil {
		return errCorrupted("inode: truncated id")
	}
	if idBytes == ([16]byte{}) {
		n.ID = ""
	} else {
		n.ID = uuid.UUID(idBytes).String()
	}

	var kind uint8
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return errCorrupted("inode: truncated type")
	}
	n.Kind = Type(kind)

	for _, f := range []interface{}{
		&n.Size, &n.Perm, &n.UID, &n.GID, &n.LinkCount,
		&n.Atime, &n.Mtime, &n.Ctime,
	} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return errCorrupted("inode: truncated record")
		}
	}
	for i := range n.Direct {
		if err := binary.Read(r, binary.LittleEndian, &n.Direct[i]); err != nil {
			return errCorrupted("inode: truncated direct pointers")
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &n.Indirect); err != nil {
		return errCorrupted("inode: truncated indirect pointer")
	}
	n.HasIndirect = n.Indirect != 0

	if err := binary.Read(r, binary.LittleEndian, &n.DoubleIndirect); err != nil {
		return errCorrupted("inode: truncated double-indirect pointer")
	}
	n.HasDoubleIndirect = n.DoubleIndirect != 0
	return nil
}

func writeString(w *bytes.Buffer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return errIo(err)
	}
	if _, err := w.WriteString(s); err != nil {
		return errIo(err)
	}
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", errCorrupted("string: truncated length prefix")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errCorrupted("string: truncated body")
	}
	return string(buf), nil
}

