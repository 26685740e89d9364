package minifs

import (
	"bytes"
	"log"
)

// InodeTable stores exactly TotalInodes records; empty slots hold the
// zero Inode. sync/load span however many blocks the encoded vector
// actually needs, not just the first one, but never more than
// reservedSpan: the region between the table's start block and the
// start of the data area, computed once at layout time. Writing past
// reservedSpan would clobber data blocks, so both sync and load treat
// it as a hard ceiling rather than trusting the encoded length.
type InodeTable struct {
	inodes       []Inode
	startBlock   uint64
	reservedSpan uint64
}

func newInodeTable(startBlock, total, reservedSpan uint64) InodeTable {
	return InodeTable{
		inodes:       make([]Inode, total),
		startBlock:   startBlock,
		reservedSpan: reservedSpan,
	}
}

func (t *InodeTable) total() uint64 { return uint64(len(t.inodes)) }

// allocInode asks bitmap for a free slot and, if granted, installs a
// fresh inode there.
func (t *InodeTable) allocInode(bitmap *inodeBitmap, kind Type, uid, gid uint32, perm uint16) (uint64, bool) {
	idx, ok := bitmap.alloc()
	if !ok || idx >= t.total() {
		return 0, false
	}
	t.inodes[idx] = newInode(kind, uid, gid, perm)
	return idx, true
}

func (t *InodeTable) freeInode(bitmap *inodeBitmap, idx uint64) {
	if idx < t.total() {
		t.inodes[idx] = Inode{}
	}
	bitmap.free(idx)
}

func (t *InodeTable) get(idx uint64) (*Inode, error) {
	if idx >= t.total() {
		return nil, errInvalidInode(idx)
	}
	return &t.inodes[idx], nil
}

// sync serializes the whole inode vector, prepends an 8-byte
// little-endian length header, and writes as many consecutive blocks
// starting at startBlock as the encoded form needs, zero-padding the
// final block.
func (t *InodeTable) sync(disk BlockDevice) error {
	body := new(bytes.Buffer)
	for i := range t.inodes {
		if err := t.inodes[i].encode(body); err != nil {
			return err
		}
	}

	framed := new(bytes.Buffer)
	if err := writeLenPrefixed(framed, body.Bytes()); err != nil {
		return err
	}

	raw := framed.Bytes()
	blockSpan := ceilDiv(uint64(len(raw)), BlockSize)
	if blockSpan > t.reservedSpan {
		return errCorrupted("inode table: encoded form exceeds reserved span")
	}
	buf := make([]byte, blockSpan*BlockSize)
	copy(buf, raw)

	for i := uint64(0); i < blockSpan; i++ {
		if err := disk.WriteBlock(t.startBlock+i, buf[i*BlockSize:(i+1)*BlockSize]); err != nil {
			return err
		}
	}
	return nil
}

// load reads the length prefix from the first block, then as many
// further blocks as needed to cover it, and decodes the inode vector.
func loadInodeTable(disk BlockDevice, startBlock, total, reservedSpan uint64) (InodeTable, error) {
	first := make([]byte, BlockSize)
	if err := disk.ReadBlock(startBlock, first); err != nil {
		return InodeTable{}, err
	}

	bodyLen, headerLen, err := readLenPrefixHeader(first)
	if err != nil {
		return InodeTable{}, err
	}
	log.Printf("minifs: inode table body=%d bytes, start block=%d", bodyLen, startBlock)

	blockSpan := ceilDiv(uint64(headerLen)+bodyLen, BlockSize)
	if blockSpan > reservedSpan {
		return InodeTable{}, errCorrupted("inode table: encoded form exceeds reserved span")
	}
	raw := make([]byte, 0, blockSpan*BlockSize)
	raw = append(raw, first...)
	for i := uint64(1); i < blockSpan; i++ {
		buf := make([]byte, BlockSize)
		if err := disk.ReadBlock(startBlock+i, buf); err != nil {
			return InodeTable{}, err
		}
		raw = append(raw, buf...)
	}

	body := raw[headerLen : uint64(headerLen)+bodyLen]
	r := bytes.NewReader(body)

	inodes := make([]Inode, 0, total)
	for r.Len() > 0 {
		var n Inode
		if err := n.decode(r); err != nil {
			return InodeTable{}, err
		}
		inodes = append(inodes, n)
	}
	if uint64(len(inodes)) != total {
		return InodeTable{}, errCorrupted("inode table: decoded count does not match geometry")
	}

	return InodeTable{inodes: inodes, startBlock: startBlock, reservedSpan: reservedSpan}, nil
}
