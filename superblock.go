package minifs

import (
	"bytes"
	"encoding/binary"
	"reflect"
)

// SuperBlock is the first block of the image: magic, geometry, free
// counts, and the mounted/dirty flags. Mount verifies only the magic;
// it does not check the flags. Field order here is the on-disk order.
//
// Marshal/Unmarshal walk the exported fields with reflect, the same
// way squashfs's own UnmarshalBinary does it, generalized to also
// encode: squashfs only ever reads a superblock, MiniFS writes one on
// every Format and Sync too.
type SuperBlock struct {
	Magic            uint32
	BlockSize        uint32
	TotalBlocks      uint64
	TotalInodes      uint64
	FreeBlocks       uint64
	FreeInodes       uint64
	InodeBitmapStart uint64
	DataBitmapStart  uint64
	InodeTableStart  uint64
	DataStart        uint64
	RootInode        uint64
	Mounted          bool
	Dirty            bool
}

func newSuperBlock(l layout, freeBlocks, freeInodes uint64) SuperBlock {
	return SuperBlock{
		Magic:            superblockMagic,
		BlockSize:        BlockSize,
		TotalBlocks:      l.totalBlocks,
		TotalInodes:      l.totalInodes,
		FreeBlocks:       freeBlocks,
		FreeInodes:       freeInodes,
		InodeBitmapStart: l.inodeBitmapStart,
		DataBitmapStart:  l.dataBitmapStart,
		InodeTableStart:  l.inodeTableStart,
		DataStart:        l.dataStart,
		RootInode:        0,
	}
}

// binarySize sums the encoded width of every exported field, the same
// way super.go's binarySize does, so Marshal/Unmarshal never drift out
// of step with the struct definition.
func (s *SuperBlock) binarySize() int {
	v := reflect.ValueOf(*s)
	t := v.Type()
	size := 0
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Name[0] < 'A' || t.Field(i).Name[0] > 'Z' {
			continue
		}
		size += int(v.Field(i).Type().Size())
	}
	return size
}

// MarshalBinary encodes the superblock into a zero-padded, one-block
// buffer in declaration order, little-endian.
func (s *SuperBlock) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	v := reflect.ValueOf(*s)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Name[0] < 'A' || t.Field(i).Name[0] > 'Z' {
			continue
		}
		if err := binary.Write(buf, binary.LittleEndian, v.Field(i).Interface()); err != nil {
			return nil, errIo(err)
		}
	}

	if buf.Len() != s.binarySize() {
		return nil, errCorrupted("superblock: encoded length does not match field layout")
	}
	out := make([]byte, BlockSize)
	if buf.Len() > BlockSize {
		return nil, errCorrupted("superblock: encoded form exceeds one block")
	}
	copy(out, buf.Bytes())
	return out, nil
}

// UnmarshalBinary decodes a superblock from data, grounded on
// super.go's field-by-field reflect.Read technique: each exported field
// is visited in declaration order and filled via its addressable
// reflect.Value.
func (s *SuperBlock) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	v := reflect.ValueOf(s).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Name[0] < 'A' || t.Field(i).Name[0] > 'Z' {
			continue
		}
		fv := v.Field(i)
		if err := binary.Read(r, binary.LittleEndian, fv.Addr().Interface()); err != nil {
			return errCorrupted("superblock: truncated or malformed: " + err.Error())
		}
	}

	if s.Magic != superblockMagic {
		return errCorrupted("superblock: bad magic")
	}
	return nil
}

func loadSuperBlock(disk BlockDevice) (SuperBlock, error) {
	buf := make([]byte, BlockSize)
	if err := disk.ReadBlock(0, buf); err != nil {
		return SuperBlock{}, err
	}
	var sb SuperBlock
	if err := sb.UnmarshalBinary(buf); err != nil {
		return SuperBlock{}, err
	}
	return sb, nil
}

func (s *SuperBlock) sync(disk BlockDevice) error {
	buf, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	return disk.WriteBlock(0, buf)
}
