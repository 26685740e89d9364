package minifs

// bitset is the byte-packed, little-endian-bit-within-byte allocation
// primitive shared by the inode bitmap and the data-block bitmap.
// inodeBitmap and dataBitmap are thin, differently-typed wrappers
// around it so each still reads as its own small component with its
// own start-block bookkeeping, without duplicating the scan/alloc/
// free logic twice.
type bitset struct {
	bits  []byte
	total uint64
	free  uint64
}

func newBitset(total uint64) bitset {
	return bitset{
		bits:  make([]byte, ceilDiv(total, 8)),
		total: total,
		free:  total,
	}
}

// alloc performs a deterministic lowest-index-first linear scan: byte by
// byte, skipping any byte that is already full (0xFF), then bit by bit
// within the first non-full byte.
func (b *bitset) alloc() (uint64, bool) {
	if b.free == 0 {
		return 0, false
	}
	for byteIdx, byteVal := range b.bits {
		if byteVal == 0xFF {
			continue
		}
		for bit := uint(0); bit < 8; bit++ {
			if byteVal&(1<<bit) == 0 {
				b.bits[byteIdx] |= 1 << bit
				b.free--
				return uint64(byteIdx)*8 + uint64(bit), true
			}
		}
	}
	return 0, false
}

// allocSpecific sets bit i, failing if it is already set. Used by format
// to pin inode 0 for the root.
func (b *bitset) allocSpecific(i uint64) error {
	if i >= b.total {
		return errCorrupted("bitset: allocSpecific index out of range")
	}
	byteIdx, bit := i/8, i%8
	if b.bits[byteIdx]&(1<<bit) != 0 {
		return errCorrupted("bitset: index already allocated")
	}
	b.bits[byteIdx] |= 1 << bit
	b.free--
	return nil
}

// freeBit clears bit i if it was set. Out-of-range calls are silently
// ignored: they are programming errors, not runtime failures.
func (b *bitset) freeBit(i uint64) {
	if i >= b.total {
		return
	}
	byteIdx, bit := i/8, i%8
	if b.bits[byteIdx]&(1<<bit) != 0 {
		b.bits[byteIdx] &^= 1 << bit
		b.free++
	}
}

func (b *bitset) isUsed(i uint64) bool {
	if i >= b.total {
		return false
	}
	byteIdx, bit := i/8, i%8
	return b.bits[byteIdx]&(1<<bit) != 0
}

func (b *bitset) popcount() uint64 {
	var n uint64
	for _, by := range b.bits {
		n += uint64(popcountByte(by))
	}
	return n
}

func popcountByte(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}

// loadBitset reads ceil(total/(8*BlockSize)) blocks starting at
// startBlock, concatenates them, truncates to ceil(total/8) bytes, and
// recomputes free = total - popcount(bits).
func loadBitset(disk BlockDevice, startBlock, total uint64) (bitset, error) {
	byteLen := ceilDiv(total, 8)
	blockSpan := ceilDiv(total, 8*BlockSize)

	raw := make([]byte, 0, blockSpan*BlockSize)
	buf := make([]byte, BlockSize)
	for i := uint64(0); i < blockSpan; i++ {
		if err := disk.ReadBlock(startBlock+i, buf); err != nil {
			return bitset{}, err
		}
		raw = append(raw, buf...)
	}
	raw = raw[:byteLen]

	b := bitset{bits: raw, total: total}
	b.free = total - b.popcount()
	return b, nil
}

// syncBitset pads bits to a whole number of blocks with zeros and writes
// each one out.
func syncBitset(b *bitset, disk BlockDevice, startBlock uint64) error {
	blockSpan := ceilDiv(b.total, 8*BlockSize)
	padded := make([]byte, blockSpan*BlockSize)
	copy(padded, b.bits)

	for i := uint64(0); i < blockSpan; i++ {
		if err := disk.WriteBlock(startBlock+i, padded[i*BlockSize:(i+1)*BlockSize]); err != nil {
			return err
		}
	}
	return nil
}
