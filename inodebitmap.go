package minifs

// inodeBitmap tracks which of the inode-table slots are live, one bit
// per slot.
type inodeBitmap struct {
	set        bitset
	startBlock uint64
}

func newInodeBitmap(total, startBlock uint64) inodeBitmap {
	return inodeBitmap{set: newBitset(total), startBlock: startBlock}
}

func (m *inodeBitmap) alloc() (uint64, bool) { return m.set.alloc() }

func (m *inodeBitmap) allocSpecific(i uint64) error { return m.set.allocSpecific(i) }

func (m *inodeBitmap) free(i uint64) { m.set.freeBit(i) }

func (m *inodeBitmap) isUsed(i uint64) bool { return m.set.isUsed(i) }

func (m *inodeBitmap) freeCount() uint64 { return m.set.free }

func (m *inodeBitmap) popcount() uint64 { return m.set.popcount() }

func loadInodeBitmap(disk BlockDevice, startBlock, total uint64) (inodeBitmap, error) {
	set, err := loadBitset(disk, startBlock, total)
	if err != nil {
		return inodeBitmap{}, err
	}
	return inodeBitmap{set: set, startBlock: startBlock}, nil
}

func (m *inodeBitmap) sync(disk BlockDevice) error {
	return syncBitset(&m.set, disk, m.startBlock)
}
