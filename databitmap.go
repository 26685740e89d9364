package minifs

// dataBitmap tracks which blocks of the data area are in use, one bit
// per block, indexed *relative* to the data area's start; callers add
// the data area's start block to get an absolute block id.
type dataBitmap struct {
	set        bitset
	startBlock uint64
}

func newDataBitmap(total, startBlock uint64) dataBitmap {
	return dataBitmap{set: newBitset(total), startBlock: startBlock}
}

func (m *dataBitmap) alloc() (uint64, bool) { return m.set.alloc() }

func (m *dataBitmap) allocSpecific(i uint64) error { return m.set.allocSpecific(i) }

func (m *dataBitmap) free(i uint64) { m.set.freeBit(i) }

func (m *dataBitmap) isUsed(i uint64) bool { return m.set.isUsed(i) }

func (m *dataBitmap) freeCount() uint64 { return m.set.free }

func (m *dataBitmap) popcount() uint64 { return m.set.popcount() }

func loadDataBitmap(disk BlockDevice, startBlock, total uint64) (dataBitmap, error) {
	set, err := loadBitset(disk, startBlock, total)
	if err != nil {
		return dataBitmap{}, err
	}
	return dataBitmap{set: set, startBlock: startBlock}, nil
}

func (m *dataBitmap) sync(disk BlockDevice) error {
	return syncBitset(&m.set, disk, m.startBlock)
}
