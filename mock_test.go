package minifs_test

import (
	"github.com/ztygod/mini-fs"
)

// mockDevice is an in-memory BlockDevice that can be told to fail
// reads/writes from a given block onward.
type mockDevice struct {
	blocks  map[uint64][]byte
	failAt  uint64
	failErr error
}

func newMockDevice() *mockDevice {
	return &mockDevice{blocks: make(map[uint64][]byte)}
}

func (m *mockDevice) ReadBlock(id uint64, buf []byte) error {
	if m.failErr != nil && id >= m.failAt {
		return m.failErr
	}
	data, ok := m.blocks[id]
	if !ok {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	copy(buf, data)
	return nil
}

func (m *mockDevice) WriteBlock(id uint64, buf []byte) error {
	if m.failErr != nil && id >= m.failAt {
		return m.failErr
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	m.blocks[id] = cp
	return nil
}

var _ minifs.BlockDevice = (*mockDevice)(nil)
