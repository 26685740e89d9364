package minifs

import (
	"bytes"
	"encoding/binary"
)

const lenPrefixSize = 8

// writeLenPrefixed writes an 8-byte little-endian length header
// followed by body, the wire shape used for the inode table.
func writeLenPrefixed(w *bytes.Buffer, body []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(body))); err != nil {
		return errIo(err)
	}
	if _, err := w.Write(body); err != nil {
		return errIo(err)
	}
	return nil
}

// readLenPrefixHeader parses the 8-byte length header at the start of
// buf and returns the declared body length plus the header's own size.
func readLenPrefixHeader(buf []byte) (bodyLen uint64, headerLen int, err error) {
	if len(buf) < lenPrefixSize {
		return 0, 0, errCorrupted("length prefix: buffer too short")
	}
	return binary.LittleEndian.Uint64(buf[:lenPrefixSize]), lenPrefixSize, nil
}

func writeU64(w *bytes.Buffer, v uint64) error {
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return errIo(err)
	}
	return nil
}

func writeU8(w *bytes.Buffer, v uint8) error {
	return w.WriteByte(v)
}

func readU64(r *bytes.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func readU8(r *bytes.Reader) (uint8, error) {
	return r.ReadByte()
}
