package minifs

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// snapshotCodec compresses and decompresses a whole image file for the
// Snapshot/Restore backup facility. It never runs on the live block
// path, which stays byte-exact and uncompressed; it only wraps the
// external backup artifact.
type snapshotCodec struct {
	name   string
	wrap   func(io.Writer) (io.WriteCloser, error)
	unwrap func(io.Reader) (io.Reader, error)
}

var snapshotCodecs = map[string]snapshotCodec{}

func registerSnapshotCodec(c snapshotCodec) {
	snapshotCodecs[c.name] = c
}

func init() {
	registerSnapshotCodec(snapshotCodec{
		name: "gzip",
		wrap: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriterLevel(w, gzip.BestSpeed)
		},
		unwrap: func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		},
	})
}

// defaultSnapshotCodec is gzip unless a build-tag-gated alternate
// (xz, zstd) overrides it in its own init().
var defaultSnapshotCodec = "gzip"

// Snapshot reads every block of disk (totalBlocks blocks of BlockSize
// bytes) and writes a compressed backup of the whole image to w. The
// engine's core block path never touches this codec: a snapshot is an
// operator-facing artifact taken between Sync and Unmount, not part of
// the mounted filesystem's on-disk format.
func Snapshot(disk BlockDevice, totalBlocks uint64, w io.Writer) error {
	codec, ok := snapshotCodecs[defaultSnapshotCodec]
	if !ok {
		return errCorrupted("snapshot: no codec registered for " + defaultSnapshotCodec)
	}
	cw, err := codec.wrap(w)
	if err != nil {
		return errIo(err)
	}

	buf := make([]byte, BlockSize)
	for id := uint64(0); id < totalBlocks; id++ {
		if err := disk.ReadBlock(id, buf); err != nil {
			cw.Close()
			return err
		}
		if _, err := cw.Write(buf); err != nil {
			cw.Close()
			return errIo(err)
		}
	}
	if err := cw.Close(); err != nil {
		return errIo(err)
	}
	return nil
}

// Restore decompresses a Snapshot produced backup from r and writes it
// back block-by-block to disk.
func Restore(disk BlockDevice, totalBlocks uint64, r io.Reader) error {
	codec, ok := snapshotCodecs[defaultSnapshotCodec]
	if !ok {
		return errCorrupted("restore: no codec registered for " + defaultSnapshotCodec)
	}
	cr, err := codec.unwrap(r)
	if err != nil {
		return errIo(err)
	}

	buf := make([]byte, BlockSize)
	for id := uint64(0); id < totalBlocks; id++ {
		if _, err := io.ReadFull(cr, buf); err != nil {
			return errIo(err)
		}
		if err := disk.WriteBlock(id, buf); err != nil {
			return err
		}
	}
	return nil
}
