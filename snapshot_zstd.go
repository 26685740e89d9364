//go:build zstd

package minifs

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

func init() {
	registerSnapshotCodec(snapshotCodec{
		name: "zstd",
		wrap: func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w)
		},
		unwrap: func(r io.Reader) (io.Reader, error) {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return dec.IOReadCloser(), nil
		},
	})
	defaultSnapshotCodec = "zstd"
}
