//go:build xz

package minifs

import (
	"io"

	"github.com/ulikunitz/xz"
)

func init() {
	registerSnapshotCodec(snapshotCodec{
		name: "xz",
		wrap: func(w io.Writer) (io.WriteCloser, error) {
			return xz.NewWriter(w)
		},
		unwrap: func(r io.Reader) (io.Reader, error) {
			return xz.NewReader(r)
		},
	})
	defaultSnapshotCodec = "xz"
}
