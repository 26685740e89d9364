package minifs

// Option configures the geometry a new FileSystem is built with.
type Option func(*layout)

// WithTotalBlocks overrides the default total block count
// (DefaultTotalBlocks).
func WithTotalBlocks(n uint64) Option {
	return func(l *layout) {
		l.totalBlocks = n
	}
}

// WithTotalInodes overrides the default inode slot count
// (DefaultTotalInodes).
func WithTotalInodes(n uint64) Option {
	return func(l *layout) {
		l.totalInodes = n
	}
}
