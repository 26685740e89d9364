package minifs

import "strings"

// OpenFlags is the bitset passed to Open: a combination of read/write
// intent, creation, and truncate/append modifiers.
type OpenFlags uint8

const (
	OpenRead OpenFlags = 1 << iota
	OpenWrite
	OpenCreate
	OpenTrunc
	OpenAppend
)

func (f OpenFlags) Has(what OpenFlags) bool {
	return f&what == what
}

func (f OpenFlags) String() string {
	var opt []string
	if f&OpenRead != 0 {
		opt = append(opt, "READ")
	}
	if f&OpenWrite != 0 {
		opt = append(opt, "WRITE")
	}
	if f&OpenCreate != 0 {
		opt = append(opt, "CREATE")
	}
	if f&OpenTrunc != 0 {
		opt = append(opt, "TRUNC")
	}
	if f&OpenAppend != 0 {
		opt = append(opt, "APPEND")
	}
	return strings.Join(opt, "|")
}

// FileHandle is the value Open returns: validation plus offset
// initialization only — no read/write/seek/close API is defined on
// it.
type FileHandle struct {
	InodeID uint64
	Offset  uint64
	Flags   OpenFlags
}
