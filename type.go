package minifs

import "io/fs"

// Type is the on-disk inode type.
type Type uint8

const (
	// TypeFile is a regular file.
	TypeFile Type = iota + 1
	// TypeDirectory is a directory; its one allowed data block holds a
	// serialized Directory.
	TypeDirectory
	// TypeSymlink is reserved by the data model but never traversed;
	// symlink resolution isn't implemented.
	TypeSymlink
)

func (t Type) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "directory"
	case TypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Mode returns the fs.FileMode bits that correspond to this type alone,
// with no permission bits set.
func (t Type) Mode() fs.FileMode {
	switch t {
	case TypeDirectory:
		return fs.ModeDir
	case TypeSymlink:
		return fs.ModeSymlink
	default:
		return 0
	}
}

// EntryType mirrors Type but is used inside serialized Directory
// entries, kept as its own small enum for a self-contained directory
// wire format.
type EntryType uint8

const (
	EntryFile EntryType = iota + 1
	EntryDirectory
)

func (e EntryType) String() string {
	if e == EntryDirectory {
		return "directory"
	}
	return "file"
}

func entryTypeFor(t Type) EntryType {
	if t == TypeDirectory {
		return EntryDirectory
	}
	return EntryFile
}
