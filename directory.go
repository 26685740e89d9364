package minifs

import (
	"bytes"
	"sort"
)

// Entry is one name -> inode mapping inside a Directory.
type Entry struct {
	Name       string
	InodeIndex uint64
	Kind       EntryType
}

// Directory is the ordered entry list stored in a directory inode's
// first data block, plus a non-persisted name index rebuilt on load.
type Directory struct {
	InodeIndex uint64
	entries    []Entry
	index      map[string]int
}

func newDirectory(inodeIndex uint64) Directory {
	return Directory{
		InodeIndex: inodeIndex,
		index:      make(map[string]int),
	}
}

func (d *Directory) rebuildIndex() {
	d.index = make(map[string]int, len(d.entries))
	for i, e := range d.entries {
		d.index[e.Name] = i
	}
}

func (d *Directory) add(inodeIndex uint64, name string, kind EntryType) error {
	if _, ok := d.index[name]; ok {
		return errAlreadyExists(name)
	}
	d.entries = append(d.entries, Entry{Name: name, InodeIndex: inodeIndex, Kind: kind})
	d.index[name] = len(d.entries) - 1
	return nil
}

// remove deletes name, shifting later entries down and rebuilding the
// index, and returns the inode index it pointed at.
func (d *Directory) remove(name string) (uint64, bool) {
	idx, ok := d.index[name]
	if !ok {
		return 0, false
	}
	inodeIndex := d.entries[idx].InodeIndex
	d.entries = append(d.entries[:idx], d.entries[idx+1:]...)
	d.rebuildIndex()
	return inodeIndex, true
}

func (d *Directory) find(name string) (uint64, bool) {
	idx, ok := d.index[name]
	if !ok {
		return 0, false
	}
	return d.entries[idx].InodeIndex, true
}

func (d *Directory) isDirectory(name string) (bool, bool) {
	idx, ok := d.index[name]
	if !ok {
		return false, false
	}
	return d.entries[idx].Kind == EntryDirectory, true
}

func (d *Directory) count() int { return len(d.entries) }

// listSorted returns entry names in stable categorical order:
// directories before files, then lexicographic within each category.
func (d *Directory) listSorted() []string {
	sorted := make([]Entry, len(d.entries))
	copy(sorted, d.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Kind != sorted[j].Kind {
			return sorted[i].Kind == EntryDirectory
		}
		return sorted[i].Name < sorted[j].Name
	})

	names := make([]string, len(sorted))
	for i, e := range sorted {
		names[i] = e.Name
	}
	return names
}

// encode produces the Directory's self-delimiting on-disk form: an
// entry count, then each entry's length-prefixed name, inode index and
// type. No explicit trailing length is needed since the reader knows
// the entry count up front; any remaining block bytes are padding.
func (d *Directory) encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeU64(buf, uint64(len(d.entries))); err != nil {
		return nil, err
	}
	for _, e := range d.entries {
		if err := writeString(buf, e.Name); err != nil {
			return nil, err
		}
		if err := writeU64(buf, e.InodeIndex); err != nil {
			return nil, err
		}
		if err := writeU8(buf, uint8(e.Kind)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeDirectory(data []byte, inodeIndex uint64) (Directory, error) {
	r := bytes.NewReader(data)
	count, err := readU64(r)
	if err != nil {
		return Directory{}, errCorrupted("directory: truncated entry count")
	}

	d := newDirectory(inodeIndex)
	for i := uint64(0); i < count; i++ {
		name, err := readString(r)
		if err != nil {
			return Directory{}, err
		}
		idx, err := readU64(r)
		if err != nil {
			return Directory{}, errCorrupted("directory: truncated entry")
		}
		kind, err := readU8(r)
		if err != nil {
			return Directory{}, errCorrupted("directory: truncated entry type")
		}
		d.entries = append(d.entries, Entry{Name: name, InodeIndex: idx, Kind: EntryType(kind)})
	}
	d.rebuildIndex()
	return d, nil
}
