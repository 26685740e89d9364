package minifs

import (
	"log"
	"strings"
)

// FileSystem is the aggregate controller: it owns the disk and every
// in-memory structure layered over it, and is the only thing callers
// touch directly.
type FileSystem struct {
	disk BlockDevice

	super       SuperBlock
	inodeBitmap inodeBitmap
	dataBitmap  dataBitmap
	inodeTable  InodeTable
	dataArea    dataArea

	layout layout
}

// New constructs the in-memory structures for a fresh geometry. It
// does not touch disk; call Format or Mount next.
func New(disk BlockDevice, opts ...Option) *FileSystem {
	l := layout{totalBlocks: DefaultTotalBlocks, totalInodes: DefaultTotalInodes}
	for _, opt := range opts {
		opt(&l)
	}
	l = computeLayout(l.totalBlocks, l.totalInodes)

	return &FileSystem{
		disk:        disk,
		layout:      l,
		inodeBitmap: newInodeBitmap(l.totalInodes, l.inodeBitmapStart),
		dataBitmap:  newDataBitmap(l.totalBlocks-l.dataStart, l.dataBitmapStart),
		inodeTable:  newInodeTable(l.inodeTableStart, l.totalInodes, l.inodeTableSpan),
		dataArea:    newDataArea(l.dataStart, l.totalBlocks-l.dataStart),
		super:       newSuperBlock(l, l.totalBlocks-l.dataStart, l.totalInodes),
	}
}

// Format reinitializes every in-memory structure, carves out the root
// directory at inode 0, and syncs. It may be called in any state and
// always leaves the filesystem Mounted and dirty until the trailing
// Sync clears that.
func (f *FileSystem) Format() error {
	log.Printf("minifs: formatting, blocks=%d inodes=%d", f.layout.totalBlocks, f.layout.totalInodes)
	l := f.layout
	f.inodeBitmap = newInodeBitmap(l.totalInodes, l.inodeBitmapStart)
	f.dataBitmap = newDataBitmap(l.totalBlocks-l.dataStart, l.dataBitmapStart)
	f.inodeTable = newInodeTable(l.inodeTableStart, l.totalInodes, l.inodeTableSpan)
	f.dataArea = newDataArea(l.dataStart, l.totalBlocks-l.dataStart)

	if err := f.inodeBitmap.allocSpecific(0); err != nil {
		return err
	}
	f.inodeTable.inodes[0] = newInode(TypeDirectory, 0, 0, 0o755)
	f.inodeTable.inodes[0].LinkCount = 2

	root := newDirectory(0)
	if err := root.add(0, ".", EntryDirectory); err != nil {
		return err
	}
	if err := root.add(0, "..", EntryDirectory); err != nil {
		return err
	}

	rootBlock, err := f.allocDataBlock()
	if err != nil {
		return err
	}
	if err := f.writeDirectoryBlock(rootBlock, &root); err != nil {
		return err
	}

	rootIno := &f.inodeTable.inodes[0]
	if err := rootIno.addBlock(rootBlock); err != nil {
		return err
	}
	encoded, err := root.encode()
	if err != nil {
		return err
	}
	rootIno.Size = uint64(len(encoded))
	rootIno.touch()

	f.super = newSuperBlock(l, f.dataBitmap.freeCount(), f.inodeBitmap.freeCount())
	f.super.Mounted = true
	f.super.Dirty = true

	return f.Sync()
}

// Mount reads the superblock first, then loads the other persisted
// structures in the order Sync writes them. It does not create the
// root; Format must have run at some point in the image's history.
func (f *FileSystem) Mount() error {
	super, err := loadSuperBlock(f.disk)
	if err != nil {
		return err
	}
	log.Printf("minifs: mounting, root=%d free_blocks=%d free_inodes=%d", super.RootInode, super.FreeBlocks, super.FreeInodes)
	f.super = super
	f.layout = computeLayout(super.TotalBlocks, super.TotalInodes)

	if f.inodeBitmap, err = loadInodeBitmap(f.disk, super.InodeBitmapStart, super.TotalInodes); err != nil {
		return err
	}
	dataBlocks := super.TotalBlocks - super.DataStart
	if f.dataBitmap, err = loadDataBitmap(f.disk, super.DataBitmapStart, dataBlocks); err != nil {
		return err
	}
	if f.inodeTable, err = loadInodeTable(f.disk, super.InodeTableStart, super.TotalInodes, f.layout.inodeTableSpan); err != nil {
		return err
	}
	f.dataArea = newDataArea(super.DataStart, dataBlocks)
	if err := f.dataArea.load(f.disk); err != nil {
		return err
	}

	f.super.Mounted = true
	return nil
}

// Unmount flushes pending changes if dirty and marks the filesystem
// unmounted.
func (f *FileSystem) Unmount() error {
	if f.super.Dirty {
		if err := f.Sync(); err != nil {
			return err
		}
	}
	f.super.Mounted = false
	return nil
}

// Sync writes every dirty structure back in a fixed order — inode
// bitmap, data bitmap, inode table, data area, then the superblock —
// and clears the dirty flag.
func (f *FileSystem) Sync() error {
	if err := f.checkBitmapInvariants(); err != nil {
		return err
	}
	if err := f.inodeBitmap.sync(f.disk); err != nil {
		return err
	}
	if err := f.dataBitmap.sync(f.disk); err != nil {
		return err
	}
	if err := f.inodeTable.sync(f.disk); err != nil {
		return err
	}
	if err := f.dataArea.sync(f.disk); err != nil {
		return err
	}

	f.super.FreeBlocks = f.dataBitmap.freeCount()
	f.super.FreeInodes = f.inodeBitmap.freeCount()
	f.super.Dirty = false
	return f.super.sync(f.disk)
}

// checkBitmapInvariants verifies popcount(bits) + free == total for both
// bitmaps before they're written out, catching a torn alloc/free pair
// before it reaches disk rather than after a later Mount decodes a
// bitmap that disagrees with its own free counter.
func (f *FileSystem) checkBitmapInvariants() error {
	if f.inodeBitmap.popcount()+f.inodeBitmap.freeCount() != f.inodeBitmap.set.total {
		return errCorrupted("inode bitmap: popcount and free count disagree with total")
	}
	if f.dataBitmap.popcount()+f.dataBitmap.freeCount() != f.dataBitmap.set.total {
		return errCorrupted("data bitmap: popcount and free count disagree with total")
	}
	for i := uint64(0); i < f.inodeTable.total(); i++ {
		ino, err := f.inodeTable.get(i)
		if err != nil {
			return err
		}
		if ino.isFree() == f.inodeBitmap.isUsed(i) {
			return errCorrupted("inode bitmap: free/used bit disagrees with inode table slot")
		}
	}
	return nil
}

// allocDataBlock grants a relative index from the data-block bitmap
// and returns it as an absolute image block id.
func (f *FileSystem) allocDataBlock() (uint64, error) {
	rel, ok := f.dataBitmap.alloc()
	if !ok {
		return 0, ErrDiskFull
	}
	return rel + f.super.DataStart, nil
}

func (f *FileSystem) freeDataBlock(absID uint64) {
	f.dataBitmap.free(absID - f.super.DataStart)
}

func (f *FileSystem) writeDirectoryBlock(absID uint64, dir *Directory) error {
	encoded, err := dir.encode()
	if err != nil {
		return err
	}
	if len(encoded) > BlockSize {
		return errCorrupted("directory: encoded form exceeds one block")
	}
	return f.dataArea.writeBlock(absID, encoded)
}

func (f *FileSystem) readDirectoryAt(inodeIdx uint64) (Directory, error) {
	ino, err := f.inodeTable.get(inodeIdx)
	if err != nil {
		return Directory{}, err
	}
	if ino.Kind != TypeDirectory {
		return Directory{}, errNotADirectory(ino.ID)
	}
	block := ino.Direct[0]
	if block == 0 {
		return Directory{}, errCorrupted("directory: missing data block")
	}
	data := f.dataArea.readBlock(block)
	if data == nil {
		return Directory{}, errCorrupted("directory: data block out of range")
	}
	return decodeDirectory(data, inodeIdx)
}

// findInode resolves an absolute path to an inode index. "/" resolves
// to the root, inode 0.
func (f *FileSystem) findInode(path string) (uint64, error) {
	if !strings.HasPrefix(path, "/") {
		return 0, errInvalidPath(path)
	}
	if path == "/" {
		return 0, nil
	}

	cur := uint64(0)
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		ino, err := f.inodeTable.get(cur)
		if err != nil {
			return 0, err
		}
		if ino.Kind != TypeDirectory {
			return 0, errNotADirectory(path)
		}
		dir, err := f.readDirectoryAt(cur)
		if err != nil {
			return 0, err
		}
		next, ok := dir.find(seg)
		if !ok {
			return 0, errNotFound(path)
		}
		if i != len(segments)-1 {
			if isDir, _ := dir.isDirectory(seg); !isDir {
				return 0, errNotADirectory(path)
			}
		}
		cur = next
	}
	return cur, nil
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// addDirectoryEntry inserts (name -> childIdx) into the directory at
// parentPath's data block, updating the parent inode's size and
// timestamps.
func (f *FileSystem) addDirectoryEntry(parentPath, name string, childIdx uint64, kind EntryType) error {
	parentIdx, err := f.findInode(parentPath)
	if err != nil {
		return err
	}
	parentIno, err := f.inodeTable.get(parentIdx)
	if err != nil {
		return err
	}
	if parentIno.Kind != TypeDirectory {
		return errNotADirectory(parentPath)
	}
	block := parentIno.Direct[0]
	if block == 0 {
		return errCorrupted("directory: parent has no data block")
	}

	dir, err := f.readDirectoryAt(parentIdx)
	if err != nil {
		return err
	}
	if err := dir.add(childIdx, name, kind); err != nil {
		return errAlreadyExists(joinPath(parentPath, name))
	}
	if err := f.writeDirectoryBlock(block, &dir); err != nil {
		return err
	}

	encoded, err := dir.encode()
	if err != nil {
		return err
	}
	parentIno.Size = uint64(len(encoded))
	parentIno.touch()
	return nil
}

func (f *FileSystem) removeDirectoryEntry(parentIdx uint64, name string) (uint64, error) {
	parentIno, err := f.inodeTable.get(parentIdx)
	if err != nil {
		return 0, err
	}
	block := parentIno.Direct[0]

	dir, err := f.readDirectoryAt(parentIdx)
	if err != nil {
		return 0, err
	}
	childIdx, ok := dir.remove(name)
	if !ok {
		return 0, errNotFound(name)
	}
	if err := f.writeDirectoryBlock(block, &dir); err != nil {
		return 0, err
	}

	encoded, err := dir.encode()
	if err != nil {
		return 0, err
	}
	parentIno.Size = uint64(len(encoded))
	parentIno.touch()
	return childIdx, nil
}

// CreateDir creates a new, empty subdirectory named name under
// parentPath.
func (f *FileSystem) CreateDir(parentPath, name string) (uint64, error) {
	parentIdx, err := f.findInode(parentPath)
	if err != nil {
		return 0, err
	}
	if ino, err := f.inodeTable.get(parentIdx); err != nil {
		return 0, err
	} else if ino.Kind != TypeDirectory {
		return 0, errNotADirectory(parentPath)
	}
	if _, err := f.findInode(joinPath(parentPath, name)); err == nil {
		return 0, errAlreadyExists(joinPath(parentPath, name))
	}

	childIdx, ok := f.inodeTable.allocInode(&f.inodeBitmap, TypeDirectory, 0, 0, 0o755)
	if !ok {
		return 0, ErrInodeFull
	}

	newDir := newDirectory(childIdx)
	newDir.add(childIdx, ".", EntryDirectory)
	newDir.add(childIdx, "..", EntryDirectory)

	block, err := f.allocDataBlock()
	if err != nil {
		f.inodeTable.freeInode(&f.inodeBitmap, childIdx)
		return 0, err
	}
	if err := f.writeDirectoryBlock(block, &newDir); err != nil {
		return 0, err
	}

	childIno, err := f.inodeTable.get(childIdx)
	if err != nil {
		return 0, err
	}
	if err := childIno.addBlock(block); err != nil {
		return 0, err
	}
	encoded, err := newDir.encode()
	if err != nil {
		return 0, err
	}
	childIno.Size = uint64(len(encoded))
	childIno.LinkCount = 2
	childIno.touch()

	if err := f.addDirectoryEntry(parentPath, name, childIdx, entryTypeFor(TypeDirectory)); err != nil {
		return 0, err
	}

	// The parent gains one link for every direct child directory (the
	// classic Unix count), on top of the one its own entry in its own
	// parent holds. The child's own ".." entry records the child's
	// index, not the parent's.
	parentIno, err := f.inodeTable.get(parentIdx)
	if err != nil {
		return 0, err
	}
	parentIno.LinkCount++
	parentIno.touch()

	f.super.Dirty = true
	return childIdx, nil
}

// CreateFile creates a new, empty file named name under parentPath. No
// data block is allocated until content is written.
func (f *FileSystem) CreateFile(parentPath, name string) (uint64, error) {
	parentIdx, err := f.findInode(parentPath)
	if err != nil {
		return 0, err
	}
	if ino, err := f.inodeTable.get(parentIdx); err != nil {
		return 0, err
	} else if ino.Kind != TypeDirectory {
		return 0, errNotADirectory(parentPath)
	}
	if _, err := f.findInode(joinPath(parentPath, name)); err == nil {
		return 0, errAlreadyExists(joinPath(parentPath, name))
	}

	childIdx, ok := f.inodeTable.allocInode(&f.inodeBitmap, TypeFile, 0, 0, 0o644)
	if !ok {
		return 0, ErrInodeFull
	}

	if err := f.addDirectoryEntry(parentPath, name, childIdx, entryTypeFor(TypeFile)); err != nil {
		f.inodeTable.freeInode(&f.inodeBitmap, childIdx)
		return 0, err
	}

	f.super.Dirty = true
	return childIdx, nil
}

// freeFileBlocks releases every data block an inode owns (direct,
// indirect, double-indirect — whichever are set) and clears its
// pointers.
func (f *FileSystem) freeFileBlocks(ino *Inode) {
	for _, b := range ino.blocks() {
		f.freeDataBlock(b)
	}
	ino.clearBlocks()
}

// WriteFile overwrites the content of an existing file at path,
// replacing whatever blocks it previously owned. Content longer than
// one block is rejected: indirect-block addressing is reserved in the
// inode layout but not realized.
func (f *FileSystem) WriteFile(path string, content []byte) error {
	if len(content) > BlockSize {
		return errCorrupted("write_file: content exceeds one block")
	}

	idx, err := f.findInode(path)
	if err != nil {
		return err
	}
	ino, err := f.inodeTable.get(idx)
	if err != nil {
		return err
	}
	if ino.Kind != TypeFile {
		return errIsADirectory(path)
	}

	f.freeFileBlocks(ino)

	if len(content) > 0 {
		block, err := f.allocDataBlock()
		if err != nil {
			return err
		}
		if err := f.dataArea.writeBlock(block, content); err != nil {
			return err
		}
		if err := ino.addBlock(block); err != nil {
			return err
		}
	}
	ino.Size = uint64(len(content))
	ino.touch()
	f.super.Dirty = true
	return nil
}

// CreateOrWriteFile writes content to parentPath/name, creating the
// file first if it does not already exist.
func (f *FileSystem) CreateOrWriteFile(parentPath, name string, content []byte) (uint64, error) {
	full := joinPath(parentPath, name)
	if idx, err := f.findInode(full); err == nil {
		return idx, f.WriteFile(full, content)
	}
	idx, err := f.CreateFile(parentPath, name)
	if err != nil {
		return 0, err
	}
	return idx, f.WriteFile(full, content)
}

// ReadFile reads the full contents of dirPath/name.
func (f *FileSystem) ReadFile(dirPath, name string) ([]byte, error) {
	full := joinPath(dirPath, name)
	idx, err := f.findInode(full)
	if err != nil {
		return nil, err
	}
	ino, err := f.inodeTable.get(idx)
	if err != nil {
		return nil, err
	}
	if ino.Kind != TypeFile {
		return nil, errIsADirectory(full)
	}
	if ino.Direct[0] == 0 {
		return []byte{}, nil
	}
	data := f.dataArea.readBlock(ino.Direct[0])
	if data == nil {
		return nil, errCorrupted("read_file: data block out of range")
	}
	if ino.Size > BlockSize {
		return nil, errCorrupted("read_file: inode size exceeds one block")
	}
	out := make([]byte, ino.Size)
	copy(out, data[:ino.Size])
	return out, nil
}

// DeleteFile removes dirPath/name, freeing its inode and blocks.
func (f *FileSystem) DeleteFile(dirPath, name string) error {
	full := joinPath(dirPath, name)
	idx, err := f.findInode(full)
	if err != nil {
		return err
	}
	ino, err := f.inodeTable.get(idx)
	if err != nil {
		return err
	}
	if ino.Kind != TypeFile {
		return errIsADirectory(full)
	}

	parentIdx, err := f.findInode(dirPath)
	if err != nil {
		return err
	}

	ino.LinkCount = 0
	f.freeFileBlocks(ino)
	f.inodeTable.freeInode(&f.inodeBitmap, idx)
	if _, err := f.removeDirectoryEntry(parentIdx, name); err != nil {
		return err
	}

	f.super.Dirty = true
	return nil
}

// DeleteDir removes the empty subdirectory dirPath/name. Non-empty
// directories (anything beyond "." and "..") are rejected.
func (f *FileSystem) DeleteDir(dirPath, name string) error {
	full := joinPath(dirPath, name)
	idx, err := f.findInode(full)
	if err != nil {
		return err
	}
	ino, err := f.inodeTable.get(idx)
	if err != nil {
		return err
	}
	if ino.Kind != TypeDirectory {
		return errNotADirectory(full)
	}

	dir, err := f.readDirectoryAt(idx)
	if err != nil {
		return err
	}
	if dir.count() > 2 {
		return errDirectoryNotEmpty(full)
	}

	parentIdx, err := f.findInode(dirPath)
	if err != nil {
		return err
	}

	ino.LinkCount = 0
	f.freeFileBlocks(ino)
	f.inodeTable.freeInode(&f.inodeBitmap, idx)
	if _, err := f.removeDirectoryEntry(parentIdx, name); err != nil {
		return err
	}

	// Undo the link CreateDir gave the parent for this subdirectory.
	parentIno, err := f.inodeTable.get(parentIdx)
	if err != nil {
		return err
	}
	parentIno.LinkCount--
	parentIno.touch()

	f.super.Dirty = true
	return nil
}

// ListDir returns the names in path's directory block sorted with
// directories first, then lexicographically within each category.
func (f *FileSystem) ListDir(path string) ([]string, error) {
	idx, err := f.findInode(path)
	if err != nil {
		return nil, err
	}
	ino, err := f.inodeTable.get(idx)
	if err != nil {
		return nil, err
	}
	if ino.Kind != TypeDirectory {
		return nil, errNotADirectory(path)
	}

	dir, err := f.readDirectoryAt(idx)
	if err != nil {
		return nil, err
	}
	return dir.listSorted(), nil
}

// Stat resolves dirPath/name and returns a copy of its inode.
func (f *FileSystem) Stat(dirPath, name string) (Inode, error) {
	full := joinPath(dirPath, name)
	idx, err := f.findInode(full)
	if err != nil {
		return Inode{}, err
	}
	ino, err := f.inodeTable.get(idx)
	if err != nil {
		return Inode{}, err
	}
	return *ino, nil
}

// Open validates path against flags and returns a handle with its
// initial offset. No subsequent read/write/seek/close API exists on
// the handle: open is validation plus offset initialization only.
func (f *FileSystem) Open(path string, flags OpenFlags) (FileHandle, error) {
	idx, err := f.findInode(path)
	if err != nil {
		if unwrapKind(err, KindNotFound) && flags.Has(OpenCreate) {
			dir, name := splitParent(path)
			idx, err = f.CreateFile(dir, name)
			if err != nil {
				return FileHandle{}, err
			}
		} else {
			return FileHandle{}, err
		}
	}

	ino, err := f.inodeTable.get(idx)
	if err != nil {
		return FileHandle{}, err
	}
	if ino.Kind == TypeDirectory {
		return FileHandle{}, errIsADirectory(path)
	}

	if flags.Has(OpenTrunc) && flags.Has(OpenWrite) {
		if err := f.truncateFile(ino); err != nil {
			return FileHandle{}, err
		}
	}

	if flags.Has(OpenRead) && ino.Perm&0o400 == 0 {
		return FileHandle{}, ErrPermissionDenied
	}
	if flags.Has(OpenWrite) && ino.Perm&0o200 == 0 {
		return FileHandle{}, ErrPermissionDenied
	}

	offset := uint64(0)
	if flags.Has(OpenAppend) {
		offset = ino.Size
	}

	return FileHandle{InodeID: idx, Offset: offset, Flags: flags}, nil
}

func (f *FileSystem) truncateFile(ino *Inode) error {
	f.freeFileBlocks(ino)
	ino.Size = 0
	ino.touch()
	f.super.Dirty = true
	return nil
}

// splitParent splits an absolute path into its parent directory and
// final component, the way open(..., CREATE) needs to hand off to
// CreateFile.
func splitParent(path string) (dir, name string) {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "/", path[idx+1:]
	}
	return path[:idx], path[idx+1:]
}
