package nanofs

import (
	"bytes"
	"fmt"

	"github.com/AbhiramYakkali/NanoFS/backend"
)

// FileType distinguishes a dentry's target: a regular file or a directory.
// It is stored in the dentry, never in the inode it points at.
type FileType uint8

const (
	// TypeFile marks a dentry pointing at a regular file.
	TypeFile FileType = 0
	// TypeDirectory marks a dentry pointing at a directory.
	TypeDirectory FileType = 1
)

func (t FileType) String() string {
	if t == TypeDirectory {
		return "directory"
	}
	return "file"
}

// NameCapacity is the fixed byte width of a dentry's name field, including
// its NUL terminator; usable names are therefore at most NameCapacity-1
// bytes.
const NameCapacity = 253

// DentrySize is the fixed, packed width of one on-disk directory entry:
// inode_number (u16) + file_type (u8) + name ([NameCapacity]byte).
const DentrySize = 2 + 1 + NameCapacity

// Dentry is a (name, type, inode_number) triple stored inside a directory's
// data blocks.
type Dentry struct {
	InodeNumber int
	FileType    FileType
	Name        string
}

func (d Dentry) toBytes() []byte {
	buf := make([]byte, DentrySize)
	buf[0] = byte(d.InodeNumber)
	buf[1] = byte(d.InodeNumber >> 8)
	buf[2] = byte(d.FileType)
	copy(buf[3:], d.Name)
	return buf
}

func dentryFromBytes(b []byte) (Dentry, error) {
	if len(b) != DentrySize {
		return Dentry{}, fmt.Errorf("nanofs: dentry must be %d bytes, got %d", DentrySize, len(b))
	}
	name := b[3:]
	if nul := bytes.IndexByte(name, 0); nul >= 0 {
		name = name[:nul]
	}
	return Dentry{
		InodeNumber: int(b[0]) | int(b[1])<<8,
		FileType:    FileType(b[2]),
		Name:        string(name),
	}, nil
}

func validName(name string) error {
	if name == "" || len(name) >= NameCapacity {
		return ErrInvalidPath
	}
	for _, r := range name {
		if r == '/' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return ErrInvalidPath
		}
	}
	return nil
}

func dotEntries(self, parent int) []Dentry {
	return []Dentry{
		{InodeNumber: self, FileType: TypeDirectory, Name: "."},
		{InodeNumber: parent, FileType: TypeDirectory, Name: ".."},
	}
}

// DirectoryOps reads, appends to, and removes from the flat dentry array
// that makes up a directory inode's contents, spanning up to DirectBlocks
// data blocks.
type DirectoryOps struct {
	store  backend.BackingStore
	layout Layout
	inodes *InodeTable
	bitmap *Bitmap
}

// NewDirectoryOps builds a DirectoryOps over the given collaborators.
func NewDirectoryOps(store backend.BackingStore, layout Layout, inodes *InodeTable, bitmap *Bitmap) *DirectoryOps {
	return &DirectoryOps{store: store, layout: layout, inodes: inodes, bitmap: bitmap}
}

// Count returns the number of dentries packed into dir.
func (d *DirectoryOps) Count(dir Inode) int {
	return int(dir.FileSize) / DentrySize
}

// ReadAll reads every dentry in dir, in stored order.
func (d *DirectoryOps) ReadAll(dir Inode) ([]Dentry, error) {
	n := d.Count(dir)
	entries := make([]Dentry, 0, n)
	dpb := d.layout.DentriesPerBlock()
	for i := 0; i < n; i++ {
		blockIdx := i / dpb
		slot := i % dpb
		block := int(dir.BlockPointers[blockIdx])
		off := d.layout.DataBlockOffset(block) + int64(slot)*DentrySize
		b, err := d.store.ReadAt(off, DentrySize)
		if err != nil {
			return nil, fmt.Errorf("%w: reading dentry %d: %v", ErrIO, i, err)
		}
		entry, err := dentryFromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIO, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// writeSlot writes entry into logical dentry slot i of dir, which must
// already own the data block that slot falls in.
func (d *DirectoryOps) writeSlot(dir Inode, i int, entry Dentry) error {
	dpb := d.layout.DentriesPerBlock()
	blockIdx := i / dpb
	slot := i % dpb
	block := int(dir.BlockPointers[blockIdx])
	off := d.layout.DataBlockOffset(block) + int64(slot)*DentrySize
	if err := d.store.WriteAt(off, entry.toBytes()); err != nil {
		return fmt.Errorf("%w: writing dentry %d: %v", ErrIO, i, err)
	}
	return nil
}

// Append adds entry to the end of dirNum's directory, allocating a fresh
// data block when the current last block is full, and persists the updated
// inode. dir is mutated in place to reflect the new file_size and, if one
// was allocated, the new block pointer.
func (d *DirectoryOps) Append(dirNum int, dir *Inode, entry Dentry) error {
	dpb := d.layout.DentriesPerBlock()
	n := d.Count(*dir)

	allocatedBlock := -1
	blockIdx := n / dpb
	if n%dpb == 0 {
		if blockIdx >= DirectBlocks {
			return ErrDirTooBig
		}
		block, ok, err := d.bitmap.FindFree()
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoFreeBlocks
		}
		if err := d.bitmap.Set(block, true); err != nil {
			return err
		}
		dir.BlockPointers[blockIdx] = uint16(block)
		allocatedBlock = block
	}

	if err := d.writeSlot(*dir, n, entry); err != nil {
		if allocatedBlock >= 0 {
			_ = d.bitmap.Set(allocatedBlock, false)
			dir.BlockPointers[blockIdx] = 0
		}
		return err
	}

	dir.FileSize += DentrySize
	if err := d.inodes.Write(dirNum, *dir); err != nil {
		dir.FileSize -= DentrySize
		if allocatedBlock >= 0 {
			_ = d.bitmap.Set(allocatedBlock, false)
			dir.BlockPointers[blockIdx] = 0
		}
		return err
	}
	return nil
}

// RemoveIndex removes the dentry at logical slot i via swap-with-last
// compaction: the last entry is copied into slot i (unless i is already
// last), file_size shrinks by one dentry, and if that empties the trailing
// data block, the block is freed and its pointer cleared. dir is mutated
// in place and the updated inode is persisted.
func (d *DirectoryOps) RemoveIndex(dirNum int, dir *Inode, i int) error {
	dpb := d.layout.DentriesPerBlock()
	n := d.Count(*dir)
	if i < 0 || i >= n {
		return fmt.Errorf("nanofs: dentry index %d out of range [0,%d)", i, n)
	}

	last := n - 1
	if i != last {
		lastEntries, err := d.ReadAll(*dir)
		if err != nil {
			return err
		}
		if err := d.writeSlot(*dir, i, lastEntries[last]); err != nil {
			return err
		}
	}

	freedBlock := -1
	freedBlockIdx := -1
	if last%dpb == 0 {
		freedBlockIdx = last / dpb
		freedBlock = int(dir.BlockPointers[freedBlockIdx])
	}

	dir.FileSize -= DentrySize
	if freedBlock >= 0 {
		if err := d.bitmap.Set(freedBlock, false); err != nil {
			return err
		}
		dir.BlockPointers[freedBlockIdx] = 0
	}
	if err := d.inodes.Write(dirNum, *dir); err != nil {
		return err
	}
	return nil
}

// FindByName looks for a dentry matching both name and expectedType,
// returning its logical index.
func (d *DirectoryOps) FindByName(dir Inode, name string, expectedType FileType) (int, bool, error) {
	entries, err := d.ReadAll(dir)
	if err != nil {
		return 0, false, err
	}
	for i, e := range entries {
		if e.Name == name && e.FileType == expectedType {
			return i, true, nil
		}
	}
	return 0, false, nil
}

// FindByNameAny looks for a dentry matching name regardless of type. It
// backs the tightened name-uniqueness invariant (a name may exist as at
// most one entry per directory, of either type) that create/mkdir enforce.
func (d *DirectoryOps) FindByNameAny(dir Inode, name string) (Dentry, bool, error) {
	entries, err := d.ReadAll(dir)
	if err != nil {
		return Dentry{}, false, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, true, nil
		}
	}
	return Dentry{}, false, nil
}
