package nanofs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/AbhiramYakkali/NanoFS/backend"
)

// DirectBlocks is the number of direct block pointers an inode holds.
// nanofs has no indirect blocks, so this is also the hard per-file block
// cap (see ErrFileTooBig / ErrDirTooBig).
const DirectBlocks = 12

// InodeSize is the fixed, packed width of one on-disk inode record:
// file_size (u16) + 12 block pointers (u16 each) + is_used (u8).
const InodeSize = 2 + DirectBlocks*2 + 1

// RootInode is the inode number of the root directory. It always owns data
// block 0 and is always in use.
const RootInode = 0

// Inode is the fixed-size record describing one file or directory. Its
// file type is deliberately not stored here; the parent directory's dentry
// carries it instead (see Dentry).
type Inode struct {
	FileSize      uint16
	BlockPointers [DirectBlocks]uint16
	IsUsed        bool
}

func (i Inode) toBytes() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, i.FileSize)
	_ = binary.Write(buf, binary.LittleEndian, i.BlockPointers)
	used := byte(0)
	if i.IsUsed {
		used = 1
	}
	buf.WriteByte(used)
	return buf.Bytes()
}

func inodeFromBytes(b []byte) (Inode, error) {
	if len(b) != InodeSize {
		return Inode{}, fmt.Errorf("nanofs: inode record must be %d bytes, got %d", InodeSize, len(b))
	}
	var i Inode
	r := bytes.NewReader(b)
	if err := binary.Read(r, binary.LittleEndian, &i.FileSize); err != nil {
		return Inode{}, fmt.Errorf("nanofs: decode inode file_size: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &i.BlockPointers); err != nil {
		return Inode{}, fmt.Errorf("nanofs: decode inode block_pointers: %w", err)
	}
	usedByte, err := r.ReadByte()
	if err != nil {
		return Inode{}, fmt.Errorf("nanofs: decode inode is_used: %w", err)
	}
	i.IsUsed = usedByte != 0
	return i, nil
}

// InodeTable is positional I/O over the fixed-size inode records, plus the
// free-slot scan used to allocate new inodes.
type InodeTable struct {
	store  backend.BackingStore
	layout Layout
}

// NewInodeTable builds an InodeTable reading and writing through store at
// the offsets layout computes.
func NewInodeTable(store backend.BackingStore, layout Layout) *InodeTable {
	return &InodeTable{store: store, layout: layout}
}

// Read returns inode record n.
func (t *InodeTable) Read(n int) (Inode, error) {
	b, err := t.store.ReadAt(t.layout.InodeOffset(n), InodeSize)
	if err != nil {
		return Inode{}, fmt.Errorf("%w: reading inode %d: %v", ErrIO, n, err)
	}
	inode, err := inodeFromBytes(b)
	if err != nil {
		return Inode{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return inode, nil
}

// Write persists inode record n.
func (t *InodeTable) Write(n int, inode Inode) error {
	if err := t.store.WriteAt(t.layout.InodeOffset(n), inode.toBytes()); err != nil {
		return fmt.Errorf("%w: writing inode %d: %v", ErrIO, n, err)
	}
	return nil
}

// FindFree returns the first unused inode number at index >= 1; index 0 is
// permanently reserved for the root directory.
func (t *InodeTable) FindFree() (int, bool, error) {
	for n := 1; n < int(t.layout.sb.InodeCount); n++ {
		inode, err := t.Read(n)
		if err != nil {
			return 0, false, err
		}
		if !inode.IsUsed {
			return n, true, nil
		}
	}
	return 0, false, nil
}

// Free marks inode n unused and clears its block pointers. The caller must
// have already released n's data blocks back to the bitmap.
func (t *InodeTable) Free(n int) error {
	return t.Write(n, Inode{})
}
