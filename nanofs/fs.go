// Package nanofs implements the on-disk filesystem core described by the
// NanoFS format: a fixed superblock/inode-table/bitmap/data layout, inode
// and block allocation, a flat directory representation, and the
// path-resolution/mutation protocol that keeps them all consistent.
//
// The package is strictly single-threaded and synchronous: an FsApi value
// owns its BackingStore exclusively, and every operation runs to
// completion before the next one is issued. There is no locking because
// there is no sharing.
package nanofs

import (
	"fmt"

	"github.com/AbhiramYakkali/NanoFS/backend"
)

// State is the FsApi's own mount lifecycle.
type State int

const (
	// StateUnmounted means no valid superblock has been loaded; only
	// Init is legal.
	StateUnmounted State = iota
	// StateMounting is transient, held only while a superblock is being
	// read from the image during Mount.
	StateMounting
	// StateMounted is the normal operating state.
	StateMounted
)

// FsApi is the process-local mount state (current superblock and cwd) plus
// every filesystem operation NanoFS exposes. It is not safe for concurrent
// use; callers drive one operation to completion before starting the next.
type FsApi struct {
	store backend.BackingStore
	state State

	layout   Layout
	bitmap   *Bitmap
	inodes   *InodeTable
	dirs     *DirectoryOps
	resolver *PathResolver

	cwd int
}

// New returns an FsApi in StateUnmounted over store. Call Init or Mount
// before issuing any other operation.
func New(store backend.BackingStore) *FsApi {
	return &FsApi{store: store, state: StateUnmounted}
}

func (fs *FsApi) wireComponents(sb Superblock) {
	fs.layout = NewLayout(sb)
	fs.bitmap = NewBitmap(fs.store, fs.layout)
	fs.inodes = NewInodeTable(fs.store, fs.layout)
	fs.dirs = NewDirectoryOps(fs.store, fs.layout, fs.inodes, fs.bitmap)
	fs.resolver = NewPathResolver(fs.inodes, fs.dirs)
}

// Init formats the image with a fresh superblock, a zeroed inode table with
// inode 0 marked as the root directory, a zeroed bitmap with bit 0 set, and
// a zeroed data region whose block 0 holds root's "." and ".." entries. It
// is legal from any state and, on success, leaves the FsApi StateMounted at
// cwd 0, regardless of what state it started in. On error the state is
// left unchanged.
func (fs *FsApi) Init(sb Superblock) error {
	fs.wireComponents(sb)

	if err := fs.store.Truncate(fs.layout.ImageSize()); err != nil {
		return err
	}
	if err := fs.store.WriteAt(0, sb.toBytes()); err != nil {
		return fmt.Errorf("%w: writing superblock: %v", ErrIO, err)
	}

	root := Inode{FileSize: uint16(2 * DentrySize), IsUsed: true}
	root.BlockPointers[0] = 0
	if err := fs.inodes.Write(RootInode, root); err != nil {
		return err
	}
	for n := 1; n < int(sb.InodeCount); n++ {
		if err := fs.inodes.Write(n, Inode{}); err != nil {
			return err
		}
	}

	zero := make([]byte, fs.layout.BitmapSize())
	if err := fs.store.WriteAt(fs.layout.BitmapOffset(), zero); err != nil {
		return fmt.Errorf("%w: zeroing bitmap: %v", ErrIO, err)
	}
	if err := fs.bitmap.Set(0, true); err != nil {
		return err
	}

	zeroBlock := make([]byte, sb.BlockSize)
	for b := 0; b < int(sb.BlockCount); b++ {
		if err := fs.store.WriteAt(fs.layout.DataBlockOffset(b), zeroBlock); err != nil {
			return fmt.Errorf("%w: zeroing data block %d: %v", ErrIO, b, err)
		}
	}
	for i, entry := range dotEntries(RootInode, RootInode) {
		off := fs.layout.DataBlockOffset(0) + int64(i)*DentrySize
		if err := fs.store.WriteAt(off, entry.toBytes()); err != nil {
			return fmt.Errorf("%w: writing root dentry %d: %v", ErrIO, i, err)
		}
	}

	fs.cwd = RootInode
	fs.state = StateMounted
	return nil
}

// Mount reads the existing superblock at offset 0 of store and wires the
// layer stack to it, resetting cwd to the root. It fails with
// ErrImageMissing if the superblock cannot be read.
func (fs *FsApi) Mount() error {
	fs.state = StateMounting
	b, err := fs.store.ReadAt(0, SuperblockSize)
	if err != nil {
		fs.state = StateUnmounted
		return fmt.Errorf("%w: %v", ErrImageMissing, err)
	}
	sb, err := superblockFromBytes(b)
	if err != nil {
		fs.state = StateUnmounted
		return fmt.Errorf("%w: %v", ErrImageMissing, err)
	}
	fs.wireComponents(sb)
	fs.cwd = RootInode
	fs.state = StateMounted
	return nil
}

func (fs *FsApi) requireMounted() error {
	if fs.state != StateMounted {
		return ErrNotMounted
	}
	return nil
}

// Ls returns the dentries of cwd in stored order (the contract the spec
// calls "print names ... in stored order, space-separated" — NanoFS
// returns the list and leaves joining/printing to the caller).
func (fs *FsApi) Ls() ([]Dentry, error) {
	if err := fs.requireMounted(); err != nil {
		return nil, err
	}
	cwdInode, err := fs.inodes.Read(fs.cwd)
	if err != nil {
		return nil, err
	}
	return fs.dirs.ReadAll(cwdInode)
}

// allocateNode picks the first free inode and allocates one data block for a
// new file or directory, in that order. The inode is not marked used here
// (the caller persists it), so a failure leaves nothing allocated.
func (fs *FsApi) allocateNode() (inodeNum int, block int, err error) {
	inodeNum, ok, err := fs.inodes.FindFree()
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, ErrNoFreeInodes
	}
	block, ok, err = fs.bitmap.FindFree()
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, ErrNoFreeBlocks
	}
	if err := fs.bitmap.Set(block, true); err != nil {
		return 0, 0, err
	}
	return inodeNum, block, nil
}

// Create creates a new, empty regular file at path. path must resolve
// ResolveParentOnly; a leaf that already exists under any type is
// ErrExist (see the directory.go doc comment on FindByNameAny for why
// this is stricter than a type-filtered lookup alone would give).
func (fs *FsApi) Create(path string) error {
	return fs.createNode(path, TypeFile)
}

// Mkdir creates a new, empty directory at path, wired up with "." and
// ".." entries pointing at itself and its parent.
func (fs *FsApi) Mkdir(path string) error {
	return fs.createNode(path, TypeDirectory)
}

func (fs *FsApi) createNode(path string, kind FileType) error {
	if err := fs.requireMounted(); err != nil {
		return err
	}
	res, err := fs.resolver.Resolve(fs.cwd, path, kind)
	if err != nil {
		return err
	}
	if res.Kind == ResolveNotFound {
		return ErrNotExist
	}
	if res.Kind == ResolveFound {
		return ErrExist
	}
	parent, leaf := res.ParentInode, res.LeafName

	parentInode, err := fs.inodes.Read(parent)
	if err != nil {
		return err
	}
	if _, found, err := fs.dirs.FindByNameAny(parentInode, leaf); err != nil {
		return err
	} else if found {
		// name exists under the other type; the tightened invariant
		// (see directory.go's FindByNameAny doc comment) forbids this
		return ErrExist
	}

	inodeNum, block, err := fs.allocateNode()
	if err != nil {
		return err
	}

	var newInode Inode
	newInode.IsUsed = true
	newInode.BlockPointers[0] = uint16(block)
	if kind == TypeDirectory {
		newInode.FileSize = uint16(2 * DentrySize)
	}
	if err := fs.inodes.Write(inodeNum, newInode); err != nil {
		_ = fs.bitmap.Set(block, false)
		return err
	}

	if kind == TypeDirectory {
		for i, entry := range dotEntries(inodeNum, parent) {
			off := fs.layout.DataBlockOffset(block) + int64(i)*DentrySize
			if err := fs.store.WriteAt(off, entry.toBytes()); err != nil {
				_ = fs.inodes.Free(inodeNum)
				_ = fs.bitmap.Set(block, false)
				return fmt.Errorf("%w: writing %q dentry: %v", ErrIO, entry.Name, err)
			}
		}
	}

	// re-read: Append mutates its Inode argument in place, and parentInode
	// above was read before this node's own inode/dentry were persisted
	if parentInode, err = fs.inodes.Read(parent); err != nil {
		_ = fs.inodes.Free(inodeNum)
		_ = fs.bitmap.Set(block, false)
		return err
	}
	if err := fs.dirs.Append(parent, &parentInode, Dentry{InodeNumber: inodeNum, FileType: kind, Name: leaf}); err != nil {
		_ = fs.inodes.Free(inodeNum)
		_ = fs.bitmap.Set(block, false)
		return err
	}
	return nil
}

// Write overwrites the file at path with bytes, truncating it first. bytes
// must fit in a single data block; an empty slice truncates the file to
// zero length without releasing its already-assigned block.
func (fs *FsApi) Write(path string, data []byte) error {
	if err := fs.requireMounted(); err != nil {
		return err
	}
	if len(data) > int(fs.layout.sb.BlockSize) {
		return ErrFileTooBig
	}
	res, err := fs.resolver.Resolve(fs.cwd, path, TypeFile)
	if err != nil {
		return err
	}
	if res.Kind != ResolveFound {
		return ErrNotExist
	}
	inode, err := fs.inodes.Read(res.Inode)
	if err != nil {
		return err
	}
	off := fs.layout.DataBlockOffset(int(inode.BlockPointers[0]))
	if err := fs.store.WriteAt(off, data); err != nil {
		return fmt.Errorf("%w: writing %q: %v", ErrIO, path, err)
	}
	inode.FileSize = uint16(len(data))
	return fs.inodes.Write(res.Inode, inode)
}

// Read returns the first file_size bytes of block_pointers[0] for the file
// at path. Like Write, it only ever touches the first direct block; Open
// is the operation that walks every block a file spanning up to
// DirectBlocks blocks may own.
func (fs *FsApi) Read(path string) ([]byte, error) {
	if err := fs.requireMounted(); err != nil {
		return nil, err
	}
	res, err := fs.resolver.Resolve(fs.cwd, path, TypeFile)
	if err != nil {
		return nil, err
	}
	if res.Kind != ResolveFound {
		return nil, ErrNotExist
	}
	inode, err := fs.inodes.Read(res.Inode)
	if err != nil {
		return nil, err
	}
	off := fs.layout.DataBlockOffset(int(inode.BlockPointers[0]))
	b, err := fs.store.ReadAt(off, int(inode.FileSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %v", ErrIO, path, err)
	}
	return b, nil
}

// Rm removes the file at path: every block it owns is freed, its inode is
// marked unused, and its dentry is removed from its parent via
// swap-delete. Directories are not supported.
func (fs *FsApi) Rm(path string) error {
	if err := fs.requireMounted(); err != nil {
		return err
	}
	res, err := fs.resolver.Resolve(fs.cwd, path, TypeFile)
	if err != nil {
		return err
	}
	if res.Kind != ResolveFound {
		return ErrNotExist
	}

	target, err := fs.inodes.Read(res.Inode)
	if err != nil {
		return err
	}
	for _, ptr := range target.BlockPointers {
		if ptr != 0 {
			if err := fs.bitmap.Set(int(ptr), false); err != nil {
				return err
			}
		}
	}
	if err := fs.inodes.Free(res.Inode); err != nil {
		return err
	}

	parentInode, err := fs.inodes.Read(res.ParentInode)
	if err != nil {
		return err
	}
	idx, found, err := fs.dirs.FindByName(parentInode, res.LeafName, TypeFile)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotExist
	}
	return fs.dirs.RemoveIndex(res.ParentInode, &parentInode, idx)
}

// Cd changes cwd to the directory at path.
func (fs *FsApi) Cd(path string) error {
	if err := fs.requireMounted(); err != nil {
		return err
	}
	res, err := fs.resolver.Resolve(fs.cwd, path, TypeDirectory)
	if err != nil {
		return err
	}
	switch res.Kind {
	case ResolveFound:
		fs.cwd = res.Inode
		return nil
	case ResolveParentOnly:
		parentInode, err := fs.inodes.Read(res.ParentInode)
		if err != nil {
			return err
		}
		if _, found, err := fs.dirs.FindByNameAny(parentInode, res.LeafName); err != nil {
			return err
		} else if found {
			// the leaf exists, but not as a directory
			return ErrNotDir
		}
		return ErrNotExist
	default:
		return ErrNotDir
	}
}

// Cwd returns the inode number of the current working directory.
func (fs *FsApi) Cwd() int {
	return fs.cwd
}

// State returns the FsApi's current mount lifecycle state.
func (fs *FsApi) State() State {
	return fs.state
}

// Open copies the full contents of the file at fsPath (spanning up to
// DirectBlocks data blocks) out into an in-memory buffer for a caller to
// hand off to a host-file writer. The actual host file write is a thin
// external helper, not part of the core (see package shell).
func (fs *FsApi) Open(fsPath string) ([]byte, error) {
	if err := fs.requireMounted(); err != nil {
		return nil, err
	}
	res, err := fs.resolver.Resolve(fs.cwd, fsPath, TypeFile)
	if err != nil {
		return nil, err
	}
	if res.Kind != ResolveFound {
		return nil, ErrNotExist
	}
	inode, err := fs.inodes.Read(res.Inode)
	if err != nil {
		return nil, err
	}

	remaining := int(inode.FileSize)
	out := make([]byte, 0, remaining)
	for _, ptr := range inode.BlockPointers {
		if remaining <= 0 {
			break
		}
		take := int(fs.layout.sb.BlockSize)
		if take > remaining {
			take = remaining
		}
		b, err := fs.store.ReadAt(fs.layout.DataBlockOffset(int(ptr)), take)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %q: %v", ErrIO, fsPath, err)
		}
		out = append(out, b...)
		remaining -= take
	}
	return out, nil
}

// Save copies data (read from a host file by the caller; see package shell)
// into the file at fsPath, allocating data blocks on demand and capping at
// DirectBlocks * block_size.
func (fs *FsApi) Save(fsPath string, data []byte) error {
	if err := fs.requireMounted(); err != nil {
		return err
	}
	maxSize := DirectBlocks * int(fs.layout.sb.BlockSize)
	if len(data) > maxSize {
		return ErrFileTooBig
	}
	res, err := fs.resolver.Resolve(fs.cwd, fsPath, TypeFile)
	if err != nil {
		return err
	}
	if res.Kind != ResolveFound {
		return ErrNotExist
	}
	inode, err := fs.inodes.Read(res.Inode)
	if err != nil {
		return err
	}

	blocksNeeded := (len(data) + int(fs.layout.sb.BlockSize) - 1) / int(fs.layout.sb.BlockSize)
	allocated := make([]int, 0, blocksNeeded)
	for i := 0; i < blocksNeeded; i++ {
		if inode.BlockPointers[i] != 0 {
			continue
		}
		block, ok, err := fs.bitmap.FindFree()
		if err != nil {
			fs.rollbackSaveAlloc(allocated)
			return err
		}
		if !ok {
			fs.rollbackSaveAlloc(allocated)
			return ErrNoFreeBlocks
		}
		if err := fs.bitmap.Set(block, true); err != nil {
			fs.rollbackSaveAlloc(allocated)
			return err
		}
		inode.BlockPointers[i] = uint16(block)
		allocated = append(allocated, block)
	}

	remaining := data
	for i := 0; i < blocksNeeded; i++ {
		take := remaining
		if len(take) > int(fs.layout.sb.BlockSize) {
			take = take[:fs.layout.sb.BlockSize]
		}
		off := fs.layout.DataBlockOffset(int(inode.BlockPointers[i]))
		if err := fs.store.WriteAt(off, take); err != nil {
			fs.rollbackSaveAlloc(allocated)
			return fmt.Errorf("%w: writing %q: %v", ErrIO, fsPath, err)
		}
		remaining = remaining[len(take):]
	}

	inode.FileSize = uint16(len(data))
	if err := fs.inodes.Write(res.Inode, inode); err != nil {
		fs.rollbackSaveAlloc(allocated)
		return err
	}
	return nil
}

func (fs *FsApi) rollbackSaveAlloc(blocks []int) {
	for _, b := range blocks {
		_ = fs.bitmap.Set(b, false)
	}
}
