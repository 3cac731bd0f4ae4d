package nanofs

import "errors"

// Error taxonomy for the nanofs core. Every operation returns one of these
// sentinels (optionally wrapped with additional detail via fmt.Errorf's %w)
// rather than a bespoke exception type, so callers can dispatch with
// errors.Is.
var (
	// ErrImageMissing is returned when opening the backing image for read
	// fails before any command other than init has run.
	ErrImageMissing = errors.New("nanofs: image missing")
	// ErrInvalidPath is returned for an empty path, an empty component, or
	// a name containing '/' or whitespace.
	ErrInvalidPath = errors.New("nanofs: invalid path")
	// ErrNotExist is returned when a required path component is missing.
	ErrNotExist = errors.New("nanofs: no such file or directory")
	// ErrNotDir is returned when a middle component, or a cd target, is
	// not a directory.
	ErrNotDir = errors.New("nanofs: not a directory")
	// ErrExist is returned when creating an entry whose name already
	// exists in the parent directory.
	ErrExist = errors.New("nanofs: already exists")
	// ErrDirTooBig is returned when a directory would need more than 12
	// data blocks to hold one more entry.
	ErrDirTooBig = errors.New("nanofs: directory full")
	// ErrFileTooBig is returned when a file write would exceed 12 *
	// block size.
	ErrFileTooBig = errors.New("nanofs: file too big")
	// ErrNoFreeInodes is returned when the inode table has no free slot.
	ErrNoFreeInodes = errors.New("nanofs: no free inodes")
	// ErrNoFreeBlocks is returned when the bitmap has no free block.
	ErrNoFreeBlocks = errors.New("nanofs: no free data blocks")
	// ErrIO is returned when the BackingStore itself fails a read or
	// write; the image may be left partially written.
	ErrIO = errors.New("nanofs: backing store I/O error")
	// ErrNotMounted is returned when an operation other than Init is
	// attempted before a filesystem has been mounted.
	ErrNotMounted = errors.New("nanofs: filesystem not mounted")
	// ErrNotFile names a path that is not a file where a file was
	// required. No operation in this package returns it: Read, Write, Rm,
	// Open and Save resolve their leaf as a file, so a directory there is
	// reported as ErrNotExist.
	ErrNotFile = errors.New("nanofs: not a file")
)
