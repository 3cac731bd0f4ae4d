package nanofs

import (
	"fmt"

	"github.com/AbhiramYakkali/NanoFS/backend"
	"github.com/AbhiramYakkali/NanoFS/util/bitmap"
)

// Bitmap is the free-space bit array covering the data region: bit i tells
// whether data block i is allocated. Each operation decodes the relevant
// byte(s) through util/bitmap's MSB-first in-memory representation, mutates
// or scans it there, then re-encodes and writes back through store.
type Bitmap struct {
	store  backend.BackingStore
	layout Layout
}

// NewBitmap builds a Bitmap reading and writing through store at the
// offsets layout computes.
func NewBitmap(store backend.BackingStore, layout Layout) *Bitmap {
	return &Bitmap{store: store, layout: layout}
}

// IsUsed reports whether block is currently allocated.
func (bm *Bitmap) IsUsed(block int) (bool, error) {
	byteOff := bm.layout.BitmapByteOffset(block)
	b, err := bm.store.ReadAt(byteOff, 1)
	if err != nil {
		return false, fmt.Errorf("%w: reading bitmap byte for block %d: %v", ErrIO, block, err)
	}
	return bitmap.FromBytes(b).IsSet(block % 8)
}

// Set allocates or frees block, depending on used.
func (bm *Bitmap) Set(block int, used bool) error {
	byteOff := bm.layout.BitmapByteOffset(block)
	b, err := bm.store.ReadAt(byteOff, 1)
	if err != nil {
		return fmt.Errorf("%w: reading bitmap byte for block %d: %v", ErrIO, block, err)
	}
	bit := bitmap.FromBytes(b)
	if used {
		err = bit.Set(block % 8)
	} else {
		err = bit.Clear(block % 8)
	}
	if err != nil {
		return fmt.Errorf("%w: flipping bit for block %d: %v", ErrIO, block, err)
	}
	if err := bm.store.WriteAt(byteOff, bit.ToBytes()); err != nil {
		return fmt.Errorf("%w: writing bitmap byte for block %d: %v", ErrIO, block, err)
	}
	return nil
}

// FindFree performs a first-fit scan of the bitmap and returns the lowest
// free block index. The scan bound passed to util/bitmap.FirstFree is
// block_count bits, never block_size/8 bytes - scanning by byte count alone
// would run past the end of a bitmap sized for a smaller block count (see
// the bitmap scan bound note in the design notes).
func (bm *Bitmap) FindFree() (int, bool, error) {
	blob, err := bm.store.ReadAt(bm.layout.BitmapOffset(), int(bm.layout.BitmapSize()))
	if err != nil {
		return 0, false, fmt.Errorf("%w: reading bitmap: %v", ErrIO, err)
	}
	loc := bitmap.FromBytes(blob).FirstFree(int(bm.layout.sb.BlockCount))
	if loc < 0 {
		return 0, false, nil
	}
	return loc, true, nil
}
