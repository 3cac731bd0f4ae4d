package nanofs

import (
	"testing"

	"github.com/go-test/deep"
)

func TestDefaultSuperblockGeometry(t *testing.T) {
	sb := DefaultSuperblock()

	if sb.TotalSize != DefaultTotalSize {
		t.Errorf("total_size = %d, want %d", sb.TotalSize, DefaultTotalSize)
	}
	if sb.InodeCount != DefaultTotalSize/defaultInodeDivisor {
		t.Errorf("inode_count = %d, want %d", sb.InodeCount, DefaultTotalSize/defaultInodeDivisor)
	}
	if sb.InodeSize != InodeSize {
		t.Errorf("inode_size = %d, want %d", sb.InodeSize, InodeSize)
	}

	l := NewLayout(sb)
	if got, want := l.ImageSize(), int64(DefaultTotalSize); got > want {
		t.Errorf("ImageSize() = %d, exceeds total_size budget %d", got, want)
	}
}

func TestSuperblockRoundTrip(t *testing.T) {
	sb := DefaultSuperblock()
	got, err := superblockFromBytes(sb.toBytes())
	if err != nil {
		t.Fatalf("superblockFromBytes: %v", err)
	}
	if diff := deep.Equal(sb, got); diff != nil {
		t.Errorf("superblock round trip = %v", diff)
	}
}

func TestLayoutRegionsAreContiguousAndOrdered(t *testing.T) {
	sb := DefaultSuperblock()
	l := NewLayout(sb)

	if l.InodeTableOffset() != SuperblockSize {
		t.Errorf("InodeTableOffset() = %d, want %d", l.InodeTableOffset(), SuperblockSize)
	}
	wantBitmapOffset := l.InodeTableOffset() + int64(sb.InodeCount)*int64(InodeSize)
	if l.BitmapOffset() != wantBitmapOffset {
		t.Errorf("BitmapOffset() = %d, want %d", l.BitmapOffset(), wantBitmapOffset)
	}
	wantDataOffset := l.BitmapOffset() + l.BitmapSize()
	if l.DataOffset() != wantDataOffset {
		t.Errorf("DataOffset() = %d, want %d", l.DataOffset(), wantDataOffset)
	}
	if l.DataBlockOffset(0) != l.DataOffset() {
		t.Errorf("DataBlockOffset(0) = %d, want %d", l.DataBlockOffset(0), l.DataOffset())
	}
	if l.DataBlockOffset(3) != l.DataOffset()+3*int64(sb.BlockSize) {
		t.Errorf("DataBlockOffset(3) did not advance by 3 block_size")
	}
}

func TestBitmapSizeIsBlockCountBoundNotBlockSizeBound(t *testing.T) {
	// a pathological geometry where block_count is tiny relative to
	// block_size: bitmapSize must track block_count, never block_size/8.
	sb := Superblock{BlockSize: 4096, BlockCount: 3, InodeSize: InodeSize, InodeCount: 1}
	if got, want := sb.bitmapSize(), int64(1); got != want {
		t.Errorf("bitmapSize() = %d, want %d (ceil(3/8))", got, want)
	}
}
