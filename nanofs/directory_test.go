package nanofs

import (
	"testing"

	"github.com/go-test/deep"

	"github.com/AbhiramYakkali/NanoFS/backend"
)

func newTestDirOps(t *testing.T) (*DirectoryOps, *InodeTable, *Bitmap, Layout) {
	t.Helper()
	sb := DefaultSuperblock()
	l := NewLayout(sb)
	store := backend.NewMemStore()
	if err := store.Truncate(l.ImageSize()); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	inodes := NewInodeTable(store, l)
	bm := NewBitmap(store, l)
	return NewDirectoryOps(store, l, inodes, bm), inodes, bm, l
}

func TestDentryRoundTrip(t *testing.T) {
	want := Dentry{InodeNumber: 42, FileType: TypeDirectory, Name: "subdir"}
	got, err := dentryFromBytes(want.toBytes())
	if err != nil {
		t.Fatalf("dentryFromBytes: %v", err)
	}
	if diff := deep.Equal(want, got); diff != nil {
		t.Errorf("dentry round trip = %v", diff)
	}
}

func TestValidNameRejectsSlashSpaceAndOverlong(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"a", true},
		{"", false},
		{"a/b", false},
		{"a b", false},
		{"a\tb", false},
		{string(make([]byte, NameCapacity)), false},
	}
	for _, c := range cases {
		err := validName(c.name)
		if (err == nil) != c.ok {
			t.Errorf("validName(%q) err=%v, want ok=%v", c.name, err, c.ok)
		}
	}
}

// setupRootDir allocates block 0 as a one-block directory inode whose
// file_size already counts the two dot entries, as FsApi.Init sets it for
// the root. The dot entries' bytes are not written here.
func setupRootDir(t *testing.T, inodes *InodeTable, bm *Bitmap) (int, Inode) {
	t.Helper()
	if err := bm.Set(0, true); err != nil {
		t.Fatalf("Set(0): %v", err)
	}
	dir := Inode{FileSize: uint16(2 * DentrySize), IsUsed: true}
	dir.BlockPointers[0] = 0
	if err := inodes.Write(RootInode, dir); err != nil {
		t.Fatalf("Write root: %v", err)
	}
	return RootInode, dir
}

func TestDirectoryAppendAndReadAll(t *testing.T) {
	dirs, inodes, bm, _ := newTestDirOps(t)
	num, dir := setupRootDir(t, inodes, bm)

	// writeSlot bypasses Append's inode persistence; write the two dot
	// entries directly the way Init does, then exercise Append for a third.
	if err := dirs.writeSlot(dir, 0, Dentry{InodeNumber: num, FileType: TypeDirectory, Name: "."}); err != nil {
		t.Fatalf("writeSlot .: %v", err)
	}
	if err := dirs.writeSlot(dir, 1, Dentry{InodeNumber: num, FileType: TypeDirectory, Name: ".."}); err != nil {
		t.Fatalf("writeSlot ..: %v", err)
	}

	entry := Dentry{InodeNumber: 1, FileType: TypeFile, Name: "hello.txt"}
	if err := dirs.Append(num, &dir, entry); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := dirs.ReadAll(dir)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if diff := deep.Equal(entry, entries[2]); diff != nil {
		t.Errorf("appended entry = %v", diff)
	}
}

func TestDirectoryAppendAllocatesNewBlockWhenFull(t *testing.T) {
	dirs, inodes, bm, l := newTestDirOps(t)
	num, dir := setupRootDir(t, inodes, bm)

	// the two dot entries already occupy the first block; fill its remaining slots
	dpb := l.DentriesPerBlock()
	for i := dirs.Count(dir); i < dpb; i++ {
		entry := Dentry{InodeNumber: i + 1, FileType: TypeFile, Name: "f"}
		if err := dirs.Append(num, &dir, entry); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if dir.BlockPointers[1] != 0 {
		t.Fatalf("block 1 allocated early: BlockPointers=%v", dir.BlockPointers)
	}

	// one more entry should spill into a freshly allocated second block
	if err := dirs.Append(num, &dir, Dentry{InodeNumber: 99, FileType: TypeFile, Name: "overflow"}); err != nil {
		t.Fatalf("Append overflow: %v", err)
	}
	if dir.BlockPointers[1] == 0 {
		t.Errorf("expected a second block to be allocated, BlockPointers=%v", dir.BlockPointers)
	}
	used, err := bm.IsUsed(int(dir.BlockPointers[1]))
	if err != nil || !used {
		t.Errorf("newly allocated block not marked used: used=%v err=%v", used, err)
	}
}

func TestDirectoryRemoveIndexSwapsWithLast(t *testing.T) {
	dirs, inodes, bm, _ := newTestDirOps(t)
	num, dir := setupRootDir(t, inodes, bm)

	if err := dirs.writeSlot(dir, 0, Dentry{InodeNumber: num, FileType: TypeDirectory, Name: "."}); err != nil {
		t.Fatalf("writeSlot .: %v", err)
	}
	if err := dirs.writeSlot(dir, 1, Dentry{InodeNumber: num, FileType: TypeDirectory, Name: ".."}); err != nil {
		t.Fatalf("writeSlot ..: %v", err)
	}
	a := Dentry{InodeNumber: 1, FileType: TypeFile, Name: "a"}
	b := Dentry{InodeNumber: 2, FileType: TypeFile, Name: "b"}
	if err := dirs.Append(num, &dir, a); err != nil {
		t.Fatalf("Append a: %v", err)
	}
	if err := dirs.Append(num, &dir, b); err != nil {
		t.Fatalf("Append b: %v", err)
	}

	// remove "a" at index 2: "b" (the last entry) swaps into its slot
	if err := dirs.RemoveIndex(num, &dir, 2); err != nil {
		t.Fatalf("RemoveIndex: %v", err)
	}

	entries, err := dirs.ReadAll(dir)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if diff := deep.Equal(b, entries[2]); diff != nil {
		t.Errorf("swapped-in entry = %v", diff)
	}
}

func TestDirectoryRemoveLastEntryOfBlockFreesIt(t *testing.T) {
	dirs, inodes, bm, l := newTestDirOps(t)
	num, dir := setupRootDir(t, inodes, bm)
	dpb := l.DentriesPerBlock()

	// the two dot entries already occupy the first block; fill its remaining slots
	for i := dirs.Count(dir); i < dpb; i++ {
		if err := dirs.Append(num, &dir, Dentry{InodeNumber: i + 1, FileType: TypeFile, Name: "f"}); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if err := dirs.Append(num, &dir, Dentry{InodeNumber: 99, FileType: TypeFile, Name: "overflow"}); err != nil {
		t.Fatalf("Append overflow: %v", err)
	}
	secondBlock := int(dir.BlockPointers[1])

	last := dirs.Count(dir) - 1
	if err := dirs.RemoveIndex(num, &dir, last); err != nil {
		t.Fatalf("RemoveIndex: %v", err)
	}
	if dir.BlockPointers[1] != 0 {
		t.Errorf("trailing block pointer not cleared: %v", dir.BlockPointers)
	}
	used, err := bm.IsUsed(secondBlock)
	if err != nil || used {
		t.Errorf("freed block still marked used: used=%v err=%v", used, err)
	}
}

func TestFindByNameAnyIgnoresType(t *testing.T) {
	dirs, inodes, bm, _ := newTestDirOps(t)
	num, dir := setupRootDir(t, inodes, bm)

	entry := Dentry{InodeNumber: 5, FileType: TypeDirectory, Name: "x"}
	if err := dirs.Append(num, &dir, entry); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if _, found, err := dirs.FindByName(dir, "x", TypeFile); err != nil || found {
		t.Errorf("FindByName(type-filtered) found=%v err=%v, want false", found, err)
	}
	got, found, err := dirs.FindByNameAny(dir, "x")
	if err != nil || !found {
		t.Fatalf("FindByNameAny found=%v err=%v, want true", found, err)
	}
	if diff := deep.Equal(entry, got); diff != nil {
		t.Errorf("FindByNameAny entry = %v", diff)
	}
}
