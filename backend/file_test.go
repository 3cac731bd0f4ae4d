package backend

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-test/deep"
)

func TestFileStoreCreateWriteReadAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image")
	store, err := Create(path, 64)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer store.Close()

	want := []byte("hello")
	if err := store.WriteAt(10, want); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	got, err := store.ReadAt(10, len(want))
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if diff := deep.Equal(want, got); diff != nil {
		t.Errorf("ReadAt after WriteAt = %v", diff)
	}
}

func TestFileStoreTruncateGrowsAndShrinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image")
	store, err := Create(path, 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer store.Close()

	if err := store.Truncate(32); err != nil {
		t.Fatalf("Truncate grow: %v", err)
	}
	if _, err := store.ReadAt(20, 8); err != nil {
		t.Errorf("ReadAt after growing: %v", err)
	}
}

func TestFileStoreOperationsAfterCloseFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image")
	store, err := Create(path, 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := store.ReadAt(0, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadAt after Close = %v, want ErrClosed", err)
	}
	if err := store.WriteAt(0, []byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteAt after Close = %v, want ErrClosed", err)
	}
}

func TestOpenRequiresExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist")
	if _, err := Open(path); err == nil {
		t.Error("Open(nonexistent) = nil error, want failure")
	}
}

func TestMemStoreMatchesFileStoreContract(t *testing.T) {
	store := NewMemStore()
	if err := store.Truncate(32); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	want := []byte("abcd")
	if err := store.WriteAt(4, want); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	got, err := store.ReadAt(4, len(want))
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if diff := deep.Equal(want, got); diff != nil {
		t.Errorf("ReadAt after WriteAt = %v", diff)
	}
	if _, err := store.ReadAt(30, 10); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("ReadAt past end = %v, want ErrOutOfRange", err)
	}
}
