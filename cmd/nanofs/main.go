// Command nanofs is the interactive shell for the NanoFS educational
// filesystem. An optional first argument, "verbose", turns on per-operation
// status logging.
package main

import (
	"os"

	"github.com/AbhiramYakkali/NanoFS/backend"
	"github.com/AbhiramYakkali/NanoFS/nanofs"
	"github.com/AbhiramYakkali/NanoFS/shell"
)

func main() {
	verbose := len(os.Args) > 1 && os.Args[1] == "verbose"

	var fs *nanofs.FsApi
	if store, err := backend.Open(shell.DiskName); err == nil {
		fs = nanofs.New(store)
		_ = fs.Mount() // leaves fs StateUnmounted on failure; only init is legal then
	} else {
		fs = nanofs.New(nopStore{})
	}

	sh := shell.New(fs, os.Stdout, verbose)
	if err := sh.Run(os.Stdin, os.Stdout); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// nopStore is a placeholder BackingStore for the window before the first
// successful init, when no image file exists yet to open.
type nopStore struct{}

func (nopStore) ReadAt(int64, int) ([]byte, error) { return nil, backend.ErrOutOfRange }
func (nopStore) WriteAt(int64, []byte) error       { return backend.ErrOutOfRange }
func (nopStore) Truncate(int64) error              { return backend.ErrOutOfRange }
func (nopStore) Close() error                      { return nil }
