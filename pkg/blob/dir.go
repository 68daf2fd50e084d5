package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirStore serves blobs from a directory tree: folder/name under root.
type DirStore struct {
	root string
}

// NewDirStore creates a DirStore rooted at root. The directory must exist.
func NewDirStore(root string) (*DirStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening storage root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root %s is not a directory", root)
	}
	return &DirStore{root: root}, nil
}

// Get reads folder/name from disk.
func (d *DirStore) Get(ctx context.Context, folder, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := filepath.Join(d.root, filepath.FromSlash(Key(folder, name)))
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, Key(folder, name))
		}
		return nil, fmt.Errorf("reading blob %s: %w", Key(folder, name), err)
	}
	return data, nil
}

// Put writes data to folder/name, creating the folder as needed. It lets
// the development indexer write blocks straight into a DirStore.
func (d *DirStore) Put(folder, name string, data []byte) error {
	p := filepath.Join(d.root, filepath.FromSlash(Key(folder, name)))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating folder for %s: %w", Key(folder, name), err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("writing blob %s: %w", Key(folder, name), err)
	}
	return nil
}

// Root returns the directory the store reads from.
func (d *DirStore) Root() string {
	return d.root
}
