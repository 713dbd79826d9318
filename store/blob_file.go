package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileBlob stores each key as <dir>/<key>.json. Writes go through a temp
// file and rename so a crash never leaves a half-written collection.
// Only one process may own dir.
type FileBlob struct {
	dir string
	mu  sync.Mutex
}

func NewFileBlob(dir string) *FileBlob {
	return &FileBlob{dir: dir}
}

func (b *FileBlob) path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

func (b *FileBlob) read(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (b *FileBlob) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.read(key)
}

func (b *FileBlob) Update(ctx context.Context, key string, fn func([]byte, bool) ([]byte, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok, err := b.read(key)
	if err != nil {
		return err
	}
	next, err := fn(cur, ok)
	if err != nil || next == nil {
		return err
	}
	return b.write(key, next)
}

func (b *FileBlob) write(key string, data []byte) error {
	if err := os.MkdirAll(b.dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, ".dinoevent-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, b.path(key))
}
