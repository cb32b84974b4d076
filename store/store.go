package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:generate mockgen -destination=../agent/memory/storemocks_test.go -package=memory_test github.com/kardolus/minebot/store Store
//go:generate mockgen -destination=../agent/skills/storemocks_test.go -package=skills_test github.com/kardolus/minebot/store Store
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{
		baseDir: baseDir,
	}
}

// Ensure FileStore implements the Store interface
var _ Store = &FileStore{}

// FileStore keeps one file per key below baseDir. Keys are slash-separated
// relative paths including their extension, e.g. "memory.json" or
// "procedures/dig_a_hole.go".
type FileStore struct {
	baseDir string
}

func (f *FileStore) Get(key string) ([]byte, error) {
	path, err := f.pathForKey(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (f *FileStore) Set(key string, value []byte) error {
	dst, err := f.pathForKey(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// Write to a temp file in the same directory so rename is atomic.
	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%s.*.tmp", filepath.Base(dst)))
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(value); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Atomic replace on POSIX; on Windows, Rename may fail if dst exists.
	if err := os.Rename(tmpName, dst); err != nil {
		if errors.Is(err, os.ErrExist) || errors.Is(err, os.ErrPermission) {
			_ = os.Remove(dst)
			return os.Rename(tmpName, dst)
		}
		return err
	}

	return nil
}

func (f *FileStore) Delete(key string) error {
	path, err := f.pathForKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *FileStore) pathForKey(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid store key %q", key)
	}
	return filepath.Join(f.baseDir, clean), nil
}
