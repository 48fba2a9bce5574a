package storage

import (
	"os"
	"path/filepath"
	"sort"

	"factdb/models"

	"github.com/google/uuid"
)

// FileStore realizes Store over a directory tree: a Namespace maps to a
// directory path, a Key's Name maps to a file within it. Overwrite (and,
// for parity, Add) write to a uniquely-named temp file in the same
// directory and rename it into place, so a reader never observes a
// partially written value — overwrite of the head must be atomic with
// respect to readers.
type FileStore struct {
	root string
}

// NewFileStore opens (creating if necessary) a FileStore rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, wrapIO(err)
	}
	return &FileStore{root: dir}, nil
}

func (f *FileStore) dirFor(ns Namespace) string {
	segs := append([]string{f.root}, []string(ns)...)
	return filepath.Join(segs...)
}

func (f *FileStore) pathFor(k Key) string {
	return filepath.Join(f.dirFor(k.NS), k.Name)
}

func (f *FileStore) writeAtomic(path string, v []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrapIO(err)
	}
	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, v, 0o644); err != nil {
		return wrapIO(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return wrapIO(err)
	}
	return nil
}

func (f *FileStore) Add(k Key, v []byte) error {
	path := f.pathFor(k)
	if _, err := os.Stat(path); err == nil {
		return models.ErrAlreadyExists
	} else if !os.IsNotExist(err) {
		return wrapIO(err)
	}
	return f.writeAtomic(path, v)
}

func (f *FileStore) Overwrite(k Key, v []byte) error {
	path := f.pathFor(k)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return models.ErrNotFound
		}
		return wrapIO(err)
	}
	return f.writeAtomic(path, v)
}

func (f *FileStore) Load(k Key) ([]byte, bool, error) {
	b, err := os.ReadFile(f.pathFor(k))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, wrapIO(err)
	}
	return b, true, nil
}

func (f *FileStore) HasKey(k Key) (bool, error) {
	_, err := os.Stat(f.pathFor(k))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, wrapIO(err)
}

func (f *FileStore) Keys(ns Namespace) ([]string, error) {
	entries, err := os.ReadDir(f.dirFor(ns))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapIO(err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *FileStore) SubNamespaces(ns Namespace) ([]string, error) {
	entries, err := os.ReadDir(f.dirFor(ns))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapIO(err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *FileStore) Close() error { return nil }

func wrapIO(err error) error {
	if err == nil {
		return nil
	}
	return &ioError{cause: err}
}

type ioError struct{ cause error }

func (e *ioError) Error() string { return "io error: " + e.cause.Error() }
func (e *ioError) Unwrap() error { return models.ErrIO }

var _ Store = (*FileStore)(nil)
