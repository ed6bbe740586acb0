package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// FileStore keeps one document per file under a root directory. A key is
// the file's slash-separated path relative to the root. Dot-prefixed files
// and directories are invisible, and only files with a configured extension
// count as documents.
type FileStore struct {
	root string
	fsys fs.FS
	exts []string
}

// NewFileStore returns a FileStore rooted at root holding documents with
// the given extensions, or DefaultExtensions when none are given. The root
// does not need to exist until the first Save.
func NewFileStore(root string, extensions ...string) *FileStore {
	return &FileStore{
		root: root,
		fsys: os.DirFS(root),
		exts: normalizeExtensions(extensions),
	}
}

// Root returns the directory the store reads from.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) holds(name string) bool {
	return slices.Contains(s.exts, strings.ToLower(path.Ext(name)))
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	var keys []string

	walk := func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			if name == "." && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if name == "." {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && s.holds(name) {
			keys = append(keys, name)
		}
		return nil
	}

	if err := fs.WalkDir(s.fsys, ".", walk); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: list %s: %v", ErrStoreIO, s.root, err)
	}

	slices.Sort(keys)
	return keys, nil
}

func (s *FileStore) Load(ctx context.Context, keys ...string) ([]Entry, error) {
	entries := make([]Entry, 0, len(keys))

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := ValidKey(key); err != nil {
			return nil, err
		}

		data, err := fs.ReadFile(s.fsys, key)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, key)
		case err != nil:
			return nil, fmt.Errorf("%w: read %s: %v", ErrStoreIO, key, err)
		}
		entries = append(entries, Entry{Key: key, Value: data})
	}

	return entries, nil
}

// Save writes each document atomically. Earlier entries stay written when a
// later one fails.
func (s *FileStore) Save(ctx context.Context, entries ...Entry) error {
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ValidKey(e.Key); err != nil {
			return err
		}
		if !s.holds(e.Key) {
			return fmt.Errorf("%w: %s", ErrUnsupportedDocument, e.Key)
		}
		if err := writeAtomic(filepath.Join(s.root, filepath.FromSlash(e.Key)), e.Value); err != nil {
			return fmt.Errorf("%w: write %s: %v", ErrStoreIO, e.Key, err)
		}
	}
	return nil
}

// Delete removes documents and prunes directories it leaves empty. The root
// itself is never removed.
func (s *FileStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ValidKey(key); err != nil {
			return err
		}

		err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: delete %s: %v", ErrStoreIO, key, err)
		}

		for dir := path.Dir(key); dir != "."; dir = path.Dir(dir) {
			if os.Remove(filepath.Join(s.root, filepath.FromSlash(dir))) != nil {
				break
			}
		}
	}
	return nil
}

// writeAtomic replaces name through a temp file in the same directory.
func writeAtomic(name string, data []byte) (err error) {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".doc-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}
