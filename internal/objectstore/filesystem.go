package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"relaybot/internal/engine"
)

// FileSystemStore is a filesystem-based implementation of the ObjectStore
// interface. Objects are stored as plain files under a root directory, with
// the object path mapped onto the directory tree.
type FileSystemStore struct {
	bucket string
	root   string
}

var _ engine.ObjectStore = (*FileSystemStore)(nil)

// NewFileSystemStore creates a filesystem object store rooted at the given
// path.
func NewFileSystemStore(bucket, root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create object root: %w", err)
	}
	return &FileSystemStore{bucket: bucket, root: root}, nil
}

// objectPath maps an object path onto the filesystem, rejecting escapes
// from the root.
func (s *FileSystemStore) objectPath(path string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if !strings.HasPrefix(full, s.root+string(os.PathSeparator)) && full != s.root {
		return "", engine.NewObjectStoreError(engine.ObjectAccessDenied,
			fmt.Errorf("path escapes object root: %s", path))
	}
	return full, nil
}

func (s *FileSystemStore) Upload(_ context.Context, path string, r io.Reader, size int64) error {
	dest, err := s.objectPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return engine.NewObjectStoreError(engine.ObjectUnknown, fmt.Errorf("creating object directory: %w", err))
	}

	// Write to a temp file first, then rename. A crashed upload never
	// leaves a partial object at the final path.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return engine.NewObjectStoreError(engine.ObjectUnknown, fmt.Errorf("creating temp file: %w", err))
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return engine.NewObjectStoreError(engine.ObjectUnknown, fmt.Errorf("writing object: %w", err))
	}
	if written != size {
		os.Remove(tmpPath)
		return engine.NewObjectStoreError(engine.ObjectUnknown,
			fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written))
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return engine.NewObjectStoreError(engine.ObjectUnknown, fmt.Errorf("finalizing object: %w", err))
	}
	return nil
}

func (s *FileSystemStore) Download(_ context.Context, path string, w io.Writer) error {
	src, err := s.objectPath(path)
	if err != nil {
		return err
	}

	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return engine.NewObjectStoreError(engine.ObjectNotFound, fmt.Errorf("object %s", path))
		}
		return engine.NewObjectStoreError(engine.ObjectUnknown, fmt.Errorf("opening object: %w", err))
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return engine.NewObjectStoreError(engine.ObjectUnknown, fmt.Errorf("reading object: %w", err))
	}
	return nil
}

func (s *FileSystemStore) List(_ context.Context, prefix string) ([]engine.ObjectInfo, error) {
	var out []engine.ObjectInfo

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, engine.ObjectInfo{
			Name:      name,
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, engine.NewObjectStoreError(engine.ObjectUnknown, fmt.Errorf("listing objects: %w", err))
	}
	return out, nil
}

func (s *FileSystemStore) Delete(_ context.Context, path string) error {
	dest, err := s.objectPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return engine.NewObjectStoreError(engine.ObjectUnknown, fmt.Errorf("deleting object: %w", err))
	}
	return nil
}

func (s *FileSystemStore) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	dest, err := s.objectPath(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", engine.NewObjectStoreError(engine.ObjectNotFound, fmt.Errorf("object %s", path))
		}
		return "", engine.NewObjectStoreError(engine.ObjectUnknown, fmt.Errorf("stat object: %w", err))
	}
	// Local files have no expiring URLs; a file URL is the closest
	// equivalent.
	return "file://" + dest, nil
}

func (s *FileSystemStore) ValidateSetup(context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return engine.NewObjectStoreError(engine.ObjectUnknown, fmt.Errorf("stat object root: %w", err))
	}
	if !info.IsDir() {
		return engine.NewObjectStoreError(engine.ObjectUnknown,
			fmt.Errorf("object root is not a directory: %s", s.root))
	}
	return nil
}
