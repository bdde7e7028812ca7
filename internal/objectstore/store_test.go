package objectstore

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"relaybot/internal/config"
	"relaybot/internal/engine"
)

// storeFactories builds each backend that can run without external
// services. The S3 store needs credentials and a bucket and is exercised
// in integration environments.
func storeFactories(t *testing.T) map[string]func(t *testing.T) engine.ObjectStore {
	return map[string]func(t *testing.T) engine.ObjectStore{
		"memory": func(t *testing.T) engine.ObjectStore {
			return NewMemoryStore("test-bucket")
		},
		"filesystem": func(t *testing.T) engine.ObjectStore {
			s, err := NewFileSystemStore("test-bucket", t.TempDir())
			if err != nil {
				t.Fatalf("NewFileSystemStore() error = %v", err)
			}
			return s
		},
	}
}

func upload(t *testing.T, store engine.ObjectStore, path string, data []byte) {
	t.Helper()
	if err := store.Upload(context.Background(), path, bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Upload(%s) error = %v", path, err)
	}
}

func TestObjectStore(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			t.Run("upload then download round-trips", func(t *testing.T) {
				want := []byte("artifact payload")
				upload(t, store, "backups/one.bak", want)

				var buf bytes.Buffer
				if err := store.Download(ctx, "backups/one.bak", &buf); err != nil {
					t.Fatalf("Download() error = %v", err)
				}
				if !bytes.Equal(buf.Bytes(), want) {
					t.Errorf("Download() = %q, want %q", buf.Bytes(), want)
				}
			})

			t.Run("download of missing object is not found", func(t *testing.T) {
				var buf bytes.Buffer
				err := store.Download(ctx, "backups/missing.bak", &buf)
				var objErr *engine.ObjectStoreError
				if !errors.As(err, &objErr) || objErr.Kind != engine.ObjectNotFound {
					t.Errorf("Download() error = %v, want ObjectNotFound", err)
				}
			})

			t.Run("list filters by prefix", func(t *testing.T) {
				upload(t, store, "backups/two.bak", []byte("x"))
				upload(t, store, "other/three.bak", []byte("y"))

				infos, err := store.List(ctx, "backups/")
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				if len(infos) != 2 {
					t.Fatalf("List() = %d objects, want 2", len(infos))
				}
				for _, info := range infos {
					if !strings.HasPrefix(info.Name, "backups/") {
						t.Errorf("List() returned %q outside prefix", info.Name)
					}
				}
			})

			t.Run("delete removes the object", func(t *testing.T) {
				upload(t, store, "backups/gone.bak", []byte("z"))
				if err := store.Delete(ctx, "backups/gone.bak"); err != nil {
					t.Fatalf("Delete() error = %v", err)
				}

				var buf bytes.Buffer
				err := store.Download(ctx, "backups/gone.bak", &buf)
				var objErr *engine.ObjectStoreError
				if !errors.As(err, &objErr) || objErr.Kind != engine.ObjectNotFound {
					t.Errorf("Download() after delete: error = %v, want ObjectNotFound", err)
				}
			})

			t.Run("delete of missing object is tolerated", func(t *testing.T) {
				if err := store.Delete(ctx, "backups/never-there.bak"); err != nil {
					t.Errorf("Delete() of missing object: error = %v", err)
				}
			})

			t.Run("signed url is non-empty", func(t *testing.T) {
				upload(t, store, "backups/url.bak", []byte("u"))
				url, err := store.SignedURL(ctx, "backups/url.bak", time.Hour)
				if err != nil {
					t.Fatalf("SignedURL() error = %v", err)
				}
				if url == "" {
					t.Error("SignedURL() returned empty url")
				}
			})

			t.Run("validate setup", func(t *testing.T) {
				if err := store.ValidateSetup(ctx); err != nil {
					t.Errorf("ValidateSetup() error = %v", err)
				}
			})
		})
	}
}

func TestMemoryStore_SizeMismatch(t *testing.T) {
	store := NewMemoryStore("b")
	data := []byte("short")
	err := store.Upload(context.Background(), "p", bytes.NewReader(data), int64(len(data)+3))
	if err == nil {
		t.Error("Upload() with wrong size: error = nil, want error")
	}
}

func TestFileSystemStore_RejectsEscapingPaths(t *testing.T) {
	store, err := NewFileSystemStore("b", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	err = store.Upload(context.Background(), "../escape.bak", bytes.NewReader([]byte("x")), 1)
	var objErr *engine.ObjectStoreError
	if !errors.As(err, &objErr) || objErr.Kind != engine.ObjectAccessDenied {
		t.Errorf("Upload() with escaping path: error = %v, want ObjectAccessDenied", err)
	}
}

func TestNewFromConfig_UnknownType(t *testing.T) {
	_, err := NewFromConfig(context.Background(), config.ObjectStoreConfig{Type: "tape"})
	if err == nil {
		t.Error("NewFromConfig() with unknown type: error = nil, want error")
	}
}
