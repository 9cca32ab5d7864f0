package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"golang.org/x/net/webdav"
)

// FSStore keeps blobs as files in a webdav.FileSystem: webdav.Dir on disk or
// webdav.NewMemFS in tests.
type FSStore struct {
	fs webdav.FileSystem
}

func NewFSStore(fs webdav.FileSystem) *FSStore {
	return &FSStore{fs: fs}
}

// NewLocalStore stores blobs under dir, creating it when missing.
func NewLocalStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return NewFSStore(webdav.Dir(dir)), nil
}

func objectPath(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return path.Join("/", key), nil
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	name, err := objectPath(key)
	if err != nil {
		return err
	}
	f, err := s.fs.OpenFile(ctx, name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = s.fs.RemoveAll(ctx, name)
		return err
	}
	if err := f.Close(); err != nil {
		_ = s.fs.RemoveAll(ctx, name)
		return err
	}
	return nil
}

func (s *FSStore) Get(ctx context.Context, key string) (*Object, error) {
	name, err := objectPath(key)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.OpenFile(ctx, name, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Object{Reader: f, Size: info.Size()}, nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	name, err := objectPath(key)
	if err != nil {
		return err
	}
	if _, err := s.fs.Stat(ctx, name); errors.Is(err, os.ErrNotExist) {
		return ErrObjectNotFound
	}
	return s.fs.RemoveAll(ctx, name)
}
