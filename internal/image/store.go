// Package image is the profile-image capability. It has no interaction
// with the relationship invariants; the engine only needs upload and
// delete.
package image

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

type Store interface {
	Upload(ctx context.Context, key string, r io.Reader) error
	Delete(ctx context.Context, key string) error
}

// Dir stores images as files under a base directory.
type Dir struct {
	Base string
}

func (d *Dir) Upload(_ context.Context, key string, r io.Reader) error {
	if err := os.MkdirAll(d.Base, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(d.Base, filepath.Base(key)))
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return err
	}
	return f.Sync()
}

func (d *Dir) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(d.Base, filepath.Base(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
