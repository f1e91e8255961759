package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/storage"
	"github.com/spf13/afero"
)

// UploadStore writes submitted files as <dir>/<id><ext>.
type UploadStore struct {
	fs  afero.Fs
	dir string
}

var _ storage.UploadStore = (*UploadStore)(nil)

// NewUploadStore creates an UploadStore rooted at dir, creating it if needed.
func NewUploadStore(fs afero.Fs, dir string) (storage.UploadStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: upload directory is empty", storage.ErrInvalidQuery)
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &UploadStore{fs: fs, dir: dir}, nil
}

// Save writes data and returns its path. The name is content addressed, so
// saving the same bytes twice yields the same path.
func (s *UploadStore) Save(ctx context.Context, id core.ID, ext string, data []byte) (string, error) {
	if id == "" {
		return "", core.ErrEmptyID
	}
	if ext != "" && (!strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\`)) {
		return "", fmt.Errorf("%w: bad extension %q", storage.ErrInvalidQuery, ext)
	}
	path := filepath.Join(s.dir, string(id)+ext)
	if err := afero.WriteFile(s.fs, path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Open reads back a saved upload. References outside the upload directory
// are rejected.
func (s *UploadStore) Open(ctx context.Context, ref string) ([]byte, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		exists, _ := afero.Exists(s.fs, path)
		if !exists {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Remove deletes a saved upload.
func (s *UploadStore) Remove(ctx context.Context, ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	exists, err := afero.Exists(s.fs, path)
	if err != nil || !exists {
		return err
	}
	return s.fs.Remove(path)
}

func (s *UploadStore) resolve(ref string) (string, error) {
	clean := filepath.Clean(ref)
	if filepath.Dir(clean) != filepath.Clean(s.dir) {
		return "", fmt.Errorf("%w: %s is not an upload", storage.ErrInvalidQuery, ref)
	}
	return clean, nil
}
