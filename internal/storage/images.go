package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PublicPrefix is the URL prefix under which stored images are served.
const PublicPrefix = "/uploads"

// ErrUnsupportedType reports an upload that is not an image.
var ErrUnsupportedType = errors.New("storage: only images are allowed")

// ImageStore keeps uploaded images on disk under a single directory and
// hands out public paths of the form /uploads/<name>. Names embed a
// timestamp and random suffix so concurrent uploads never collide.
type ImageStore struct {
	dir string
}

// NewImageStore creates the upload directory if needed.
func NewImageStore(dir string) (*ImageStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage: empty upload directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &ImageStore{dir: dir}, nil
}

// Dir returns the backing directory, for static file serving.
func (s *ImageStore) Dir() string {
	return s.dir
}

// Save streams an uploaded file to disk and returns its public path.
// Only image content types are accepted; size limits are enforced by the
// caller via the request body reader.
func (s *ImageStore) Save(field, originalName, contentType string, r io.Reader) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrUnsupportedType
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	name := fmt.Sprintf("%s-%d-%s%s", field, time.Now().UnixMilli(), uuid.NewString(), ext)

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return PublicPrefix + "/" + name, nil
}

// Remove deletes a previously stored image by its public path. Paths outside
// the upload namespace are ignored, and a missing file is not an error.
func (s *ImageStore) Remove(publicPath string) error {
	trimmed := strings.TrimPrefix(publicPath, PublicPrefix+"/")
	if trimmed == "" || trimmed == publicPath {
		return nil
	}
	name := filepath.Base(trimmed)
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}
