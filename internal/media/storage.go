package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dewmini3/CakeCustomizing/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnsupportedType is returned for files that are not images
var ErrUnsupportedType = errors.New("unsupported image type")

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// LocalStorage writes uploaded images to a directory served under a public path
type LocalStorage struct {
	dir        string
	publicPath string
	logger     *zap.Logger
}

// NewLocalStorage creates the upload directory if needed
func NewLocalStorage(dir, publicPath string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir, publicPath: publicPath, logger: util.GetLogger()}, nil
}

// Dir returns the directory files are written to
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Save stores r under a random name keeping the original extension and
// returns the public URL path of the file
func (s *LocalStorage) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%s: %w", ext, ErrUnsupportedType)
	}

	name := uuid.New().String() + ext
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	s.logger.Debug("Image stored", zap.String("file", name))
	return path.Join(s.publicPath, name), nil
}

// Remove deletes a file previously returned by Save. Missing files are not an error.
func (s *LocalStorage) Remove(ctx context.Context, publicURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := path.Base(publicURL)
	if name == "." || name == "/" {
		return fmt.Errorf("invalid image path %q", publicURL)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}

	s.logger.Debug("Image removed", zap.String("file", name))
	return nil
}
