package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/yukikurage/noel-en-famille/internal/logging"
	"go.uber.org/zap"

	// registers the webp decoder so webp uploads are accepted as input
	_ "golang.org/x/image/webp"
)

const (
	defaultMaxBytes     = 10 << 20
	defaultMaxDimension = 1600
	defaultMaxPixels    = 40_000_000
)

var (
	ErrImageTooLarge    = errors.New("image exceeds the upload size limit")
	ErrUnsupportedImage = errors.New("file is not a supported image")
	ErrForeignURL       = errors.New("url does not point into the upload directory")
)

// LocalImageStore converts uploads to WebP and writes them to a local directory
// served under a public path.
type LocalImageStore struct {
	dir          string
	publicPath   string
	maxBytes     int64
	maxDimension int
	maxPixels    int64
}

// Options configures a LocalImageStore.
type Options struct {
	Dir          string
	PublicPath   string
	MaxBytes     int64
	MaxDimension int
	// MaxPixels bounds width*height of the decoded image, checked from the
	// header before any pixel data is allocated.
	MaxPixels int64
}

// NewLocalImageStore creates the upload directory if needed.
func NewLocalImageStore(opts Options) (*LocalImageStore, error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = defaultMaxDimension
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = defaultMaxPixels
	}
	if opts.PublicPath == "" {
		opts.PublicPath = "/uploads"
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &LocalImageStore{
		dir:          opts.Dir,
		publicPath:   "/" + strings.Trim(opts.PublicPath, "/"),
		maxBytes:     opts.MaxBytes,
		maxDimension: opts.MaxDimension,
		maxPixels:    opts.MaxPixels,
	}, nil
}

// Dir returns the directory files are written to.
func (s *LocalImageStore) Dir() string {
	return s.dir
}

// PublicPath returns the URL prefix of stored files.
func (s *LocalImageStore) PublicPath() string {
	return s.publicPath
}

// Save decodes an image, shrinks it to fit the maximum dimension, encodes it
// as WebP and returns its public URL.
func (s *LocalImageStore) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrImageTooLarge
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", ErrUnsupportedImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > s.maxPixels {
		return "", ErrImageTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", ErrUnsupportedImage
	}

	b := img.Bounds()
	if b.Dx() > s.maxDimension || b.Dy() > s.maxDimension {
		img = imaging.Fit(img, s.maxDimension, s.maxDimension, imaging.Lanczos)
	}

	name := uuid.NewString() + ".webp"
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := nativewebp.Encode(tmp, img, nil); err != nil {
		tmp.Close()
		return "", fmt.Errorf("encode webp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	logging.L().Debug("image stored",
		zap.String("name", name),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
	)
	return path.Join(s.publicPath, name), nil
}

// Remove deletes the file behind a URL returned by Save. Missing files are not an error.
func (s *LocalImageStore) Remove(url string) error {
	name, err := s.fileName(url)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

func (s *LocalImageStore) fileName(url string) (string, error) {
	prefix := s.publicPath + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", ErrForeignURL
	}
	name := strings.TrimPrefix(url, prefix)
	if name == "" || name != path.Base(name) || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrForeignURL
	}
	return name, nil
}
