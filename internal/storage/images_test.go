package storage

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newStore(t *testing.T, opts Options) *LocalImageStore {
	t.Helper()
	opts.Dir = t.TempDir()
	store, err := NewLocalImageStore(opts)
	require.NoError(t, err)
	return store
}

func TestSave_ConvertsToWebP(t *testing.T) {
	store := newStore(t, Options{PublicPath: "/uploads/"})

	url, err := store.Save(bytes.NewReader(pngBytes(t, 40, 30)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".webp"))

	f, err := os.Open(filepath.Join(store.Dir(), filepath.Base(url)))
	require.NoError(t, err)
	defer f.Close()

	cfg, err := webp.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestSave_ShrinksLargeImages(t *testing.T) {
	store := newStore(t, Options{MaxDimension: 20})

	url, err := store.Save(bytes.NewReader(pngBytes(t, 80, 40)))
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(store.Dir(), filepath.Base(url)))
	require.NoError(t, err)
	defer f.Close()

	cfg, err := webp.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
	assert.Equal(t, 10, cfg.Height)
}

func TestSave_Rejections(t *testing.T) {
	store := newStore(t, Options{MaxBytes: 64})

	_, err := store.Save(strings.NewReader("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = store.Save(bytes.NewReader(pngBytes(t, 50, 50)))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// hugeHeaderPNG returns a valid small PNG whose header claims w x h pixels.
func hugeHeaderPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	require.Equal(t, "IHDR", string(data[12:16]))
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestSave_RejectsOversizedDimensions(t *testing.T) {
	store := newStore(t, Options{})

	data := hugeHeaderPNG(t, 40000, 40000)
	require.Less(t, len(data), 2048)

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 40000, cfg.Width)

	_, err = store.Save(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	small := newStore(t, Options{MaxPixels: 1000})
	_, err = small.Save(bytes.NewReader(pngBytes(t, 80, 40)))
	assert.ErrorIs(t, err, ErrImageTooLarge)
	_, err = small.Save(bytes.NewReader(pngBytes(t, 20, 20)))
	assert.NoError(t, err)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemove(t *testing.T) {
	store := newStore(t, Options{})

	url, err := store.Save(bytes.NewReader(pngBytes(t, 10, 10)))
	require.NoError(t, err)
	file := filepath.Join(store.Dir(), filepath.Base(url))
	require.FileExists(t, file)

	require.NoError(t, store.Remove(url))
	assert.NoFileExists(t, file)

	// already gone
	assert.NoError(t, store.Remove(url))

	for _, bad := range []string{"/uploads/../secret", "/other/file.webp", "/uploads/", "/uploads/a/b.webp"} {
		assert.ErrorIs(t, store.Remove(bad), ErrForeignURL, bad)
	}
}
