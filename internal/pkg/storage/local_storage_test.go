package storage

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func makeFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("files", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := multipart.NewReader(&buf, w.Boundary())
	form, err := r.ReadForm(32 << 20)
	require.NoError(t, err)
	return form.File["files"][0]
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStorage(dir, 1<<20, 10<<20, 320, 320)
	userId := uuid.New()

	result, err := store.Save(makeFileHeader(t, "photo.png", pngBytes(t, 64, 48)), userId)
	require.NoError(t, err)

	assert.Equal(t, "image", result.FileType)
	assert.Equal(t, 64, result.Width)
	assert.Equal(t, 48, result.Height)
	assert.Greater(t, result.FileSize, int64(0))

	// Stored under a date partition with a generated name.
	assert.Contains(t, result.FilePath, time.Now().Format("2006/01/02"))
	assert.Contains(t, result.FileName, userId.String())

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(result.FilePath)))
	assert.NoError(t, err)
}

func TestSaveRejectsUnknownExtension(t *testing.T) {
	store := NewLocalStorage(t.TempDir(), 1<<20, 10<<20, 320, 320)

	_, err := store.Save(makeFileHeader(t, "tool.exe", []byte("MZ")), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file extension")
}

func TestSaveRejectsOversizedImage(t *testing.T) {
	store := NewLocalStorage(t.TempDir(), 10, 10<<20, 320, 320)

	_, err := store.Save(makeFileHeader(t, "big.png", pngBytes(t, 64, 64)), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum size")
}

func TestGenerateThumbnail(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStorage(dir, 1<<20, 10<<20, 100, 100)

	result, err := store.Save(makeFileHeader(t, "wide.png", pngBytes(t, 400, 200)), uuid.New())
	require.NoError(t, err)

	thumbPath, err := store.GenerateThumbnail(result.FilePath)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(thumbPath)))
	require.NoError(t, err)
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)

	// Scaled to fit the 100x100 box, aspect ratio preserved.
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestGenerateThumbnailKeepsSmallImages(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStorage(dir, 1<<20, 10<<20, 100, 100)

	result, err := store.Save(makeFileHeader(t, "small.png", pngBytes(t, 40, 30)), uuid.New())
	require.NoError(t, err)

	thumbPath, err := store.GenerateThumbnail(result.FilePath)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(thumbPath)))
	require.NoError(t, err)
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStorage(dir, 1<<20, 10<<20, 100, 100)

	result, err := store.Save(makeFileHeader(t, "gone.png", pngBytes(t, 10, 10)), uuid.New())
	require.NoError(t, err)

	thumbPath, err := store.GenerateThumbnail(result.FilePath)
	require.NoError(t, err)

	require.NoError(t, store.Delete(result.FilePath, thumbPath))

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(result.FilePath)))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(thumbPath)))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is not an error.
	assert.NoError(t, store.Delete(result.FilePath, thumbPath))
}
