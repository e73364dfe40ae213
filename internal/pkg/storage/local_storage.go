package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/Tairs07/Media/internal/constant"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".webm": true, ".mkv": true,
}

// SaveResult describes a file written to local storage. Paths are relative to
// the upload root so they can be served behind a static route.
type SaveResult struct {
	FileName string
	FilePath string
	FileType string
	FileSize int64
	Width    int
	Height   int
}

type LocalStorage struct {
	uploadPath      string
	maxImageSize    int64
	maxVideoSize    int64
	thumbnailWidth  int
	thumbnailHeight int
}

func NewLocalStorage(uploadPath string, maxImageSize, maxVideoSize int64, thumbWidth, thumbHeight int) *LocalStorage {
	return &LocalStorage{
		uploadPath:      uploadPath,
		maxImageSize:    maxImageSize,
		maxVideoSize:    maxVideoSize,
		thumbnailWidth:  thumbWidth,
		thumbnailHeight: thumbHeight,
	}
}

// Save validates and writes an uploaded file under a date-partitioned
// directory. Image dimensions are probed from the stored file.
func (s *LocalStorage) Save(file *multipart.FileHeader, userId uuid.UUID) (*SaveResult, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))

	var fileType string
	switch {
	case imageExtensions[ext]:
		fileType = constant.MediaFileTypeImage
		if file.Size > s.maxImageSize {
			return nil, fmt.Errorf("image exceeds maximum size of %d bytes", s.maxImageSize)
		}
	case videoExtensions[ext]:
		fileType = constant.MediaFileTypeVideo
		if file.Size > s.maxVideoSize {
			return nil, fmt.Errorf("video exceeds maximum size of %d bytes", s.maxVideoSize)
		}
	default:
		return nil, fmt.Errorf("unsupported file extension %s", ext)
	}

	datePart := time.Now().Format("2006/01/02")
	dir := filepath.Join(s.uploadPath, datePart)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	fileName := fmt.Sprintf("%s_%d_%s%s", userId.String(), time.Now().UnixNano(), randomHex(4), ext)
	fullPath := filepath.Join(dir, fileName)

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	result := &SaveResult{
		FileName: fileName,
		FilePath: filepath.ToSlash(filepath.Join(datePart, fileName)),
		FileType: fileType,
		FileSize: written,
	}

	if fileType == constant.MediaFileTypeImage {
		if w, h, err := probeDimensions(fullPath); err == nil {
			result.Width = w
			result.Height = h
		}
	}

	return result, nil
}

// GenerateThumbnail scales an image down to the configured bounds, preserving
// aspect ratio, and writes it as JPEG next to a "thumbs" partition. Returns
// the thumbnail path relative to the upload root.
func (s *LocalStorage) GenerateThumbnail(relativePath string) (string, error) {
	srcPath := filepath.Join(s.uploadPath, filepath.FromSlash(relativePath))

	f, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open source image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), s.thumbnailWidth, s.thumbnailHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	relThumb := filepath.ToSlash(filepath.Join("thumbs", strings.TrimSuffix(filepath.Base(relativePath), filepath.Ext(relativePath))+".jpg"))
	thumbPath := filepath.Join(s.uploadPath, filepath.FromSlash(relThumb))
	if err := os.MkdirAll(filepath.Dir(thumbPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	out, err := os.Create(thumbPath)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: 85}); err != nil {
		os.Remove(thumbPath)
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return relThumb, nil
}

// Delete removes a stored file and its thumbnail if present. Missing files
// are not an error.
func (s *LocalStorage) Delete(relativePath, thumbnailPath string) error {
	if relativePath != "" {
		if err := os.Remove(filepath.Join(s.uploadPath, filepath.FromSlash(relativePath))); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete file: %w", err)
		}
	}
	if thumbnailPath != "" {
		if err := os.Remove(filepath.Join(s.uploadPath, filepath.FromSlash(thumbnailPath))); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete thumbnail: %w", err)
		}
	}
	return nil
}

func probeDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratioW := float64(maxW) / float64(w)
	ratioH := float64(maxH) / float64(h)
	ratio := ratioW
	if ratioH < ratio {
		ratio = ratioH
	}
	nw := int(float64(w) * ratio)
	nh := int(float64(h) * ratio)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()[:n*2]
	}
	return hex.EncodeToString(b)
}
