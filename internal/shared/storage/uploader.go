package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"ticketry/internal/shared/apperr"
	"ticketry/internal/shared/config"

	"github.com/google/uuid"
)

// Uploader stores event imagery (banners, thumbnails, gallery shots)
// and returns the public URL to embed in the event record.
type Uploader interface {
	Upload(ctx context.Context, file *multipart.FileHeader) (string, error)
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

type localUploader struct {
	dir     string
	baseURL string
	maxSize int64
}

// NewLocalUploader stores files on the local disk under cfg.Path and
// serves them from cfg.BaseURL via gin's static route.
func NewLocalUploader(cfg config.UploadConfig) (Uploader, error) {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &localUploader{
		dir:     cfg.Path,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		maxSize: cfg.MaxSize,
	}, nil
}

func (u *localUploader) Upload(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if file.Size > u.maxSize {
		return "", apperr.Newf(apperr.KindValidation, "file exceeds maximum size of %d bytes", u.maxSize)
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return "", apperr.Newf(apperr.KindValidation, "file type %q is not allowed", ext)
	}

	src, err := file.Open()
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to open upload", err)
	}
	defer src.Close()

	name := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(u.dir, name))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to create file", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to write file", err)
	}
	return u.baseURL + "/" + name, nil
}
