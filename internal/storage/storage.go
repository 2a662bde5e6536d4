package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/clearcity/api/internal/config"
	"github.com/google/uuid"
)

// Folders used to keep report photos apart from profile pictures.
const (
	FolderReports  = "reports"
	FolderProfiles = "profiles"
)

var ErrForeignURL = errors.New("image url is not managed by this store")

// ImageStore persists uploaded images and hands back the public reference
// that is stored in the database.
type ImageStore interface {
	Save(ctx context.Context, folder, ext string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
	List(ctx context.Context, folder string) ([]string, error)
}

// New builds the store selected by cfg.StorageDriver.
func New(ctx context.Context, cfg *config.Config) (ImageStore, error) {
	switch cfg.StorageDriver {
	case "", "local":
		return NewLocalStore(cfg.UploadDir)
	case "minio":
		return NewMinioStore(ctx, cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// ObjectName returns a collision-free name that keeps the upload's extension.
func ObjectName(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return uuid.NewString() + ext
}

func validFolder(folder string) bool {
	return folder == FolderReports || folder == FolderProfiles
}

// splitKey turns "reports/abc.png" into its folder and file name, rejecting
// anything that could escape the folder.
func splitKey(key string) (string, string, bool) {
	folder, name, ok := strings.Cut(key, "/")
	if !ok || !validFolder(folder) || name == "" || name != filepath.Base(name) || name == ".." {
		return "", "", false
	}
	return folder, name, true
}
