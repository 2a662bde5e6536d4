package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// URLPrefix is where the router serves the upload directory.
const URLPrefix = "/uploads/"

type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	for _, folder := range []string{FolderReports, FolderProfiles} {
		if err := os.MkdirAll(filepath.Join(root, folder), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}
	log.Printf("Storing uploads under %s", root)
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Save(ctx context.Context, folder, ext string, data []byte, contentType string) (string, error) {
	if !validFolder(folder) {
		return "", fmt.Errorf("invalid folder %q", folder)
	}
	name := ObjectName(ext)
	if err := os.WriteFile(filepath.Join(s.root, folder, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return URLPrefix + path.Join(folder, name), nil
}

// Delete removes the file behind url. A file that is already gone is not an
// error.
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, URLPrefix)
	if !ok {
		return ErrForeignURL
	}
	folder, name, ok := splitKey(key)
	if !ok {
		return ErrForeignURL
	}

	err := os.Remove(filepath.Join(s.root, folder, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) List(ctx context.Context, folder string) ([]string, error) {
	if !validFolder(folder) {
		return nil, fmt.Errorf("invalid folder %q", folder)
	}
	entries, err := os.ReadDir(filepath.Join(s.root, folder))
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		urls = append(urls, URLPrefix+path.Join(folder, e.Name()))
	}
	return urls, nil
}
