package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/clearcity/api/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore connects to the object store and creates the bucket when it
// does not exist yet.
func NewMinioStore(ctx context.Context, cfg config.MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("Created bucket %s", cfg.Bucket)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, client.EndpointURL().Host)
	}

	return &MinioStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (s *MinioStore) prefix() string {
	return s.publicURL + "/" + s.bucket + "/"
}

func (s *MinioStore) Save(ctx context.Context, folder, ext string, data []byte, contentType string) (string, error) {
	if !validFolder(folder) {
		return "", fmt.Errorf("invalid folder %q", folder)
	}
	key := folder + "/" + ObjectName(ext)

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return s.prefix() + key, nil
}

func (s *MinioStore) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.prefix())
	if !ok {
		return ErrForeignURL
	}
	if _, _, ok := splitKey(key); !ok {
		return ErrForeignURL
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinioStore) List(ctx context.Context, folder string) ([]string, error) {
	if !validFolder(folder) {
		return nil, fmt.Errorf("invalid folder %q", folder)
	}

	var urls []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: folder + "/", Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		urls = append(urls, s.prefix()+obj.Key)
	}
	return urls, nil
}
