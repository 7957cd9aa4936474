// Package storage keeps the current audit payload in blob storage: the local
// filesystem, S3 or GCS.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/siteaudit/siteaudit/pkg/audit"
	"github.com/siteaudit/siteaudit/pkg/config"
)

// ErrNotFound is returned by Get when the blob does not exist.
var ErrNotFound = errors.New("blob not found")

// BlobStore abstracts blob storage. Blobs are addressed by site, kind and id.
type BlobStore interface {
	Put(ctx context.Context, site, kind, id string, data []byte) error
	Get(ctx context.Context, site, kind, id string) ([]byte, error)
}

func blobKey(site, kind, id string) string {
	return site + "/" + kind + "/" + id + ".json"
}

// LocalStorage implements BlobStore using the local filesystem.
// Useful for development and the CLI.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(site, kind, id string) string {
	return filepath.Join(s.BaseDir, site, kind, id+".json")
}

// Put stores a blob, replacing any previous one atomically.
func (s *LocalStorage) Put(_ context.Context, site, kind, id string, data []byte) error {
	path := s.path(site, kind, id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Get retrieves a blob.
func (s *LocalStorage) Get(_ context.Context, site, kind, id string) ([]byte, error) {
	data, err := os.ReadFile(s.path(site, kind, id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

const (
	kindPayloads = "payloads"
	currentID    = "current"
)

// PayloadStore implements audit.Store on top of a BlobStore. Only the current
// payload is kept; each save overwrites it.
type PayloadStore struct {
	Blobs BlobStore
	Site  string
}

// NewPayloadStore creates a payload store for one site.
func NewPayloadStore(blobs BlobStore, site string) *PayloadStore {
	if site == "" {
		site = "default"
	}
	return &PayloadStore{Blobs: blobs, Site: site}
}

func (s *PayloadStore) SaveCurrent(ctx context.Context, p *audit.Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := s.Blobs.Put(ctx, s.Site, kindPayloads, currentID, data); err != nil {
		return fmt.Errorf("store current payload: %w", err)
	}
	return nil
}

func (s *PayloadStore) LoadCurrent(ctx context.Context) (*audit.Payload, error) {
	data, err := s.Blobs.Get(ctx, s.Site, kindPayloads, currentID)
	if errors.Is(err, ErrNotFound) {
		return nil, audit.ErrNoPayload
	}
	if err != nil {
		return nil, fmt.Errorf("load current payload: %w", err)
	}
	var p audit.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode current payload: %w", err)
	}
	return &p, nil
}

// New creates the blob store selected by cfg. localDir is used for the local
// backend when cfg.LocalDir is empty.
func New(ctx context.Context, cfg config.StorageConfig, localDir string) (BlobStore, error) {
	switch cfg.Backend {
	case "", "local":
		dir := cfg.LocalDir
		if dir == "" {
			dir = localDir
		}
		return NewLocalStorage(dir), nil
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		})
	case "gcs":
		return NewGCSStorage(ctx, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
