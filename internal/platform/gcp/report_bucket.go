package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

// ErrObjectNotFound is returned by Retrieve for a missing object.
var ErrObjectNotFound = errors.New("gcs object not found")

// ReportBucket stores generated report files in a single GCS bucket.
type ReportBucket struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
	prefix string
}

func NewReportBucket(ctx context.Context, log *logger.Logger, cfg ObjectStorageConfig) (*ReportBucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	b := &ReportBucket{
		log:    log.With("service", "ReportBucket"),
		client: client,
		bucket: strings.TrimSpace(cfg.Bucket),
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}
	b.log.Info("Report storage initialized", "mode", cfg.Mode, "bucket", b.bucket, "emulator_host", cfg.EmulatorHost)
	return b, nil
}

func newStorageClient(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	if cfg.IsEmulatorMode() {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"))
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := append(ClientOptions(cfg.Credentials), option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func (b *ReportBucket) objectName(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if b.prefix == "" {
		return key
	}
	return path.Join(b.prefix, key)
}

// Store writes data under key and returns a gs:// path.
func (b *ReportBucket) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	name := b.objectName(key)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.client.Bucket(b.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gcs object %q: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close gcs writer %q: %w", name, err)
	}
	return "gs://" + b.bucket + "/" + name, nil
}

// Retrieve accepts either a gs:// path returned by Store or a bare object name.
func (b *ReportBucket) Retrieve(ctx context.Context, p string) ([]byte, error) {
	name := strings.TrimPrefix(strings.TrimSpace(p), "gs://"+b.bucket+"/")
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	r, err := b.client.Bucket(b.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open gcs object %q: %w", name, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *ReportBucket) Close() error {
	return b.client.Close()
}
