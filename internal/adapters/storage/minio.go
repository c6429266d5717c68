// Package storage puts survey exports in an S3-compatible bucket and hands
// out presigned links to them.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"fieldsurvey/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// LinkTTL is how long export download links stay valid.
const LinkTTL = 30 * time.Minute

// Object is one upload. Name is the file name the download is offered as.
type Object struct {
	Folder      string
	Name        string
	ContentType string
	Body        io.Reader
	Size        int64
}

// Link is a presigned GET.
type Link struct {
	URL       string
	Key       string
	ExpiresAt time.Time
}

// ObjectStore is the storage surface exports use.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	// Put stores obj under a fresh key and returns the key.
	Put(ctx context.Context, bucket string, obj Object) (string, error)
	PresignGet(ctx context.Context, bucket, key string) (Link, error)
}

type MinIO struct {
	client *minio.Client
	now    func() time.Time
}

// NewMinIO builds a client for the configured endpoint. It does not dial.
func NewMinIO(cfg config.MinIOConfig) (*MinIO, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("minio is not configured")
	}
	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIO{client: client, now: time.Now}, nil
}

func (m *MinIO) EnsureBucket(ctx context.Context, bucket string) error {
	ok, err := m.client.BucketExists(ctx, bucket)
	switch {
	case err != nil:
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	case ok:
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

func (m *MinIO) Put(ctx context.Context, bucket string, obj Object) (string, error) {
	key := ObjectKey(obj.Folder, obj.Name, uuid.NewString()[:8])
	opts := minio.PutObjectOptions{ContentType: obj.ContentType}
	if _, err := m.client.PutObject(ctx, bucket, key, obj.Body, obj.Size, opts); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

func (m *MinIO) PresignGet(ctx context.Context, bucket, key string) (Link, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	u, err := m.client.PresignedGetObject(ctx, bucket, key, LinkTTL, params)
	if err != nil {
		return Link{}, fmt.Errorf("presign %s: %w", key, err)
	}
	return Link{URL: u.String(), Key: key, ExpiresAt: m.now().Add(LinkTTL)}, nil
}

// ObjectKey returns folder/base_suffix.ext. The suffix keeps repeated
// exports of one survey apart.
func ObjectKey(folder, fileName, suffix string) string {
	ext := path.Ext(fileName)
	base := strings.TrimSuffix(path.Base(fileName), ext)
	return path.Join(folder, base+"_"+suffix+ext)
}

var _ ObjectStore = (*MinIO)(nil)
