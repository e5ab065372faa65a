package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperengineering/lifequality/internal/config"
	"github.com/hyperengineering/lifequality/internal/types"
)

// errObjectNotFound is returned by objectClient implementations for a missing key.
var errObjectNotFound = errors.New("object not found")

// objectClient defines the minimal minio.Client operations used by S3Store.
// This interface enables testing with mock implementations.
type objectClient interface {
	GetObject(ctx context.Context, bucket, objectName string) ([]byte, error)
	PutObject(ctx context.Context, bucket, objectName string, data []byte) error
}

// minioClientWrapper adapts *minio.Client to objectClient.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) GetObject(ctx context.Context, bucket, objectName string) ([]byte, error) {
	obj, err := w.client.GetObject(ctx, bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinioErr(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateMinioErr(err)
	}
	return data, nil
}

func (w *minioClientWrapper) PutObject(ctx context.Context, bucket, objectName string, data []byte) error {
	_, err := w.client.PutObject(ctx, bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}

func translateMinioErr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return errObjectNotFound
	}
	return err
}

// S3Store keeps documents as objects in an S3-compatible bucket.
// PutObject replaces an object atomically, so readers never see a gap.
type S3Store struct {
	client objectClient
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Store connects to the configured bucket. No request is made until
// the first Get or Put.
func NewS3Store(cfg config.BlobConfig) (*S3Store, error) {
	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Store{
		client: &minioClientWrapper{client: client},
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		now:    time.Now,
	}, nil
}

func (s *S3Store) Get(ctx context.Context, name string) (types.Document, error) {
	data, err := s.client.GetObject(ctx, s.bucket, s.objectKey(name))
	if errors.Is(err, errObjectNotFound) {
		observe("get", "s3", "absent")
		return types.Document{}, nil
	}
	if err != nil {
		observe("get", "s3", "error")
		return nil, fmt.Errorf("get object %s: %w", name, err)
	}
	doc, err := Decode(data)
	if err != nil {
		observe("get", "s3", "error")
		return nil, fmt.Errorf("get object %s: %w", name, err)
	}
	observe("get", "s3", "ok")
	return doc, nil
}

func (s *S3Store) Put(ctx context.Context, name string, doc types.Document) error {
	data, err := Encode(doc, s.now())
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}
	if err := s.client.PutObject(ctx, s.bucket, s.objectKey(name), data); err != nil {
		observe("put", "s3", "error")
		return fmt.Errorf("put object %s: %w", name, err)
	}
	observe("put", "s3", "ok")
	return nil
}

// objectKey returns the object key for a document.
// Convention: {prefix}{name}.json
func (s *S3Store) objectKey(name string) string {
	return s.prefix + name + ".json"
}
