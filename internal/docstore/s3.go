package docstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/takeoff-cli/internal/config"
)

const uploadPrefix = "uploads/"

// S3 stores documents in an S3-compatible bucket via the MinIO client.
type S3 struct {
	client  *minio.Client
	bucket  string
	region  string
	maxSize int64

	ensureOnce sync.Once
	ensureErr  error
}

// NewS3 builds the client; the bucket is created lazily on first use.
func NewS3(cfg config.DocsConfig) (*S3, error) {
	if cfg.S3Endpoint == "" || cfg.S3Bucket == "" {
		return nil, eris.New("docstore: s3 provider requires endpoint and bucket")
	}
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "docstore: init s3 client")
	}
	return &S3{
		client:  client,
		bucket:  cfg.S3Bucket,
		region:  cfg.S3Region,
		maxSize: cfg.MaxSizeBytes,
	}, nil
}

func (s *S3) ensureBucket(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.ensureErr = eris.Wrapf(err, "docstore: check bucket %s", s.bucket)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			s.ensureErr = eris.Wrapf(err, "docstore: create bucket %s", s.bucket)
		}
	})
	return s.ensureErr
}

func (s *S3) Store(ctx context.Context, name string, r io.Reader, size int64) (Stored, error) {
	if err := validate(name, size, s.maxSize); err != nil {
		return Stored{}, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return Stored{}, err
	}

	ext := strings.ToLower(filepath.Ext(name))
	handle := uploadPrefix + uuid.NewString() + ext

	contentType := "text/plain"
	if ext == ".pdf" {
		contentType = "application/pdf"
	}

	if _, err := s.client.PutObject(ctx, s.bucket, handle, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return Stored{}, eris.Wrapf(err, "docstore: put %s", handle)
	}

	return Stored{
		Handle:       handle,
		OriginalName: name,
		Size:         size,
		StoredAt:     time.Now().UTC(),
	}, nil
}

// Stage downloads the object to a temp file for local processing. The
// caller owns the file; the janitor's temp sweep covers leaks.
func (s *S3) Stage(ctx context.Context, handle string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	path := filepath.Join(os.TempDir(), "takeoff-stage-"+filepath.Base(handle))
	if err := s.client.FGetObject(ctx, s.bucket, handle, path, minio.GetObjectOptions{}); err != nil {
		return "", eris.Wrapf(err, "docstore: fetch %s", handle)
	}
	return path, nil
}

func (s *S3) Delete(ctx context.Context, handle string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, handle, minio.RemoveObjectOptions{}); err != nil {
		return eris.Wrapf(err, "docstore: delete %s", handle)
	}
	return nil
}

func (s *S3) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return 0, err
	}

	removed := 0
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    uploadPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return removed, eris.Wrapf(obj.Err, "docstore: list bucket %s", s.bucket)
		}
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			zap.L().Warn("purge failed for object", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
