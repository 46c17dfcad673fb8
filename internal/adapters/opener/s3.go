package opener

import (
	"context"
	"fmt"
	"io"

	"debtster_routes/internal/ports"

	"github.com/minio/minio-go/v7"
	"github.com/sirupsen/logrus"
)

type S3Client interface {
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
}

type S3Opener struct {
	Client S3Client
	Log    *logrus.Logger
}

func NewS3Opener(cli S3Client, log *logrus.Logger) *S3Opener {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &S3Opener{Client: cli, Log: log}
}

func (s *S3Opener) Open(ctx context.Context, bucket, key string) (io.ReadCloser, ports.Meta, error) {
	log := s.Log.WithFields(logrus.Fields{"bucket": bucket, "key": key})
	log.Debug("[OPENER][S3][START]")
	st, err := s.Client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		log.Warnf("[OPENER][S3][ERR] stat: %v", err)
		return nil, ports.Meta{}, s3Error("stat", err)
	}
	obj, err := s.Client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		log.Warnf("[OPENER][S3][ERR] get: %v", err)
		return nil, ports.Meta{}, s3Error("get", err)
	}
	log.WithFields(logrus.Fields{
		"content_type": st.ContentType,
		"size":         st.Size,
		"etag":         st.ETag,
	}).Debug("[OPENER][S3][OK]")
	return obj, ports.Meta{
		Source:      "s3",
		ContentType: st.ContentType,
		Size:        st.Size,
		Bucket:      bucket,
		Key:         key,
	}, nil
}

func s3Error(op string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: s3 %s: %v", ports.ErrNotFound, op, err)
	case "AccessDenied":
		return fmt.Errorf("s3 %s: %w", op, err)
	}
	return fmt.Errorf("%w: s3 %s: %v", ports.ErrStoreUnavailable, op, err)
}
