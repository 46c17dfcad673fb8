package s3

import (
	"context"
	"errors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ConnectionInfo locates the bucket holding uploaded import files and the
// nightly route sheets. Endpoint is host:port without a scheme.
type ConnectionInfo struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

type S3 struct {
	Client *minio.Client
	Bucket string
	Region string
}

func NewConnection(info ConnectionInfo) (*S3, error) {
	if info.Bucket == "" {
		return nil, errors.New("s3 bucket is not configured")
	}
	client, err := minio.New(info.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(info.AccessKey, info.SecretKey, ""),
		Secure: info.UseSSL,
		Region: info.Region,
	})
	if err != nil {
		return nil, err
	}

	return &S3{Client: client, Bucket: info.Bucket, Region: info.Region}, nil
}

// EnsureBucket creates the bucket in the configured region on first start.
func (s *S3) EnsureBucket(ctx context.Context) error {
	exists, err := s.Client.BucketExists(ctx, s.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = s.Client.MakeBucket(ctx, s.Bucket, minio.MakeBucketOptions{Region: s.Region})
	if resp := minio.ToErrorResponse(err); resp.Code == "BucketAlreadyOwnedByYou" {
		// another replica won the race
		return nil
	}
	return err
}
