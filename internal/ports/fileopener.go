package ports

import (
	"context"
	"io"
)

type Meta struct {
	Source      string
	ContentType string
	Size        int64
	Bucket      string
	Key         string
}

// FileOpener resolves an import path (s3://, https:// or a bare key) to a stream.
type FileOpener interface {
	Open(ctx context.Context, filePath string) (io.ReadCloser, Meta, error)
}
