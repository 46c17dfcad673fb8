package opener

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"debtster_routes/internal/ports"
	"debtster_routes/internal/testutil"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URL(t *testing.T) {
	b, k, err := parseS3URL("s3://imports/2025/clients.csv")
	require.NoError(t, err)
	assert.Equal(t, "imports", b)
	assert.Equal(t, "2025/clients.csv", k)

	for _, bad := range []string{"s3://", "s3://bucket", "https://x/y"} {
		_, _, err := parseS3URL(bad)
		assert.Error(t, err, bad)
	}
}

func TestHTTPOpenerStatusMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.csv":
			w.Header().Set("Content-Type", "text/csv")
			_, _ = io.WriteString(w, "full_name\nIvanov Ivan\n")
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	op := NewHTTPOpener(srv.Client(), testutil.Logger())
	rc, meta, err := op.Open(context.Background(), srv.URL+"/ok.csv")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "https", meta.Source)
	assert.Equal(t, "text/csv", meta.ContentType)
	assert.Contains(t, string(body), "Ivanov")

	_, _, err = op.Open(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	_, _, err = op.Open(context.Background(), srv.URL+"/busy")
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)
}

type fakeS3 struct {
	statErr error
	bucket  string
	key     string
}

func (f *fakeS3) StatObject(_ context.Context, bucket, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	f.bucket, f.key = bucket, key
	return minio.ObjectInfo{}, f.statErr
}

func (f *fakeS3) GetObject(context.Context, string, string, minio.GetObjectOptions) (*minio.Object, error) {
	return nil, errors.New("unreachable")
}

func TestCompoundOpenerRouting(t *testing.T) {
	s3 := &fakeS3{statErr: minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}}
	c := NewCompoundOpener(nil, NewS3Opener(s3, testutil.Logger()), "uploads")

	_, _, err := c.Open(context.Background(), "imports/x.csv")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	assert.Equal(t, "uploads", s3.bucket)
	assert.Equal(t, "imports/x.csv", s3.key)

	_, _, err = c.Open(context.Background(), "s3://other/y.xlsx")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	assert.Equal(t, "other", s3.bucket)

	_, _, err = c.Open(context.Background(), "https://files.example/z.csv")
	assert.ErrorIs(t, err, ports.ErrInvalidInput)

	s3.statErr = errors.New("dial tcp: refused")
	_, _, err = c.Open(context.Background(), "s3://other/y.xlsx")
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)
}
