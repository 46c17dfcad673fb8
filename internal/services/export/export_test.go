package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"debtster_routes/internal/services/routing"
	"debtster_routes/internal/testutil"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type bucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	failKey string
}

func (b *bucket) PutObject(_ context.Context, _, key string, r io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	if key == b.failKey {
		return minio.UploadInfo{}, errors.New("access denied")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return minio.UploadInfo{Key: key, Size: int64(len(data))}, nil
}

func setup(t *testing.T) (*RouteSheetJob, *bucket) {
	f := testutil.NewFixture(t, "2025-09-05")
	f.Client("c1", "Ivanov Ivan")
	f.Client("c2", "Petrov Petr")
	f.Debt("c1", "D1", 20, 10, "2025-09-01")
	f.Debt("c2", "D2", 50, 10, "2025-09-06")
	f.Pay("p1", 7, "c1", "30", "2025-09-01", "D1#2025-09-01")
	f.Assign("a1", 7, f.Route("r1", "North", testutil.Stop("c1")), "2025-09-06", 0)
	f.Assign("a2", 8, f.Route("r2", "South", testutil.Stop("c2")), "2025-09-06", 0)

	log := testutil.Logger()
	e := routing.NewEngine(f.Store, f.Store, f.Store, routing.Config{HorizonDays: 7}, log)
	e.Now = testutil.Clock("2025-09-05")
	b := &bucket{objects: map[string][]byte{}}
	j := NewRouteSheetJob(e, f.Store, b, "exports", nil, log)
	j.Now = testutil.Clock("2025-09-05")
	return j, b
}

func TestRunWritesTomorrowsSheets(t *testing.T) {
	j, b := setup(t)
	keys, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"route-sheets/2025-09-06/7.xlsx", "route-sheets/2025-09-06/8.xlsx"}, keys)

	f, err := excelize.OpenReader(bytes.NewReader(b.objects["route-sheets/2025-09-06/7.xlsx"]))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Route 2025-09-06")
	require.NoError(t, err)
	assert.Equal(t, "Collector 7, 2025-09-06", rows[0][0])
	assert.Equal(t, "Client", rows[2][1])
	// D1 due 09-01..09-06, 30 paid: 09-01 paid, 09-02 partly, four unpaid
	assert.Equal(t, "D1", rows[3][3])
	assert.Equal(t, "2025-09-02", rows[3][5])
	assert.Equal(t, "10.00", rows[3][7])
}

func TestRunContinuesPastOneFailure(t *testing.T) {
	j, b := setup(t)
	b.failKey = "route-sheets/2025-09-06/7.xlsx"
	keys, err := j.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collector 7")
	assert.Equal(t, []string{"route-sheets/2025-09-06/8.xlsx"}, keys)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	j, _ := setup(t)
	assert.Error(t, j.Start("every day"))
	require.NoError(t, j.Start(""))
	j.Stop()
}

func TestSheetKey(t *testing.T) {
	assert.Equal(t, "route-sheets/2025-09-06/12.xlsx", SheetKey(12, "2025-09-06"))
}
