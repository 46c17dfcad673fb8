package importer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"debtster_routes/internal/ports"
	"debtster_routes/internal/repository/memory"
	"debtster_routes/internal/services/importer/processors"
	"debtster_routes/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type files map[string][]byte

func (f files) Open(_ context.Context, p string) (io.ReadCloser, ports.Meta, error) {
	b, ok := f[p]
	if !ok {
		return nil, ports.Meta{}, errors.New("no such file")
	}
	return io.NopCloser(bytes.NewReader(b)), ports.Meta{Source: "test", Size: int64(len(b))}, nil
}

type counting struct {
	batches [][]map[string]string
}

func (c *counting) Type() string { return "count" }

func (c *counting) ProcessBatch(_ context.Context, batch []map[string]string) error {
	c.batches = append(c.batches, append([]map[string]string(nil), batch...))
	return nil
}

func TestImportCSVInBatches(t *testing.T) {
	proc := &counting{}
	items := memory.NewItemLog()
	svc := NewService(files{"a.csv": []byte("\ufeffname , phone\nA, 1\nB,2\nC,3\n")},
		map[string]ports.Processor{"count": proc}, items, 2, testutil.Logger())

	res, err := svc.Import(context.Background(), Request{Type: "count", FilePath: "a.csv", ImportRecordID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "csv", res.Format)
	assert.Equal(t, 3, res.RowsProcessed)
	require.Len(t, proc.batches, 2)
	assert.Equal(t, map[string]string{"name": "A", "phone": "1"}, proc.batches[0][0])
	assert.Equal(t, "done", items.Status("r1"))
}

func TestImportXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"full_name", "address"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Ivanov Ivan", "Main 1"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	proc := &counting{}
	svc := NewService(files{"s3://bucket/clients": buf.Bytes()},
		map[string]ports.Processor{"count": proc}, nil, 0, testutil.Logger())
	res, err := svc.Import(context.Background(), Request{Type: "count", FilePath: "s3://bucket/clients"})
	require.NoError(t, err)
	assert.Equal(t, "xlsx", res.Format)
	require.Len(t, proc.batches, 1)
	assert.Equal(t, "Main 1", proc.batches[0][0]["address"])
}

func TestImportUnknownTypeMarksFailed(t *testing.T) {
	items := memory.NewItemLog()
	svc := NewService(files{}, map[string]ports.Processor{}, items, 0, testutil.Logger())
	_, err := svc.Import(context.Background(), Request{Type: "payments", FilePath: "a.csv", ImportRecordID: "r2"})
	assert.ErrorIs(t, err, ports.ErrInvalidInput)
	assert.True(t, strings.HasPrefix(items.Status("r2"), "failed"))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, "xlsx", detectFormat("https://host/x/file.XLSX?sig=1", ""))
	assert.Equal(t, "csv", detectFormat("imports/file", "text/csv; charset=utf-8"))
	assert.Equal(t, "", detectFormat("imports/file", "application/octet-stream"))
}

// A full back-office load: clients, debts, stops and assignments in
// dependency order, all through the default registry.
func TestImportPipelineBuildsRoutes(t *testing.T) {
	store := memory.New()
	items := memory.NewItemLog()
	base := processors.NewBaseProcessor(store, items, time.UTC, testutil.Logger())
	base.Now = testutil.Clock("2025-09-05")
	reg := processors.DefaultRegistry(base)
	svc := NewService(files{
		"clients.csv": []byte("id,full_name,address\n" +
			"11111111-1111-1111-1111-111111111111,Ivanov Ivan,Main 1\n" +
			",,nowhere\n"),
		"debts.csv": []byte("client_id,number,principal,cadence,installment_count,start_on\n" +
			"11111111-1111-1111-1111-111111111111,D-1,100,daily,5,05.09.2025\n" +
			"11111111-1111-1111-1111-111111111111,D-1,100,daily,5,2025-09-05\n"),
		"stops.csv": []byte("route_name,zone,client_id,position\n" +
			"North,Z1,11111111-1111-1111-1111-111111111111,1\n"),
		"assign.csv": []byte("route_name,collector_id,date\nNorth,7,2025-09-06\nNorth,x,2025-09-06\n"),
	}, reg, items, 100, testutil.Logger())

	for _, step := range []struct{ typ, file string }{
		{"clients", "clients.csv"},
		{"debts", "debts.csv"},
		{"route_stops", "stops.csv"},
		{"assignments", "assign.csv"},
	} {
		_, err := svc.Import(context.Background(), Request{Type: step.typ, FilePath: step.file, ImportRecordID: step.typ})
		require.NoError(t, err, step.typ)
		assert.Equal(t, "done", items.Status(step.typ))
	}

	assert.Len(t, items.ByStatus("done"), 4)
	assert.Len(t, items.ByStatus("failed"), 3)

	holder, ok, err := store.AssignedCollector(context.Background(), "11111111-1111-1111-1111-111111111111", testutil.Day("2025-09-06"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), holder)
}
