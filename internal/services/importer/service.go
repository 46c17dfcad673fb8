package importer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"debtster_routes/internal/ports"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// MaxFileSize bounds how much of an import file is read into memory.
const MaxFileSize = 64 << 20

type Request struct {
	Type           string
	FilePath       string
	BatchSize      int
	ImportRecordID string
}

type Result struct {
	Source        string
	FilePath      string
	Format        string
	RowsProcessed int
	SHA256        string
	ContentType   string
	Bucket        string
	Key           string
	SizeBytes     int64
}

type Service struct {
	Opener     ports.FileOpener
	Processors map[string]ports.Processor
	Items      ports.ItemLogger
	DefaultBS  int
	Log        *logrus.Logger
}

func NewService(opener ports.FileOpener, registry map[string]ports.Processor, items ports.ItemLogger, defaultBatch int, log *logrus.Logger) *Service {
	if defaultBatch <= 0 {
		defaultBatch = 1000
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{Opener: opener, Processors: registry, Items: items, DefaultBS: defaultBatch, Log: log}
}

// Import streams the file at req.FilePath through the processor for
// req.Type and marks the import record done or failed.
func (s *Service) Import(ctx context.Context, req Request) (Result, error) {
	res, err := s.run(ctx, req)
	if s.Items != nil && req.ImportRecordID != "" {
		var serr error
		if err != nil {
			serr = s.Items.MarkFailed(ctx, req.ImportRecordID, err.Error())
		} else {
			serr = s.Items.MarkDone(ctx, req.ImportRecordID)
		}
		if serr != nil {
			s.Log.WithField("import_record_id", req.ImportRecordID).Warnf("[IMP][ERR] status update: %v", serr)
		}
	}
	return res, err
}

func (s *Service) run(ctx context.Context, req Request) (Result, error) {
	t0 := time.Now()
	ctx = context.WithValue(ctx, ports.CtxImportRecordID, req.ImportRecordID)
	log := s.Log.WithFields(logrus.Fields{
		"type":             req.Type,
		"path":             req.FilePath,
		"import_record_id": req.ImportRecordID,
	})
	log.WithField("batch_size", req.BatchSize).Info("[IMP][START]")

	proc, ok := s.Processors[req.Type]
	if !ok {
		log.Warn("[IMP][ERR] no processor")
		return Result{}, fmt.Errorf("%w: no processor for type %q", ports.ErrInvalidInput, req.Type)
	}

	rc, meta, err := s.Opener.Open(ctx, req.FilePath)
	if err != nil {
		log.Warnf("[IMP][ERR] open: %v", err)
		return Result{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxFileSize+1))
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", req.FilePath, err)
	}
	if len(data) > MaxFileSize {
		return Result{}, fmt.Errorf("%w: file larger than %d bytes", ports.ErrInvalidInput, MaxFileSize)
	}
	sum := sha256.Sum256(data)

	format := detectFormat(req.FilePath, meta.ContentType)
	log.WithFields(logrus.Fields{
		"source":       meta.Source,
		"content_type": meta.ContentType,
		"size":         len(data),
		"format":       format,
	}).Info("[IMP] opened")

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.DefaultBS
	}

	readers := []struct {
		format string
		read   func(context.Context, io.Reader, ports.Processor, int) (int, error)
	}{
		{"xlsx", s.streamXLSXFirstSheet},
		{"csv", s.streamCSV},
	}
	if format == "csv" {
		readers[0], readers[1] = readers[1], readers[0]
	}

	var total int
	var readErr error
	for i, rd := range readers {
		// a second attempt only makes sense if the first one sent nothing
		total, readErr = rd.read(ctx, bytes.NewReader(data), proc, batchSize)
		if readErr == nil {
			format = rd.format
			break
		}
		if total > 0 || ctx.Err() != nil || i == len(readers)-1 {
			break
		}
		log.Warnf("[IMP][%s][ERR] %v, trying %s", strings.ToUpper(rd.format), readErr, readers[i+1].format)
	}
	if readErr != nil {
		log.Warnf("[IMP][ERR] read pipeline: %v", readErr)
		return Result{}, readErr
	}

	log.WithFields(logrus.Fields{
		"format":   format,
		"rows":     total,
		"sha256":   hex.EncodeToString(sum[:]),
		"duration": time.Since(t0).String(),
	}).Info("[IMP][DONE]")

	return Result{
		Source:        meta.Source,
		FilePath:      req.FilePath,
		Format:        format,
		RowsProcessed: total,
		SHA256:        hex.EncodeToString(sum[:]),
		ContentType:   meta.ContentType,
		Bucket:        meta.Bucket,
		Key:           meta.Key,
		SizeBytes:     int64(len(data)),
	}, nil
}

func (s *Service) streamCSV(ctx context.Context, r io.Reader, proc ports.Processor, batchSize int) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if !looksLikeHeader(header) {
		return 0, errors.New("csv header is empty")
	}
	s.Log.WithField("header", header).Debug("[IMP][CSV] header")

	batch := make([]map[string]string, 0, batchSize)
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := proc.ProcessBatch(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return ctx.Err()
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.Log.Warnf("[IMP][CSV][WARN] read row err: %v", err)
			continue
		}
		batch = append(batch, toMap(header, record))
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func (s *Service) streamXLSXFirstSheet(ctx context.Context, r io.Reader, proc ports.Processor, batchSize int) (int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, errors.New("xlsx has no sheets")
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, rows.Error()
	}
	header, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	s.Log.WithFields(logrus.Fields{"sheet": sheets[0], "header": header}).Debug("[IMP][XLSX] header")

	batch := make([]map[string]string, 0, batchSize)
	total := 0
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			s.Log.Warnf("[IMP][XLSX][WARN] read row err: %v", err)
			continue
		}
		if len(cols) == 0 {
			continue
		}
		batch = append(batch, toMap(header, cols))
		if len(batch) >= batchSize {
			if err := proc.ProcessBatch(ctx, batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = batch[:0]
			if err := ctx.Err(); err != nil {
				return total, err
			}
		}
	}
	if err := rows.Error(); err != nil {
		return total, err
	}
	if len(batch) > 0 {
		if err := proc.ProcessBatch(ctx, batch); err != nil {
			return total, err
		}
		total += len(batch)
	}
	return total, nil
}

// ---------- helpers ----------

func toMap(header []string, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, key := range header {
		val := ""
		if i < len(row) {
			val = row[i]
		}
		m[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return m
}

func looksLikeHeader(h []string) bool {
	for _, c := range h {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}

func detectFormat(filePath, contentType string) string {
	p := filePath
	if u, err := url.Parse(filePath); err == nil && u != nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	switch ext {
	case "xlsx":
		return "xlsx"
	case "csv":
		return "csv"
	}
	med, _, _ := mime.ParseMediaType(contentType)
	switch med {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "xlsx"
	case "text/csv", "application/csv", "text/plain":
		return "csv"
	}
	return ""
}
