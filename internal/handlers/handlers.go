package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"debtster_routes/internal/repository/audit"
	importitems "debtster_routes/internal/repository/imports"
	"debtster_routes/internal/services/collections"
	"debtster_routes/internal/services/importer"
	"debtster_routes/internal/transport/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/minio/minio-go/v7"
	"github.com/sirupsen/logrus"
)

type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type ImportRecords interface {
	Insert(ctx context.Context, rec importitems.Record) (string, error)
}

type Importer interface {
	Import(ctx context.Context, req importer.Request) (importer.Result, error)
}

type DenialReader interface {
	Recent(ctx context.Context, userID int64, limit int64) ([]audit.Denial, error)
}

// Check is one dependency probe for /health.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Handlers struct {
	Service  *collections.Service
	Importer Importer
	Records  ImportRecords
	Objects  ObjectStore
	Bucket   string
	Checks   []Check
	Log      *logrus.Logger

	// DenialLog is optional; without it the denial log endpoint answers 404.
	DenialLog DenialReader
	// ImportTimeout bounds one background import.
	ImportTimeout time.Duration

	validate *validator.Validate
	imports  sync.WaitGroup
}

func New(svc *collections.Service, imp Importer, records ImportRecords, objects ObjectStore, bucket string, checks []Check, log *logrus.Logger) *Handlers {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handlers{
		Service:  svc,
		Importer: imp,
		Records:  records,
		Objects:  objects,
		Bucket:   bucket,
		Checks:   checks,
		Log:      log,

		ImportTimeout: 15 * time.Minute,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handlers) JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v and runs its validate tags.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		h.JSON(w, http.StatusBadRequest, errorBody{Error: "bad JSON: " + err.Error(), Kind: "invalid_input"})
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
			}
			h.JSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Kind: "invalid_input", Details: details})
			return false
		}
		h.JSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "invalid_input"})
		return false
	}
	return true
}

// Wait blocks until background imports started by Import have finished.
func (h *Handlers) Wait() { h.imports.Wait() }

func token(r *http.Request) string {
	return auth.TokenFrom(r.Context())
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(mux.Vars(r)[name])
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad %s %q", name, raw)
	}
	return id, nil
}
