package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"debtster_routes/internal/services/importer"

	"github.com/sirupsen/logrus"
)

type importRequest struct {
	Type           string `json:"type" validate:"required,oneof=clients debts route_stops assignments noop"`
	FilePath       string `json:"file_path" validate:"required"`
	BatchSize      int    `json:"batch_size" validate:"gte=0,lte=10000"`
	TimeoutMin     int    `json:"timeout_minutes,omitempty" validate:"gte=0,lte=240"`
	ImportRecordID string `json:"import_record_id"`
}

// Import starts a background import and answers 202 right away. Progress is
// visible through the import record.
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Service.AuthorizeAdmin(r.Context(), token(r)); err != nil {
		h.fail(w, r, err)
		return
	}

	var req importRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.FilePath = strings.TrimSpace(req.FilePath)
	if req.BatchSize <= 0 {
		req.BatchSize = 1000
	}
	timeout := h.ImportTimeout
	if req.TimeoutMin > 0 {
		timeout = time.Duration(req.TimeoutMin) * time.Minute
	}

	reqCopy := req
	h.imports.Add(1)
	go func() {
		defer h.imports.Done()
		start := time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		res, err := h.Importer.Import(ctx, importer.Request{
			Type:           reqCopy.Type,
			FilePath:       reqCopy.FilePath,
			BatchSize:      reqCopy.BatchSize,
			ImportRecordID: reqCopy.ImportRecordID,
		})
		log := h.Log.WithFields(logrus.Fields{
			"type": reqCopy.Type,
			"path": reqCopy.FilePath,
			"took": time.Since(start).String(),
		})
		if err != nil {
			log.Errorf("[IMPORT][ERR][BG] %v", err)
			return
		}
		log.WithFields(logrus.Fields{
			"src":  res.Source,
			"fmt":  res.Format,
			"rows": res.RowsProcessed,
			"size": res.SizeBytes,
		}).Info("[IMPORT][OK][BG]")
	}()

	h.JSON(w, http.StatusAccepted, map[string]any{
		"status":           "started",
		"type":             req.Type,
		"file_path":        req.FilePath,
		"batch_size":       req.BatchSize,
		"import_record_id": req.ImportRecordID,
	})
}
