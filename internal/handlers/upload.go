package handlers

import (
	"fmt"
	"net/http"
	"path"
	"time"

	importitems "debtster_routes/internal/repository/imports"

	"github.com/minio/minio-go/v7"
	"github.com/sirupsen/logrus"
)

// Upload accepts multipart/form-data with `file` and `type` fields, stores the
// file in the object store and creates an import record for it.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	sc, err := h.Service.AuthorizeAdmin(r.Context(), token(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(128 << 20); err != nil {
		h.Log.Warnf("[UPLOAD][ERR] parse multipart: %v", err)
		h.JSON(w, http.StatusBadRequest, errorBody{Error: "bad multipart: " + err.Error(), Kind: "invalid_input"})
		return
	}

	typ := r.FormValue("type")
	if typ == "" {
		typ = r.FormValue("action")
	}
	if !importitems.KnownModelType(typ) {
		h.JSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("unknown import type %q", typ), Kind: "invalid_input"})
		return
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		h.JSON(w, http.StatusBadRequest, errorBody{Error: "file is required", Kind: "invalid_input"})
		return
	}
	defer f.Close()

	key := fmt.Sprintf("imports/%d-%s", time.Now().UnixNano(), path.Base(fh.Filename))
	size := fh.Size
	if size <= 0 {
		size = -1
	}

	info, err := h.Objects.PutObject(r.Context(), h.Bucket, key, f, size,
		minio.PutObjectOptions{ContentType: fh.Header.Get("Content-Type")})
	if err != nil {
		h.Log.Errorf("[UPLOAD][ERR] s3 put: %v", err)
		h.JSON(w, http.StatusServiceUnavailable, errorBody{Error: "failed to store file", Kind: "store_unavailable"})
		return
	}

	s3path := fmt.Sprintf("s3://%s/%s", h.Bucket, key)
	bucket := h.Bucket
	userID := sc.Session.UserID
	id, err := h.Records.Insert(r.Context(), importitems.Record{
		UserID:    &userID,
		Status:    importitems.StatusParsed,
		Type:      typ,
		Path:      &s3path,
		Bucket:    &bucket,
		Key:       &key,
		SizeBytes: &info.Size,
	})
	if err != nil {
		h.Log.Errorf("[UPLOAD][ERR] record insert: %v", err)
		h.JSON(w, http.StatusServiceUnavailable, errorBody{Error: "failed to create import record", Kind: "store_unavailable"})
		return
	}

	h.Log.WithFields(logrus.Fields{"user_id": userID, "type": typ, "key": key}).Info("[UPLOAD][OK]")
	h.JSON(w, http.StatusCreated, map[string]any{"id": id, "path": s3path})
}
