package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"debtster_routes/internal/ports"
	"debtster_routes/internal/services/export"
	"debtster_routes/internal/timeutil"
)

func (h *Handlers) routeDate(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return h.Service.Today(), nil
	}
	d, err := timeutil.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ports.ErrInvalidDate, err)
	}
	return d, nil
}

// DailyRoute serves GET /collectors/{id}/route?date=YYYY-MM-DD.
func (h *Handlers) DailyRoute(w http.ResponseWriter, r *http.Request) {
	collectorID, err := pathInt64(r, "id")
	if err != nil {
		h.JSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "invalid_input"})
		return
	}
	date, err := h.routeDate(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	wl, err := h.Service.DailyRoute(r.Context(), token(r), collectorID, date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, wl)
}

// RouteSheet serves the same worklist as a printable XLSX.
func (h *Handlers) RouteSheet(w http.ResponseWriter, r *http.Request) {
	collectorID, err := pathInt64(r, "id")
	if err != nil {
		h.JSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "invalid_input"})
		return
	}
	date, err := h.routeDate(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	wl, err := h.Service.DailyRoute(r.Context(), token(r), collectorID, date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := export.RenderRouteSheet(wl)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="route-%d-%s.xlsx"`, collectorID, timeutil.FormatDate(date)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
