package handlers

import (
	"context"
	"net/http"
	"time"
)

type healthResp struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors,omitempty"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var errs []string
	for _, c := range h.Checks {
		if err := c.Probe(ctx); err != nil {
			errs = append(errs, c.Name+": "+err.Error())
		}
	}

	resp := healthResp{OK: len(errs) == 0, Errors: errs}
	code := http.StatusOK
	if len(errs) > 0 {
		code = http.StatusServiceUnavailable
	}
	h.JSON(w, code, resp)
}
