package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/services/ledger"
	"debtster_routes/internal/timeutil"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type paymentRequest struct {
	IdempotencyKey  string          `json:"idempotency_key" validate:"max=128"`
	ClientID        string          `json:"client_id" validate:"required,max=64"`
	CollectorID     int64           `json:"collector_id" validate:"gte=0"`
	InstallmentRefs []string        `json:"installment_refs" validate:"max=100,dive,required"`
	Amount          decimal.Decimal `json:"amount"`
	CollectedAt     *time.Time      `json:"collected_at"`
	Note            string          `json:"note" validate:"max=500"`
}

func (p paymentRequest) toLedger() ledger.PaymentRequest {
	req := ledger.PaymentRequest{
		IdempotencyKey:  strings.TrimSpace(p.IdempotencyKey),
		ClientID:        p.ClientID,
		CollectorID:     p.CollectorID,
		InstallmentRefs: p.InstallmentRefs,
		Amount:          p.Amount,
		Note:            p.Note,
	}
	if p.CollectedAt != nil {
		req.CollectedAt = *p.CollectedAt
	}
	return req
}

type paymentResponse struct {
	Payment   models.Payment `json:"payment"`
	Duplicate bool           `json:"duplicate"`
}

// RecordPayment serves POST /payments. A replayed idempotency key answers
// 200 with the stored payment.
func (h *Handlers) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var body paymentRequest
	if !h.decode(w, r, &body) {
		return
	}
	if body.IdempotencyKey == "" {
		body.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	p, err := h.Service.RecordPayment(r.Context(), token(r), body.toLedger())
	switch {
	case err == nil:
		h.JSON(w, http.StatusCreated, paymentResponse{Payment: p})
	case errors.Is(err, ports.ErrDuplicateSubmission):
		h.JSON(w, http.StatusOK, paymentResponse{Payment: p, Duplicate: true})
	default:
		h.fail(w, r, err)
	}
}

type syncRequest struct {
	Items []paymentRequest `json:"items" validate:"required,max=500,dive"`
}

type syncItem struct {
	IdempotencyKey string          `json:"idempotency_key"`
	Status         string          `json:"status"`
	Payment        *models.Payment `json:"payment,omitempty"`
	Kind           string          `json:"kind,omitempty"`
	Error          string          `json:"error,omitempty"`
	Retryable      bool            `json:"retryable,omitempty"`
}

// SyncPayments serves POST /payments/sync: an ordered offline batch with one
// outcome per item.
func (h *Handlers) SyncPayments(w http.ResponseWriter, r *http.Request) {
	var body syncRequest
	if !h.decode(w, r, &body) {
		return
	}
	reqs := make([]ledger.PaymentRequest, len(body.Items))
	for i, it := range body.Items {
		reqs[i] = it.toLedger()
	}

	results := h.Service.SyncPayments(r.Context(), token(r), reqs)
	out := make([]syncItem, len(results))
	for i, res := range results {
		item := syncItem{IdempotencyKey: res.IdempotencyKey}
		switch {
		case res.Err != nil:
			item.Status = "error"
			item.Kind = ports.Kind(res.Err)
			item.Error = res.Err.Error()
			item.Retryable = ports.Transient(res.Err)
		case res.Duplicate:
			item.Status = "duplicate"
		default:
			item.Status = "ok"
		}
		if res.Payment.ID != "" {
			p := res.Payment
			item.Payment = &p
		}
		out[i] = item
	}
	h.JSON(w, http.StatusOK, map[string]any{"items": out})
}

// Payments serves GET /collectors/{id}/payments?from=&to=.
func (h *Handlers) Payments(w http.ResponseWriter, r *http.Request) {
	collectorID, err := pathInt64(r, "id")
	if err != nil {
		h.JSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "invalid_input"})
		return
	}
	var rng models.DateRange
	for name, dst := range map[string]*time.Time{"from": &rng.From, "to": &rng.To} {
		raw := strings.TrimSpace(r.URL.Query().Get(name))
		if raw == "" {
			continue
		}
		d, err := timeutil.ParseDate(raw)
		if err != nil {
			h.fail(w, r, errors.Join(ports.ErrInvalidDate, err))
			return
		}
		*dst = d
	}
	list, err := h.Service.Payments(r.Context(), token(r), collectorID, rng)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]any{"items": list, "count": len(list)})
}

type correctionRequest struct {
	IdempotencyKey string          `json:"idempotency_key" validate:"max=128"`
	Amount         decimal.Decimal `json:"amount"`
	Note           string          `json:"note" validate:"required,max=500"`
}

// CorrectPayment serves POST /payments/{id}/corrections.
func (h *Handlers) CorrectPayment(w http.ResponseWriter, r *http.Request) {
	var body correctionRequest
	if !h.decode(w, r, &body) {
		return
	}
	if body.IdempotencyKey == "" {
		body.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	p, err := h.Service.CorrectPayment(r.Context(), token(r), ledger.CorrectionRequest{
		IdempotencyKey: body.IdempotencyKey,
		PaymentID:      mux.Vars(r)["id"],
		Amount:         body.Amount,
		Note:           body.Note,
	})
	switch {
	case err == nil:
		h.JSON(w, http.StatusCreated, paymentResponse{Payment: p})
	case errors.Is(err, ports.ErrDuplicateSubmission):
		h.JSON(w, http.StatusOK, paymentResponse{Payment: p, Duplicate: true})
	default:
		h.fail(w, r, err)
	}
}
