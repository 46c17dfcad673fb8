package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"debtster_routes/internal/metrics"
	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/services/routing"
	"debtster_routes/internal/timeutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type PaymentRequest struct {
	IdempotencyKey  string
	ClientID        string
	CollectorID     int64
	RecordedBy      int64
	InstallmentRefs []string
	Amount          decimal.Decimal
	// CollectedAt defaults to now.
	CollectedAt time.Time
	Note        string
}

// CorrectionRequest offsets Amount of an existing payment.
type CorrectionRequest struct {
	IdempotencyKey string
	PaymentID      string
	Amount         decimal.Decimal
	RecordedBy     int64
	Note           string
}

// Recorder validates and appends payments. AppendPayment is called at most
// once per submission and never retried here.
type Recorder struct {
	Schedules ports.ScheduleStore
	Ledger    ports.PaymentLedger
	History   ports.PaymentHistory
	ClockSkew time.Duration
	Location  *time.Location
	Now       func() time.Time
	Log       *logrus.Logger
}

func NewRecorder(s ports.ScheduleStore, l ports.PaymentLedger, h ports.PaymentHistory, skew time.Duration, loc *time.Location, log *logrus.Logger) *Recorder {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{Schedules: s, Ledger: l, History: h, ClockSkew: skew, Location: loc, Now: time.Now, Log: log}
}

// CollectionDate is the civil date a request's payment belongs to.
func (r *Recorder) CollectionDate(collectedAt time.Time) time.Time {
	if collectedAt.IsZero() {
		collectedAt = r.Now()
	}
	return timeutil.Date(collectedAt, r.Location)
}

// RecordPayment appends a collected payment. A replayed idempotency key
// returns the stored payment together with ErrDuplicateSubmission.
func (r *Recorder) RecordPayment(ctx context.Context, req PaymentRequest) (models.Payment, error) {
	p, err := r.record(ctx, req)
	metrics.PaymentsRecorded.WithLabelValues(metrics.Outcome(err)).Inc()
	return p, err
}

func (r *Recorder) record(ctx context.Context, req PaymentRequest) (models.Payment, error) {
	if req.IdempotencyKey == "" {
		return models.Payment{}, ports.ErrMissingIdempotencyKey
	}
	if p, ok, err := r.committed(ctx, req.IdempotencyKey); ok || err != nil {
		return p, err
	}
	if !req.Amount.IsPositive() {
		return models.Payment{}, fmt.Errorf("%w: %s", ports.ErrInvalidAmount, req.Amount)
	}
	now := r.Now().UTC()
	collectedAt := req.CollectedAt
	if collectedAt.IsZero() {
		collectedAt = now
	}
	if collectedAt.After(now.Add(r.ClockSkew)) {
		return models.Payment{}, fmt.Errorf("%w: collected_at %s is in the future", ports.ErrInvalidDate, collectedAt.Format(time.RFC3339))
	}

	book, err := routing.LoadBook(ctx, r.Schedules, r.Ledger, req.ClientID)
	if err != nil {
		return models.Payment{}, err
	}
	refs, err := r.resolveRefs(book, req.InstallmentRefs, timeutil.Date(collectedAt, r.Location))
	if err != nil {
		return models.Payment{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Payment{}, err
	}

	recordedBy := req.RecordedBy
	if recordedBy == 0 {
		recordedBy = req.CollectorID
	}
	p := models.Payment{
		ID:              uuid.NewString(),
		IdempotencyKey:  req.IdempotencyKey,
		ClientID:        req.ClientID,
		CollectorID:     req.CollectorID,
		RecordedBy:      recordedBy,
		Amount:          req.Amount,
		InstallmentRefs: refs,
		CollectedAt:     collectedAt.UTC(),
		CreatedAt:       now,
		Note:            req.Note,
	}
	return r.append(ctx, p)
}

func (r *Recorder) resolveRefs(book routing.Book, refs []string, date time.Time) ([]string, error) {
	if len(book.Installments) == 0 {
		return nil, fmt.Errorf("client %s has no open installments: %w", book.ClientID, ports.ErrUnknownInstallment)
	}
	if len(refs) == 0 {
		refs = book.DefaultRefs(date)
		if len(refs) == 0 {
			// fully paid: the surplus lands on the last installment as credit
			refs = []string{book.Installments[len(book.Installments)-1].ID}
		}
		return refs, nil
	}
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, id := range refs {
		if _, ok := book.Installment(id); !ok {
			return nil, fmt.Errorf("installment %s of client %s: %w", id, book.ClientID, ports.ErrUnknownInstallment)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// CorrectPayment appends a negative entry offsetting part or all of a
// payment. The offset inherits the corrected payment's installment refs.
func (r *Recorder) CorrectPayment(ctx context.Context, req CorrectionRequest) (models.Payment, error) {
	p, err := r.correct(ctx, req)
	metrics.PaymentsRecorded.WithLabelValues("correction_" + metrics.Outcome(err)).Inc()
	return p, err
}

func (r *Recorder) correct(ctx context.Context, req CorrectionRequest) (models.Payment, error) {
	if req.IdempotencyKey == "" {
		return models.Payment{}, ports.ErrMissingIdempotencyKey
	}
	if p, ok, err := r.committed(ctx, req.IdempotencyKey); ok || err != nil {
		return p, err
	}
	if !req.Amount.IsPositive() {
		return models.Payment{}, fmt.Errorf("%w: correction amount %s", ports.ErrInvalidAmount, req.Amount)
	}
	orig, err := r.History.GetPayment(ctx, req.PaymentID)
	if err != nil {
		return models.Payment{}, ports.StoreError("get payment", err)
	}
	if orig.IsCorrection() {
		return models.Payment{}, fmt.Errorf("%w: payment %s is itself a correction", ports.ErrInvalidAmount, orig.ID)
	}

	related, err := r.Ledger.GetPayments(ctx, orig.InstallmentRefs)
	if err != nil {
		return models.Payment{}, ports.StoreError("get payments", err)
	}
	net := orig.Amount
	for _, p := range related {
		if p.CorrectsPaymentID != nil && *p.CorrectsPaymentID == orig.ID {
			net = net.Add(p.Amount)
		}
	}
	if req.Amount.GreaterThan(net) {
		return models.Payment{}, fmt.Errorf("%w: offset %s exceeds remaining %s of payment %s", ports.ErrInvalidAmount, req.Amount, net, orig.ID)
	}
	if err := ctx.Err(); err != nil {
		return models.Payment{}, err
	}

	now := r.Now().UTC()
	origID := orig.ID
	return r.append(ctx, models.Payment{
		ID:                uuid.NewString(),
		IdempotencyKey:    req.IdempotencyKey,
		ClientID:          orig.ClientID,
		CollectorID:       orig.CollectorID,
		RecordedBy:        req.RecordedBy,
		Amount:            req.Amount.Neg(),
		InstallmentRefs:   append([]string(nil), orig.InstallmentRefs...),
		CollectedAt:       now,
		CreatedAt:         now,
		CorrectsPaymentID: &origID,
		Note:              req.Note,
	})
}

// committed reports a payment already stored under key. A hit comes back
// with ErrDuplicateSubmission whatever state the client's debts are in now.
func (r *Recorder) committed(ctx context.Context, key string) (models.Payment, bool, error) {
	p, ok, err := r.Ledger.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return models.Payment{}, false, ports.StoreError("find by idempotency key", err)
	}
	if !ok {
		return models.Payment{}, false, nil
	}
	r.Log.WithFields(logrus.Fields{
		"idempotency_key": key,
		"client_id":       p.ClientID,
		"payment_id":      p.ID,
	}).Info("[PAY][DUP]")
	return p, true, fmt.Errorf("key %s: %w", key, ports.ErrDuplicateSubmission)
}

func (r *Recorder) append(ctx context.Context, p models.Payment) (models.Payment, error) {
	fields := logrus.Fields{
		"idempotency_key": p.IdempotencyKey,
		"client_id":       p.ClientID,
		"collector_id":    p.CollectorID,
		"amount":          p.Amount.String(),
	}
	stored, err := r.Ledger.AppendPayment(ctx, p)
	switch {
	case err == nil:
		r.Log.WithFields(fields).WithField("payment_id", stored.ID).Info("[PAY][OK]")
		return stored, nil
	case errors.Is(err, ports.ErrDuplicateSubmission):
		r.Log.WithFields(fields).WithField("payment_id", stored.ID).Info("[PAY][DUP]")
		return stored, err
	default:
		err = ports.StoreError("append payment", err)
		r.Log.WithFields(fields).Warnf("[PAY][ERR] %v", err)
		return models.Payment{}, err
	}
}
