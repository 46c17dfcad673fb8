package collections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"debtster_routes/internal/metrics"
	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/services/gate"
	"debtster_routes/internal/services/ledger"
	"debtster_routes/internal/services/routing"
	"debtster_routes/internal/timeutil"

	"github.com/sirupsen/logrus"
)

// Service is the single entry point for data requests. Every method
// authorizes through the gate before touching a store.
type Service struct {
	Gate     *gate.Gate
	Engine   *routing.Engine
	Recorder *ledger.Recorder
	History  ports.PaymentHistory
	Admin    ports.AdminStore
	Location *time.Location
	Now      func() time.Time
	Log      *logrus.Logger
	// OfflineDays is how many days before today a collector may date a
	// payment. Admin entries are not bounded.
	OfflineDays int
}

const DefaultOfflineDays = 3

func New(g *gate.Gate, e *routing.Engine, r *ledger.Recorder, h ports.PaymentHistory, admin ports.AdminStore, loc *time.Location, log *logrus.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{Gate: g, Engine: e, Recorder: r, History: h, Admin: admin, Location: loc, Now: time.Now, Log: log, OfflineDays: DefaultOfflineDays}
}

// Today is the current route date.
func (s *Service) Today() time.Time {
	return timeutil.Today(s.Now(), s.Location)
}

// DailyRoute returns collectorID's worklist for date.
func (s *Service) DailyRoute(ctx context.Context, token string, collectorID int64, date time.Time) (models.Worklist, error) {
	if _, err := s.Gate.Authorize(ctx, token, gate.OpViewRoute, gate.Scope{CollectorID: collectorID, Date: date}); err != nil {
		return models.Worklist{}, err
	}
	w, err := s.Engine.ComputeDailyRoute(ctx, collectorID, date)
	metrics.RouteComputations.WithLabelValues(metrics.Outcome(err)).Inc()
	return w, err
}

// RecordPayment authorizes and appends one payment. The collector and author
// are taken from the session, never from the request.
func (s *Service) RecordPayment(ctx context.Context, token string, req ledger.PaymentRequest) (models.Payment, error) {
	if req.CollectedAt.IsZero() {
		req.CollectedAt = s.Recorder.Now()
	}
	date := s.Recorder.CollectionDate(req.CollectedAt)
	sc, err := s.Gate.Authorize(ctx, token, gate.OpRecordPayment, gate.Scope{
		CollectorID: req.CollectorID,
		ClientIDs:   []string{req.ClientID},
		Date:        date,
	})
	if err != nil {
		return models.Payment{}, err
	}
	if !sc.IsAdmin() {
		oldest := timeutil.Today(s.Recorder.Now(), s.Recorder.Location).AddDate(0, 0, -s.OfflineDays)
		if date.Before(oldest) {
			return models.Payment{}, fmt.Errorf("%w: collected on %s, collectors may date payments back to %s",
				ports.ErrInvalidDate, timeutil.FormatDate(date), timeutil.FormatDate(oldest))
		}
	}

	req.RecordedBy = sc.Session.UserID
	req.CollectorID = sc.Scope.CollectorID
	if req.CollectorID == 0 {
		// admin entry without a collector: credit whoever holds the client
		holder, ok, err := s.Gate.Assignments.AssignedCollector(ctx, req.ClientID, date)
		if err != nil {
			return models.Payment{}, ports.StoreError("assigned collector", err)
		}
		if ok {
			req.CollectorID = holder
		}
	}
	return s.Recorder.RecordPayment(ctx, req)
}

type SyncResult struct {
	IdempotencyKey string
	Payment        models.Payment
	Duplicate      bool
	Err            error
}

// SyncPayments replays an offline batch in order. A transient failure stops
// the replay; the remaining items are reported unavailable so the client
// resubmits them in the same order.
func (s *Service) SyncPayments(ctx context.Context, token string, reqs []ledger.PaymentRequest) []SyncResult {
	out := make([]SyncResult, 0, len(reqs))
	for i, req := range reqs {
		p, err := s.RecordPayment(ctx, token, req)
		res := SyncResult{IdempotencyKey: req.IdempotencyKey, Payment: p, Err: err}
		if errors.Is(err, ports.ErrDuplicateSubmission) {
			res.Duplicate = true
			res.Err = nil
		}
		out = append(out, res)
		if ports.Transient(err) || ctx.Err() != nil {
			for _, rest := range reqs[i+1:] {
				out = append(out, SyncResult{
					IdempotencyKey: rest.IdempotencyKey,
					Err:            fmt.Errorf("%w: not attempted", ports.ErrStoreUnavailable),
				})
			}
			break
		}
	}
	return out
}

// Payments lists collectorID's payments in r. Collectors only see the
// entries they recorded themselves.
func (s *Service) Payments(ctx context.Context, token string, collectorID int64, r models.DateRange) ([]models.Payment, error) {
	sc, err := s.Gate.Authorize(ctx, token, gate.OpViewPayments, gate.Scope{CollectorID: collectorID})
	if err != nil {
		return nil, err
	}
	collectorID = sc.Scope.CollectorID
	if collectorID == 0 {
		return nil, fmt.Errorf("%w: collector required", ports.ErrNotFound)
	}
	list, err := s.History.ListByCollector(ctx, collectorID, r)
	if err != nil {
		return nil, ports.StoreError("list payments", err)
	}
	if sc.IsAdmin() {
		return list, nil
	}
	authors := map[int64]struct{}{}
	for _, a := range sc.Scope.AuthorIDs {
		authors[a] = struct{}{}
	}
	own := make([]models.Payment, 0, len(list))
	for _, p := range list {
		if _, ok := authors[p.RecordedBy]; ok {
			own = append(own, p)
		}
	}
	return own, nil
}

func (s *Service) CorrectPayment(ctx context.Context, token string, req ledger.CorrectionRequest) (models.Payment, error) {
	sc, err := s.Gate.Authorize(ctx, token, gate.OpCorrectPayment, gate.Scope{})
	if err != nil {
		return models.Payment{}, err
	}
	req.RecordedBy = sc.Session.UserID
	return s.Recorder.CorrectPayment(ctx, req)
}
