package retry

import (
	"context"
	"time"

	"debtster_routes/internal/metrics"
	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Policy bounds how idempotent store reads are retried.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Base
	if b.InitialInterval <= 0 {
		b.InitialInterval = 100 * time.Millisecond
	}
	b.MaxInterval = p.Max
	if b.MaxInterval <= 0 {
		b.MaxInterval = 2 * time.Second
	}
	b.MaxElapsedTime = 0
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// call runs fn until it succeeds, fails with a non-transient error or the
// policy gives up. Every failure is classified through ports.StoreError.
func call[T any](ctx context.Context, p Policy, log *logrus.Logger, op string, fn func() (T, error)) (T, error) {
	var out T
	err := backoff.RetryNotify(func() error {
		v, err := fn()
		if err == nil {
			out = v
			return nil
		}
		err = ports.StoreError(op, err)
		if ports.Transient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		metrics.StoreRetries.WithLabelValues(op).Inc()
		log.WithFields(logrus.Fields{"op": op, "wait": wait.String()}).Warnf("[STORE][RETRY] %v", err)
	})
	return out, err
}

type Schedules struct {
	Next   ports.ScheduleStore
	Policy Policy
	Log    *logrus.Logger
}

func (s Schedules) GetActiveDebts(ctx context.Context, clientID string) ([]models.Debt, error) {
	return call(ctx, s.Policy, s.Log, "get active debts", func() ([]models.Debt, error) {
		return s.Next.GetActiveDebts(ctx, clientID)
	})
}

func (s Schedules) GetScheduleEntries(ctx context.Context, debtID string, r models.DateRange) ([]models.Installment, error) {
	return call(ctx, s.Policy, s.Log, "get schedule entries", func() ([]models.Installment, error) {
		return s.Next.GetScheduleEntries(ctx, debtID, r)
	})
}

type Assignments struct {
	Next   ports.AssignmentStore
	Policy Policy
	Log    *logrus.Logger
}

func (a Assignments) GetAssignments(ctx context.Context, collectorID int64, date time.Time) ([]models.RouteAssignment, error) {
	return call(ctx, a.Policy, a.Log, "get assignments", func() ([]models.RouteAssignment, error) {
		return a.Next.GetAssignments(ctx, collectorID, date)
	})
}

type holder struct {
	id int64
	ok bool
}

func (a Assignments) AssignedCollector(ctx context.Context, clientID string, date time.Time) (int64, bool, error) {
	h, err := call(ctx, a.Policy, a.Log, "assigned collector", func() (holder, error) {
		id, ok, err := a.Next.AssignedCollector(ctx, clientID, date)
		return holder{id, ok}, err
	})
	return h.id, h.ok, err
}

// Ledger retries payment reads only. AppendPayment goes straight through:
// a write that timed out may have committed.
type Ledger struct {
	Next   ports.PaymentLedger
	Policy Policy
	Log    *logrus.Logger
}

func (l Ledger) GetPayments(ctx context.Context, refs []string) ([]models.Payment, error) {
	return call(ctx, l.Policy, l.Log, "get payments", func() ([]models.Payment, error) {
		return l.Next.GetPayments(ctx, refs)
	})
}

type committed struct {
	p  models.Payment
	ok bool
}

func (l Ledger) FindByIdempotencyKey(ctx context.Context, key string) (models.Payment, bool, error) {
	c, err := call(ctx, l.Policy, l.Log, "find by idempotency key", func() (committed, error) {
		p, ok, err := l.Next.FindByIdempotencyKey(ctx, key)
		return committed{p, ok}, err
	})
	return c.p, c.ok, err
}

func (l Ledger) AppendPayment(ctx context.Context, p models.Payment) (models.Payment, error) {
	return l.Next.AppendPayment(ctx, p)
}

type History struct {
	Next   ports.PaymentHistory
	Policy Policy
	Log    *logrus.Logger
}

func (h History) GetPayment(ctx context.Context, id string) (models.Payment, error) {
	return call(ctx, h.Policy, h.Log, "get payment", func() (models.Payment, error) {
		return h.Next.GetPayment(ctx, id)
	})
}

func (h History) ListByCollector(ctx context.Context, collectorID int64, r models.DateRange) ([]models.Payment, error) {
	return call(ctx, h.Policy, h.Log, "list payments", func() ([]models.Payment, error) {
		return h.Next.ListByCollector(ctx, collectorID, r)
	})
}
