// Package offline queues payments captured without connectivity and replays
// them, in capture order, once the device is back online.
package offline

import (
	"context"
	"errors"
	"sync"
	"time"

	"debtster_routes/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrOffline = errors.New("offline")

// Submission is a payment captured on the device.
type Submission struct {
	IdempotencyKey  string          `json:"idempotency_key"`
	ClientID        string          `json:"client_id"`
	CollectorID     int64           `json:"collector_id,omitempty"`
	InstallmentRefs []string        `json:"installment_refs,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	CollectedAt     time.Time       `json:"collected_at"`
	Note            string          `json:"note,omitempty"`
	QueuedAt        time.Time       `json:"-"`
}

type Submitter interface {
	Submit(ctx context.Context, s Submission) error
}

// DeadLetter is a submission the server refused for good.
type DeadLetter struct {
	Submission Submission
	Err        error
	At         time.Time
}

// Buffer is an ordered queue drained by one worker. Items leave the queue
// only when delivered or refused permanently.
type Buffer struct {
	submitter Submitter
	online    func() bool
	log       *logrus.Logger
	now       func() time.Time

	mu        sync.Mutex
	queue     []Submission
	keys      map[string]struct{}
	dead      []DeadLetter
	delivered int

	drainMu sync.Mutex
	kick    chan struct{}
}

func NewBuffer(s Submitter, online func() bool, log *logrus.Logger) *Buffer {
	if online == nil {
		online = func() bool { return true }
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Buffer{
		submitter: s,
		online:    online,
		log:       log,
		now:       time.Now,
		keys:      map[string]struct{}{},
		kick:      make(chan struct{}, 1),
	}
}

// Enqueue appends s and wakes the worker. A key already queued is ignored
// and false is returned.
func (b *Buffer) Enqueue(s Submission) (string, bool) {
	if s.IdempotencyKey == "" {
		s.IdempotencyKey = uuid.NewString()
	}
	b.mu.Lock()
	if _, dup := b.keys[s.IdempotencyKey]; dup {
		b.mu.Unlock()
		return s.IdempotencyKey, false
	}
	if s.QueuedAt.IsZero() {
		s.QueuedAt = b.now().UTC()
	}
	b.keys[s.IdempotencyKey] = struct{}{}
	b.queue = append(b.queue, s)
	b.mu.Unlock()

	b.Notify()
	return s.IdempotencyKey, true
}

// Notify wakes the worker, e.g. when connectivity returns.
func (b *Buffer) Notify() {
	select {
	case b.kick <- struct{}{}:
	default:
	}
}

// Run drains the queue whenever it is notified, until ctx ends.
func (b *Buffer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.kick:
			if err := b.Flush(ctx); err != nil && !errors.Is(err, ErrOffline) {
				b.log.Debugf("[OFFLINE][HOLD] %v", err)
			}
		}
	}
}

// Flush submits queued items in order. It stops at the first transient
// failure and leaves that item at the head of the queue.
func (b *Buffer) Flush(ctx context.Context) error {
	b.drainMu.Lock()
	defer b.drainMu.Unlock()

	for {
		if !b.online() {
			return ErrOffline
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		head, ok := b.head()
		if !ok {
			return nil
		}

		err := b.submitter.Submit(ctx, head)
		fields := logrus.Fields{"idempotency_key": head.IdempotencyKey, "client_id": head.ClientID}
		switch {
		case err == nil || errors.Is(err, ports.ErrDuplicateSubmission):
			b.pop(nil)
			b.log.WithFields(fields).Debug("[OFFLINE][SENT]")
		case Retryable(err):
			b.log.WithFields(fields).Infof("[OFFLINE][HOLD] %v", err)
			return err
		default:
			b.pop(err)
			b.log.WithFields(fields).Warnf("[OFFLINE][DEAD] %v", err)
		}
	}
}

// Retryable reports whether a submission failing with err should stay queued.
// An expired session keeps the queue too: the collector signs in again and
// nothing is lost.
func Retryable(err error) bool {
	return ports.Transient(err) ||
		errors.Is(err, ports.ErrUnauthenticated) ||
		errors.Is(err, ErrOffline) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (b *Buffer) head() (Submission, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return Submission{}, false
	}
	return b.queue[0], true
}

func (b *Buffer) pop(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.queue[0]
	b.queue = b.queue[1:]
	delete(b.keys, s.IdempotencyKey)
	if err != nil {
		b.dead = append(b.dead, DeadLetter{Submission: s, Err: err, At: b.now().UTC()})
		return
	}
	b.delivered++
}

func (b *Buffer) Pending() []Submission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Submission(nil), b.queue...)
}

func (b *Buffer) DeadLetters() []DeadLetter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]DeadLetter(nil), b.dead...)
}

func (b *Buffer) Delivered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delivered
}
