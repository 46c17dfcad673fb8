package routing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/timeutil"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	// HorizonDays is how far past today a route may be requested.
	HorizonDays int
	// CarryForwardDays limits how old an unpaid installment may be and still
	// be carried into a day's worklist. Zero means no limit.
	CarryForwardDays int
	// Concurrency bounds parallel per-client reads.
	Concurrency int
	Location    *time.Location
}

// Engine computes a collector's daily worklist. It holds no state between
// calls and can be rebuilt per request.
type Engine struct {
	Schedules   ports.ScheduleStore
	Assignments ports.AssignmentStore
	Ledger      ports.PaymentLedger
	Cfg         Config
	Now         func() time.Time
	Log         *logrus.Logger
}

func NewEngine(s ports.ScheduleStore, a ports.AssignmentStore, l ports.PaymentLedger, cfg Config, log *logrus.Logger) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{Schedules: s, Assignments: a, Ledger: l, Cfg: cfg, Now: time.Now, Log: log}
}

type stop struct {
	models.RouteStop
	assignmentSeq int
	assignmentID  string
}

// ComputeDailyRoute returns the ordered worklist for collectorID on date.
func (e *Engine) ComputeDailyRoute(ctx context.Context, collectorID int64, date time.Time) (models.Worklist, error) {
	if err := e.checkDate(date); err != nil {
		return models.Worklist{}, err
	}

	assignments, err := e.Assignments.GetAssignments(ctx, collectorID, date)
	if err != nil {
		return models.Worklist{}, ports.StoreError("get assignments", err)
	}
	stops := unionStops(assignments, date)
	if len(stops) == 0 {
		return models.Worklist{}, fmt.Errorf("collector %d on %s: %w", collectorID, timeutil.FormatDate(date), ports.ErrNotAssigned)
	}

	entries := make([]*models.WorklistEntry, len(stops))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Cfg.Concurrency)
	for i, s := range stops {
		g.Go(func() error {
			book, err := LoadBook(gctx, e.Schedules, e.Ledger, s.ClientID)
			if err != nil {
				return fmt.Errorf("client %s: %w", s.ClientID, err)
			}
			entries[i] = e.buildEntry(s.RouteStop, book, date)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.Log.WithFields(logrus.Fields{
			"collector_id": collectorID,
			"date":         timeutil.FormatDate(date),
			"kind":         ports.Kind(err),
		}).Warnf("[ROUTE][ERR] %v", err)
		return models.Worklist{}, err
	}

	out := models.Worklist{
		CollectorID: collectorID,
		Date:        date,
		ComputedAt:  e.Now().UTC(),
		Entries:     make([]models.WorklistEntry, 0, len(entries)),
	}
	for _, en := range entries {
		if en != nil {
			out.Entries = append(out.Entries, *en)
		}
	}

	e.Log.WithFields(logrus.Fields{
		"collector_id": collectorID,
		"date":         timeutil.FormatDate(date),
		"stops":        len(stops),
		"entries":      len(out.Entries),
	}).Debug("[ROUTE][DONE]")
	return out, nil
}

func (e *Engine) checkDate(date time.Time) error {
	if date.IsZero() || !date.Equal(timeutil.Date(date, time.UTC)) || date.Location() != time.UTC {
		return fmt.Errorf("%w: %v is not a calendar date", ports.ErrInvalidDate, date)
	}
	horizon := e.Cfg.HorizonDays
	if horizon < 0 {
		horizon = 0
	}
	limit := timeutil.AddDays(timeutil.Today(e.Now(), e.Cfg.Location), horizon)
	if date.After(limit) {
		return fmt.Errorf("%w: %s is beyond the %d day horizon", ports.ErrInvalidDate, timeutil.FormatDate(date), horizon)
	}
	return nil
}

// unionStops merges the stops of all assignments covering date into visiting
// order: assignment sequence, explicit position, then client id. A client
// keeps its first placement.
func unionStops(assignments []models.RouteAssignment, date time.Time) []stop {
	var all []stop
	for _, a := range assignments {
		if !a.Covers(date) {
			continue
		}
		for _, s := range a.Stops {
			all = append(all, stop{RouteStop: s, assignmentSeq: a.Seq, assignmentID: a.ID})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.assignmentSeq != b.assignmentSeq {
			return a.assignmentSeq < b.assignmentSeq
		}
		if a.assignmentID != b.assignmentID {
			return a.assignmentID < b.assignmentID
		}
		if (a.Position == nil) != (b.Position == nil) {
			return a.Position != nil
		}
		if a.Position != nil && *a.Position != *b.Position {
			return *a.Position < *b.Position
		}
		return a.ClientID < b.ClientID
	})

	seen := make(map[string]struct{}, len(all))
	out := make([]stop, 0, len(all))
	for _, s := range all {
		if _, dup := seen[s.ClientID]; dup {
			continue
		}
		seen[s.ClientID] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (e *Engine) buildEntry(s models.RouteStop, b Book, date time.Time) *models.WorklistEntry {
	entry := models.WorklistEntry{
		ClientID:    s.ClientID,
		ClientName:  s.ClientName,
		Address:     s.Address,
		Position:    s.Position,
		Expected:    decimal.Zero,
		Paid:        decimal.Zero,
		Outstanding: decimal.Zero,
		Credit:      b.Allocation.Credit,
	}

	dueToday := false
	for _, it := range b.Installments {
		paid := b.Allocation.PaidFor(it.ID)
		carried := it.DueOn.Before(date)
		switch {
		case it.DueOn.Equal(date):
			dueToday = true
		case carried:
			if !paid.LessThan(it.Amount) {
				continue
			}
			if e.Cfg.CarryForwardDays > 0 && timeutil.DaysBetween(it.DueOn, date) > e.Cfg.CarryForwardDays {
				continue
			}
		default:
			continue
		}

		outstanding := it.Amount.Sub(paid)
		entry.Lines = append(entry.Lines, models.WorklistLine{
			InstallmentID:  it.ID,
			DebtID:         it.DebtID,
			DebtNumber:     b.Debts[it.DebtID].Number,
			Seq:            it.Seq,
			DueOn:          it.DueOn,
			Expected:       it.Amount,
			Paid:           paid,
			Outstanding:    outstanding,
			Status:         status(paid, outstanding, !carried),
			CarriedForward: carried,
		})
		entry.Expected = entry.Expected.Add(it.Amount)
		entry.Paid = entry.Paid.Add(paid)
	}
	if len(entry.Lines) == 0 {
		return nil
	}
	entry.Outstanding = entry.Expected.Sub(entry.Paid)
	entry.Status = status(entry.Paid, entry.Outstanding, dueToday)
	return &entry
}

// status applies the reconciliation rule in priority order.
func status(paid, outstanding decimal.Decimal, dueToday bool) models.WorklistStatus {
	switch {
	case !outstanding.IsPositive():
		return models.StatusPaid
	case paid.IsPositive():
		return models.StatusPartiallyPaid
	case dueToday:
		return models.StatusPending
	default:
		return models.StatusCarryForward
	}
}
