package ports

import (
	"context"
	"time"

	"debtster_routes/internal/models"
)

// ScheduleStore reads debts and their installment schedules.
type ScheduleStore interface {
	GetActiveDebts(ctx context.Context, clientID string) ([]models.Debt, error)
	GetScheduleEntries(ctx context.Context, debtID string, r models.DateRange) ([]models.Installment, error)
}

// AssignmentStore reads route assignments.
type AssignmentStore interface {
	GetAssignments(ctx context.Context, collectorID int64, date time.Time) ([]models.RouteAssignment, error)
	// AssignedCollector returns the collector visiting clientID on date.
	AssignedCollector(ctx context.Context, clientID string, date time.Time) (int64, bool, error)
}

// PaymentLedger is the append-only payment record.
type PaymentLedger interface {
	GetPayments(ctx context.Context, installmentRefs []string) ([]models.Payment, error)
	// AppendPayment stores p. If p.IdempotencyKey was already committed the
	// stored payment is returned together with ErrDuplicateSubmission.
	AppendPayment(ctx context.Context, p models.Payment) (models.Payment, error)
	// FindByIdempotencyKey returns the payment committed under key, if any.
	FindByIdempotencyKey(ctx context.Context, key string) (models.Payment, bool, error)
}

type PaymentHistory interface {
	GetPayment(ctx context.Context, id string) (models.Payment, error)
	ListByCollector(ctx context.Context, collectorID int64, r models.DateRange) ([]models.Payment, error)
}

// AdminStore carries the administrative mutations around the core.
type AdminStore interface {
	CreateClient(ctx context.Context, c models.Client) (models.Client, error)
	FindClient(ctx context.Context, id string) (models.Client, error)
	CreateDebt(ctx context.Context, d models.Debt, schedule []models.Installment) (models.Debt, error)
	FindDebtByNumber(ctx context.Context, number string) (models.Debt, error)
	CloseDebt(ctx context.Context, debtID string, at time.Time) error
	CreateRoute(ctx context.Context, r models.Route) (models.Route, error)
	FindRouteByName(ctx context.Context, name string) (models.Route, error)
	ReplaceRouteStops(ctx context.Context, routeID string, stops []models.RouteStop) error
	// CreateAssignment rejects past dates and cross-collector client overlap.
	CreateAssignment(ctx context.Context, a models.RouteAssignment, today time.Time) (models.RouteAssignment, error)
	CancelAssignment(ctx context.Context, id string, today time.Time) error
	// CollectorsOn lists collectors holding any assignment covering date.
	CollectorsOn(ctx context.Context, date time.Time) ([]int64, error)
}
