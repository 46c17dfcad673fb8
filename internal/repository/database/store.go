package database

import (
	"errors"
	"fmt"

	"debtster_routes/internal/config/connections/postgres"
	"debtster_routes/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Store bundles the PostgreSQL repos behind every store port.
type Store struct {
	*ClientsRepo
	*DebtsRepo
	*RoutesRepo
	*AssignmentsRepo
	*PaymentsRepo
}

func NewStore(pg *postgres.Postgres) *Store {
	return &Store{
		ClientsRepo:     NewClientsRepo(pg),
		DebtsRepo:       NewDebtsRepo(pg),
		RoutesRepo:      NewRoutesRepo(pg),
		AssignmentsRepo: NewAssignmentsRepo(pg),
		PaymentsRepo:    NewPaymentsRepo(pg),
	}
}

var (
	_ ports.ScheduleStore   = (*Store)(nil)
	_ ports.AssignmentStore = (*Store)(nil)
	_ ports.PaymentLedger   = (*Store)(nil)
	_ ports.PaymentHistory  = (*Store)(nil)
	_ ports.AdminStore      = (*Store)(nil)
)

// notFound maps pgx.ErrNoRows to ports.ErrNotFound.
func notFound(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ports.ErrNotFound)
	}
	return err
}

// money parses a NUMERIC selected as text.
func money(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad amount %q: %w", s, err)
	}
	return d, nil
}
