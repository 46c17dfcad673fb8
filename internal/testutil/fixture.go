// Package testutil seeds in-memory stores for package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"debtster_routes/internal/models"
	"debtster_routes/internal/repository/memory"
	"debtster_routes/internal/services/schedule"
	"debtster_routes/internal/timeutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type Fixture struct {
	T     *testing.T
	Store *memory.Store
	// Today is the date assignments are validated against.
	Today time.Time
}

func NewFixture(t *testing.T, today string) *Fixture {
	t.Helper()
	return &Fixture{T: t, Store: memory.New(), Today: Day(today)}
}

// Day parses YYYY-MM-DD or panics.
func Day(s string) time.Time {
	d, err := timeutil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Clock returns a fixed time at 10:00 UTC on the given date.
func Clock(date string) func() time.Time {
	t := Day(date).Add(10 * time.Hour)
	return func() time.Time { return t }
}

func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *Fixture) Client(id, name string) string {
	f.T.Helper()
	c, err := f.Store.CreateClient(context.Background(), models.Client{ID: id, FullName: name})
	require.NoError(f.T, err)
	return c.ID
}

// Debt creates a daily debt of count installments of amount each.
func (f *Fixture) Debt(clientID, number string, amount int64, count int, start string) []models.Installment {
	f.T.Helper()
	return f.DebtWith(models.Debt{
		ClientID:         clientID,
		Number:           number,
		Principal:        decimal.NewFromInt(amount * int64(count)),
		Cadence:          models.CadenceDaily,
		Every:            1,
		InstallmentCount: count,
		StartOn:          Day(start),
	})
}

func (f *Fixture) DebtWith(d models.Debt) []models.Installment {
	f.T.Helper()
	d.ID = d.Number
	items, err := schedule.Generate(d)
	require.NoError(f.T, err)
	for i := range items {
		items[i].ID = d.Number + "#" + timeutil.FormatDate(items[i].DueOn)
	}
	_, err = f.Store.CreateDebt(context.Background(), d, items)
	require.NoError(f.T, err)
	return items
}

func (f *Fixture) Route(id, name string, stops ...models.RouteStop) string {
	f.T.Helper()
	r, err := f.Store.CreateRoute(context.Background(), models.Route{ID: id, Name: name, Stops: stops})
	require.NoError(f.T, err)
	return r.ID
}

func Stop(clientID string, position ...int) models.RouteStop {
	s := models.RouteStop{ClientID: clientID}
	if len(position) > 0 {
		p := position[0]
		s.Position = &p
	}
	return s
}

func (f *Fixture) Assign(id string, collectorID int64, routeID, date string, seq int) models.RouteAssignment {
	f.T.Helper()
	d := Day(date)
	a, err := f.Store.CreateAssignment(context.Background(), models.RouteAssignment{
		ID:          id,
		RouteID:     routeID,
		CollectorID: collectorID,
		Date:        &d,
		Seq:         seq,
	}, f.Today)
	require.NoError(f.T, err)
	return a
}

// Pay appends a payment straight to the ledger.
func (f *Fixture) Pay(key string, collectorID int64, clientID, amount, collectedOn string, refs ...string) models.Payment {
	f.T.Helper()
	p, err := f.Store.AppendPayment(context.Background(), models.Payment{
		ID:              "pay-" + key,
		IdempotencyKey:  key,
		ClientID:        clientID,
		CollectorID:     collectorID,
		RecordedBy:      collectorID,
		Amount:          Money(amount),
		InstallmentRefs: refs,
		CollectedAt:     Day(collectedOn).Add(12 * time.Hour),
	})
	require.NoError(f.T, err)
	return p
}
