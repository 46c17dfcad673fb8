package routing

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/testutil"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(f *testutil.Fixture, today string, cfg Config) *Engine {
	log := logrus.New()
	log.SetOutput(io.Discard)
	if cfg.HorizonDays == 0 {
		cfg.HorizonDays = 7
	}
	e := NewEngine(f.Store, f.Store, f.Store, cfg, log)
	e.Now = testutil.Clock(today)
	return e
}

func entryFor(t *testing.T, w models.Worklist, clientID string) models.WorklistEntry {
	t.Helper()
	for _, e := range w.Entries {
		if e.ClientID == clientID {
			return e
		}
	}
	t.Fatalf("client %s not in worklist", clientID)
	return models.WorklistEntry{}
}

func TestInstallmentDueTodayIsPending(t *testing.T) {
	f := testutil.NewFixture(t, "2025-09-05")
	f.Client("c1", "Ivanov Ivan")
	f.Debt("c1", "D1", 20, 5, "2025-09-05")
	f.Assign("a1", 7, f.Route("r1", "North", testutil.Stop("c1")), "2025-09-05", 0)

	w, err := newEngine(f, "2025-09-05", Config{}).ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-05"))
	require.NoError(t, err)
	require.Len(t, w.Entries, 1)

	e := w.Entries[0]
	assert.Equal(t, models.StatusPending, e.Status)
	assert.Equal(t, "20", e.Expected.String())
	assert.True(t, e.Paid.IsZero())
	assert.Equal(t, "Ivanov Ivan", e.ClientName)
	require.Len(t, e.Lines, 1)
	assert.False(t, e.Lines[0].CarriedForward)
	assert.Equal(t, "D1", e.Lines[0].DebtNumber)

	f.Pay("k1", 7, "c1", "20", "2025-09-05", "D1#2025-09-05")
	w, err = newEngine(f, "2025-09-05", Config{}).ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-05"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, w.Entries[0].Status)
	assert.True(t, w.Entries[0].Outstanding.IsZero())
}

func TestOverpaymentCoversFollowingDays(t *testing.T) {
	f := testutil.NewFixture(t, "2025-09-05")
	f.Client("c1", "Petrov Petr")
	f.Debt("c1", "D1", 20, 5, "2025-09-05")
	route := f.Route("r1", "North", testutil.Stop("c1"))
	f.Assign("a1", 7, route, "2025-09-06", 0)
	f.Assign("a2", 7, route, "2025-09-07", 0)
	f.Pay("k1", 7, "c1", "50", "2025-09-05", "D1#2025-09-05")

	e := newEngine(f, "2025-09-05", Config{})

	w, err := e.ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-06"))
	require.NoError(t, err)
	got := entryFor(t, w, "c1")
	assert.Equal(t, models.StatusPaid, got.Status)
	require.Len(t, got.Lines, 1, "fully paid 09-05 is not carried")

	w, err = e.ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-07"))
	require.NoError(t, err)
	got = entryFor(t, w, "c1")
	assert.Equal(t, models.StatusPartiallyPaid, got.Status)
	assert.Equal(t, "10", got.Paid.String())
	assert.Equal(t, "10", got.Outstanding.String())
}

func TestUnpaidInstallmentsCarryForward(t *testing.T) {
	f := testutil.NewFixture(t, "2025-09-05")
	f.Client("c1", "A")
	f.Client("c2", "B")
	f.Debt("c1", "D1", 20, 5, "2025-09-01")
	f.Debt("c2", "D2", 20, 3, "2025-09-01")
	f.Assign("a1", 7, f.Route("r1", "North", testutil.Stop("c1", 1), testutil.Stop("c2", 2)), "2025-09-05", 0)

	w, err := newEngine(f, "2025-09-05", Config{}).ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-05"))
	require.NoError(t, err)

	c1 := entryFor(t, w, "c1")
	assert.Equal(t, models.StatusPending, c1.Status)
	assert.Equal(t, "100", c1.Expected.String())
	require.Len(t, c1.Lines, 5)
	for _, l := range c1.Lines[:4] {
		assert.True(t, l.CarriedForward)
		assert.Equal(t, models.StatusCarryForward, l.Status)
	}

	c2 := entryFor(t, w, "c2")
	assert.Equal(t, models.StatusCarryForward, c2.Status)
	assert.Equal(t, "60", c2.Outstanding.String())
}

func TestCarryForwardWindow(t *testing.T) {
	f := testutil.NewFixture(t, "2025-09-05")
	f.Client("c1", "A")
	f.Debt("c1", "D1", 20, 5, "2025-09-01")
	f.Assign("a1", 7, f.Route("r1", "North", testutil.Stop("c1")), "2025-09-05", 0)

	w, err := newEngine(f, "2025-09-05", Config{CarryForwardDays: 2}).ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-05"))
	require.NoError(t, err)

	var due []string
	for _, l := range w.Entries[0].Lines {
		due = append(due, l.DueOn.Format("2006-01-02"))
	}
	assert.Equal(t, []string{"2025-09-03", "2025-09-04", "2025-09-05"}, due)
}

func TestComputeIsDeterministic(t *testing.T) {
	f := testutil.NewFixture(t, "2025-09-05")
	for _, c := range []string{"c1", "c2", "c3"} {
		f.Client(c, c)
		f.Debt(c, "D-"+c, 15, 6, "2025-09-02")
	}
	f.Assign("a1", 7, f.Route("r1", "North", testutil.Stop("c3"), testutil.Stop("c1"), testutil.Stop("c2")), "2025-09-05", 0)
	f.Pay("k1", 7, "c1", "40", "2025-09-04", "D-c1#2025-09-02")
	f.Pay("k2", 7, "c2", "7.50", "2025-09-05", "D-c2#2025-09-05")

	e := newEngine(f, "2025-09-05", Config{Concurrency: 3})
	first, err := e.ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-05"))
	require.NoError(t, err)
	for range 5 {
		again, err := e.ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-05"))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAmountsBalance(t *testing.T) {
	f := testutil.NewFixture(t, "2025-09-05")
	f.Client("c1", "A")
	f.Debt("c1", "D1", 33, 4, "2025-09-03")
	f.Debt("c1", "D2", 10, 10, "2025-09-01")
	f.Assign("a1", 7, f.Route("r1", "North", testutil.Stop("c1")), "2025-09-05", 0)
	f.Pay("k1", 7, "c1", "12.34", "2025-09-03", "D1#2025-09-03")
	f.Pay("k2", 7, "c1", "25", "2025-09-04", "D2#2025-09-02", "D2#2025-09-03")

	w, err := newEngine(f, "2025-09-05", Config{}).ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-05"))
	require.NoError(t, err)
	e := w.Entries[0]
	assert.True(t, e.Expected.Sub(e.Paid).Equal(e.Outstanding))
	for _, l := range e.Lines {
		assert.True(t, l.Expected.Sub(l.Paid).Equal(l.Outstanding), l.InstallmentID)
		assert.False(t, l.Paid.IsNegative(), l.InstallmentID)
		assert.False(t, l.Outstanding.IsNegative(), l.InstallmentID)
	}
}

func TestStopOrdering(t *testing.T) {
	f := testutil.NewFixture(t, "2025-09-05")
	for _, c := range []string{"c1", "c2", "c3", "c4", "c5"} {
		f.Client(c, c)
		f.Debt(c, "D-"+c, 10, 1, "2025-09-05")
	}
	late := f.Route("r1", "Late", testutil.Stop("c3", 2), testutil.Stop("c2"), testutil.Stop("c1", 1), testutil.Stop("c5"))
	early := f.Route("r2", "Early", testutil.Stop("c4"), testutil.Stop("c5"))
	f.Assign("a1", 7, late, "2025-09-05", 2)
	f.Assign("a2", 7, early, "2025-09-05", 1)

	w, err := newEngine(f, "2025-09-05", Config{}).ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-05"))
	require.NoError(t, err)

	var order []string
	for _, e := range w.Entries {
		order = append(order, e.ClientID)
	}
	assert.Equal(t, []string{"c4", "c5", "c1", "c3", "c2"}, order)
}

func TestCollectorsSeeDisjointClients(t *testing.T) {
	f := testutil.NewFixture(t, "2025-09-05")
	for _, c := range []string{"c1", "c2", "c3"} {
		f.Client(c, c)
		f.Debt(c, "D-"+c, 10, 3, "2025-09-05")
	}
	f.Assign("a1", 7, f.Route("r1", "North", testutil.Stop("c1"), testutil.Stop("c2")), "2025-09-05", 0)
	f.Assign("a2", 8, f.Route("r2", "South", testutil.Stop("c3")), "2025-09-05", 0)

	e := newEngine(f, "2025-09-05", Config{})
	w7, err := e.ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-05"))
	require.NoError(t, err)
	w8, err := e.ComputeDailyRoute(context.Background(), 8, testutil.Day("2025-09-05"))
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, en := range w7.Entries {
		seen[en.ClientID] = true
	}
	for _, en := range w8.Entries {
		assert.False(t, seen[en.ClientID], en.ClientID)
	}
}

func TestClosedDebtsAreSkipped(t *testing.T) {
	f := testutil.NewFixture(t, "2025-09-05")
	f.Client("c1", "A")
	f.Debt("c1", "D1", 20, 5, "2025-09-05")
	f.Assign("a1", 7, f.Route("r1", "North", testutil.Stop("c1")), "2025-09-05", 0)
	require.NoError(t, f.Store.CloseDebt(context.Background(), "D1", testutil.Day("2025-09-04")))

	w, err := newEngine(f, "2025-09-05", Config{}).ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-05"))
	require.NoError(t, err)
	assert.Empty(t, w.Entries)
}

func TestNoAssignment(t *testing.T) {
	f := testutil.NewFixture(t, "2025-09-05")
	_, err := newEngine(f, "2025-09-05", Config{}).ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-05"))
	assert.ErrorIs(t, err, ports.ErrNotAssigned)
}

func TestRejectsBadDates(t *testing.T) {
	f := testutil.NewFixture(t, "2025-09-05")
	e := newEngine(f, "2025-09-05", Config{HorizonDays: 7})

	cases := map[string]time.Time{
		"zero":           {},
		"not midnight":   testutil.Day("2025-09-05").Add(3 * time.Hour),
		"beyond horizon": testutil.Day("2025-09-13"),
	}
	for name, d := range cases {
		_, err := e.ComputeDailyRoute(context.Background(), 7, d)
		assert.ErrorIs(t, err, ports.ErrInvalidDate, name)
	}

	_, err := e.ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-12"))
	assert.ErrorIs(t, err, ports.ErrNotAssigned, "last day of horizon is accepted")
}

func TestStoreFailureAbortsWholeRoute(t *testing.T) {
	f := testutil.NewFixture(t, "2025-09-05")
	f.Client("c1", "A")
	f.Client("c2", "B")
	f.Debt("c1", "D1", 20, 5, "2025-09-05")
	f.Debt("c2", "D2", 20, 5, "2025-09-05")
	f.Assign("a1", 7, f.Route("r1", "North", testutil.Stop("c1"), testutil.Stop("c2")), "2025-09-05", 0)
	e := newEngine(f, "2025-09-05", Config{})

	for _, op := range []string{"GetAssignments", "GetActiveDebts", "GetScheduleEntries", "GetPayments"} {
		f.Store.FailOn(op, errors.New("connection refused"))
		w, err := e.ComputeDailyRoute(context.Background(), 7, testutil.Day("2025-09-05"))
		assert.ErrorIs(t, err, ports.ErrStoreUnavailable, op)
		assert.Empty(t, w.Entries, op)
		f.Store.FailOn(op, nil)
	}
}
