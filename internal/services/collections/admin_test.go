package collections

import (
	"context"
	"testing"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminOperationsRequireAdmin(t *testing.T) {
	f := testutil.NewFixture(t, today)
	s := newService(f)
	ctx := context.Background()

	_, err := s.CreateClient(ctx, "k7", models.Client{FullName: "A B"})
	assert.ErrorIs(t, err, ports.ErrForbidden)
	_, err = s.CreateRoute(ctx, "k7", models.Route{Name: "North"})
	assert.ErrorIs(t, err, ports.ErrForbidden)
	assert.ErrorIs(t, s.CancelAssignment(ctx, "k7", "a1"), ports.ErrForbidden)
	_, err = s.AuthorizeAdmin(ctx, "")
	assert.ErrorIs(t, err, ports.ErrUnauthenticated)
}

func TestAdminBuildsARoute(t *testing.T) {
	f := testutil.NewFixture(t, today)
	s := newService(f)
	ctx := context.Background()

	c, err := s.CreateClient(ctx, "admin", models.Client{FullName: " Ivanov  Ivan Ivanovich ", Address: "Main 1"})
	require.NoError(t, err)
	assert.Equal(t, "Ivanov", c.LastName)
	assert.Equal(t, "Ivan", c.FirstName)
	assert.Equal(t, "Ivanovich", c.MiddleName)

	d, items, err := s.CreateDebt(ctx, "admin", models.Debt{
		ClientID:         c.ID,
		Number:           "D-100",
		Principal:        testutil.Money("100"),
		Surcharge:        testutil.Money("0.01"),
		Cadence:          models.CadenceDaily,
		Every:            1,
		InstallmentCount: 3,
		StartOn:          testutil.Day(today),
	})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, d.ID, items[0].DebtID)
	assert.True(t, items[2].Amount.Equal(testutil.Money("33.35")))

	r, err := s.CreateRoute(ctx, "admin", models.Route{Name: "North"})
	require.NoError(t, err)
	require.NoError(t, s.ReplaceRouteStops(ctx, "admin", r.ID, []models.RouteStop{testutil.Stop(c.ID, 1)}))

	day := testutil.Day(today)
	a, err := s.CreateAssignment(ctx, "admin", models.RouteAssignment{RouteID: r.ID, CollectorID: 7, Date: &day})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.CreatedBy)
	require.Len(t, a.Stops, 1)
	assert.Equal(t, "Main 1", a.Stops[0].Address)

	w, err := s.DailyRoute(ctx, "k7", 7, day)
	require.NoError(t, err)
	require.Len(t, w.Entries, 1)
	assert.True(t, w.Entries[0].Expected.Equal(testutil.Money("33.33")))

	// the day has started; it can no longer be cancelled
	assert.ErrorIs(t, s.CancelAssignment(ctx, "admin", a.ID), ports.ErrImmutableAssignment)

	require.NoError(t, s.CloseDebt(ctx, "admin", d.ID))
	_, err = s.DailyRoute(ctx, "k7", 7, day)
	require.NoError(t, err)
}

func TestAdminRejectsBadInput(t *testing.T) {
	f := testutil.NewFixture(t, today)
	s := newService(f)
	ctx := context.Background()

	_, err := s.CreateClient(ctx, "admin", models.Client{})
	assert.ErrorIs(t, err, ports.ErrInvalidInput)

	_, _, err = s.CreateDebt(ctx, "admin", models.Debt{ClientID: "missing", InstallmentCount: 1})
	assert.ErrorIs(t, err, ports.ErrNotFound)

	f.Client("c1", "A")
	_, _, err = s.CreateDebt(ctx, "admin", models.Debt{ClientID: "c1", InstallmentCount: 0, StartOn: testutil.Day(today)})
	assert.ErrorIs(t, err, ports.ErrInvalidSchedule)

	r := f.Route("r1", "North")
	err = s.ReplaceRouteStops(ctx, "admin", r, []models.RouteStop{testutil.Stop("c1"), testutil.Stop("c1")})
	assert.ErrorIs(t, err, ports.ErrInvalidInput)

	past := testutil.Day("2025-09-04")
	_, err = s.CreateAssignment(ctx, "admin", models.RouteAssignment{RouteID: r, CollectorID: 7, Date: &past})
	assert.ErrorIs(t, err, ports.ErrImmutableAssignment)
}

func TestAssignmentConflictAcrossCollectors(t *testing.T) {
	f := testutil.NewFixture(t, today)
	s := newService(f)
	ctx := context.Background()
	f.Client("c1", "A")
	r1 := f.Route("r1", "North", testutil.Stop("c1"))
	r2 := f.Route("r2", "South", testutil.Stop("c1"))
	day := testutil.Day("2025-09-06")

	_, err := s.CreateAssignment(ctx, "admin", models.RouteAssignment{RouteID: r1, CollectorID: 7, Date: &day})
	require.NoError(t, err)
	_, err = s.CreateAssignment(ctx, "admin", models.RouteAssignment{RouteID: r2, CollectorID: 8, Date: &day})
	assert.ErrorIs(t, err, ports.ErrAssignmentConflict)
}
