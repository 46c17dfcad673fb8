package gate

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/testutil"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessions map[string]models.Session

func (s sessions) Resolve(_ context.Context, token string) (models.Session, error) {
	if sess, ok := s[token]; ok {
		return sess, nil
	}
	return models.Session{}, errors.New("token not found")
}

type auditLog struct {
	mu      sync.Mutex
	denials []ports.Denial
}

func (a *auditLog) RecordDenial(_ context.Context, d ports.Denial) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.denials = append(a.denials, d)
}

func setup(t *testing.T) (*Gate, *auditLog, *testutil.Fixture) {
	f := testutil.NewFixture(t, "2025-09-05")
	f.Client("c1", "A")
	f.Client("c2", "B")
	f.Client("c3", "C")
	f.Assign("a1", 7, f.Route("r1", "North", testutil.Stop("c1"), testutil.Stop("c2")), "2025-09-05", 0)
	f.Assign("a2", 8, f.Route("r2", "South", testutil.Stop("c3")), "2025-09-05", 0)

	log := logrus.New()
	log.SetOutput(io.Discard)
	audit := &auditLog{}
	g := New(sessions{
		"admin": {UserID: 1, Role: models.RoleAdmin},
		"k7":    {UserID: 7, Role: models.RoleCollector},
		"k8":    {UserID: 8, Role: models.RoleCollector},
		"odd":   {UserID: 9, Role: "supervisor"},
	}, f.Store, audit, log)
	return g, audit, f
}

func TestUnauthenticated(t *testing.T) {
	g, _, _ := setup(t)
	_, err := g.Authorize(context.Background(), "", OpViewRoute, Scope{CollectorID: 7})
	assert.ErrorIs(t, err, ports.ErrUnauthenticated)
	_, err = g.Authorize(context.Background(), "forged", OpViewRoute, Scope{CollectorID: 7})
	assert.ErrorIs(t, err, ports.ErrUnauthenticated)
}

func TestAdminIsUnrestricted(t *testing.T) {
	g, audit, _ := setup(t)
	for _, op := range []Operation{OpViewRoute, OpRecordPayment, OpViewPayments, OpCorrectPayment, OpAdmin} {
		sc, err := g.Authorize(context.Background(), "admin", op, Scope{CollectorID: 8, ClientIDs: []string{"c1"}, Date: testutil.Day("2025-09-05")})
		require.NoError(t, err, op)
		assert.True(t, sc.IsAdmin())
	}
	assert.Empty(t, audit.denials)
}

func TestCollectorSeesOnlyOwnRoute(t *testing.T) {
	g, audit, _ := setup(t)

	sc, err := g.Authorize(context.Background(), "k7", OpViewRoute, Scope{CollectorID: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), sc.Scope.CollectorID)

	_, err = g.Authorize(context.Background(), "k7", OpViewRoute, Scope{CollectorID: 8})
	assert.ErrorIs(t, err, ports.ErrForbidden)
	require.Len(t, audit.denials, 1)
	assert.Equal(t, int64(7), audit.denials[0].UserID)
	assert.Equal(t, "view-route", audit.denials[0].Operation)
	assert.Equal(t, int64(8), audit.denials[0].Scope["collector_id"])
}

func TestRecordPaymentRequiresAssignment(t *testing.T) {
	g, _, _ := setup(t)
	day := testutil.Day("2025-09-05")

	_, err := g.Authorize(context.Background(), "k7", OpRecordPayment, Scope{ClientIDs: []string{"c1"}, Date: day})
	require.NoError(t, err)

	_, err = g.Authorize(context.Background(), "k7", OpRecordPayment, Scope{ClientIDs: []string{"c3"}, Date: day})
	assert.ErrorIs(t, err, ports.ErrForbidden)

	_, err = g.Authorize(context.Background(), "k7", OpRecordPayment, Scope{ClientIDs: []string{"c1"}, Date: testutil.Day("2025-09-06")})
	assert.ErrorIs(t, err, ports.ErrForbidden, "not assigned on another day")
}

func TestOneOutOfScopeEntityDeniesAll(t *testing.T) {
	g, audit, _ := setup(t)
	_, err := g.Authorize(context.Background(), "k7", OpRecordPayment, Scope{
		ClientIDs: []string{"c1", "c2", "c3"},
		Date:      testutil.Day("2025-09-05"),
	})
	assert.ErrorIs(t, err, ports.ErrForbidden)
	require.Len(t, audit.denials, 1)
	assert.Equal(t, []string{"c1", "c2", "c3"}, audit.denials[0].Scope["client_ids"])
}

func TestViewPaymentsOwnOnly(t *testing.T) {
	g, _, _ := setup(t)

	sc, err := g.Authorize(context.Background(), "k7", OpViewPayments, Scope{})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, sc.Scope.AuthorIDs)

	_, err = g.Authorize(context.Background(), "k7", OpViewPayments, Scope{AuthorIDs: []int64{7, 8}})
	assert.ErrorIs(t, err, ports.ErrForbidden)
}

func TestCollectorCannotAdminister(t *testing.T) {
	g, _, _ := setup(t)
	for _, op := range []Operation{OpCorrectPayment, OpAdmin} {
		_, err := g.Authorize(context.Background(), "k7", op, Scope{})
		assert.ErrorIs(t, err, ports.ErrForbidden, op)
	}
}

func TestUnknownRoleDenied(t *testing.T) {
	g, audit, _ := setup(t)
	_, err := g.Authorize(context.Background(), "odd", OpViewRoute, Scope{CollectorID: 9})
	assert.ErrorIs(t, err, ports.ErrForbidden)
	assert.Len(t, audit.denials, 1)
}

func TestAssignmentStoreFailureIsNotADenial(t *testing.T) {
	g, audit, f := setup(t)
	f.Store.FailOn("AssignedCollector", errors.New("timeout"))

	_, err := g.Authorize(context.Background(), "k7", OpRecordPayment, Scope{ClientIDs: []string{"c1"}, Date: testutil.Day("2025-09-05")})
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ports.ErrForbidden)
	assert.Empty(t, audit.denials)
}
