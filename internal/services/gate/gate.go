package gate

import (
	"context"
	"fmt"
	"slices"
	"time"

	"debtster_routes/internal/metrics"
	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/timeutil"

	"github.com/sirupsen/logrus"
)

type Operation string

const (
	OpViewRoute      Operation = "view-route"
	OpRecordPayment  Operation = "record-payment"
	OpViewPayments   Operation = "view-payments"
	OpCorrectPayment Operation = "correct-payment"
	OpAdmin          Operation = "admin"
)

// Scope names every entity a request touches. Zero fields are not touched.
type Scope struct {
	CollectorID int64
	ClientIDs   []string
	Date        time.Time
	AuthorIDs   []int64
}

// ScopedContext is the outcome of an allowed request.
type ScopedContext struct {
	Session   models.Session
	Operation Operation
	Scope     Scope
}

func (s ScopedContext) IsAdmin() bool {
	return s.Session.Role == models.RoleAdmin
}

// Gate authorizes every data request. Roles are resolved server-side on
// each call; nothing the caller sends about its own role is consulted.
type Gate struct {
	Sessions    ports.SessionResolver
	Assignments ports.AssignmentStore
	Audit       ports.AuditSink
	Log         *logrus.Logger
}

func New(sessions ports.SessionResolver, assignments ports.AssignmentStore, audit ports.AuditSink, log *logrus.Logger) *Gate {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gate{Sessions: sessions, Assignments: assignments, Audit: audit, Log: log}
}

// Authorize resolves token and either allows op over scope in full or
// denies it with ErrForbidden. There is no partial result.
func (g *Gate) Authorize(ctx context.Context, token string, op Operation, scope Scope) (ScopedContext, error) {
	if token == "" {
		metrics.GateDecisions.WithLabelValues(string(op), "unauthenticated").Inc()
		return ScopedContext{}, fmt.Errorf("%w: no token", ports.ErrUnauthenticated)
	}
	sess, err := g.Sessions.Resolve(ctx, token)
	if err != nil {
		metrics.GateDecisions.WithLabelValues(string(op), "unauthenticated").Inc()
		return ScopedContext{}, fmt.Errorf("%w: %v", ports.ErrUnauthenticated, err)
	}

	switch sess.Role {
	case models.RoleAdmin:
		return g.allow(sess, op, scope), nil
	case models.RoleCollector:
		if scope.CollectorID == 0 {
			scope.CollectorID = sess.UserID
		}
		reason, err := g.collectorCheck(ctx, sess, op, scope)
		if err != nil {
			return ScopedContext{}, err
		}
		if reason != "" {
			return ScopedContext{}, g.deny(ctx, sess, op, scope, reason)
		}
		return g.allow(sess, op, scope), nil
	default:
		return ScopedContext{}, g.deny(ctx, sess, op, scope, fmt.Sprintf("unknown role %q", sess.Role))
	}
}

// collectorCheck returns a denial reason, or an error when the assignment
// store could not be read.
func (g *Gate) collectorCheck(ctx context.Context, sess models.Session, op Operation, scope Scope) (string, error) {
	if scope.CollectorID != sess.UserID {
		return fmt.Sprintf("collector %d is not %d", sess.UserID, scope.CollectorID), nil
	}

	switch op {
	case OpViewRoute:
		if len(scope.ClientIDs) > 0 || len(scope.AuthorIDs) > 0 {
			return "route views are scoped by collector only", nil
		}
		return "", nil

	case OpRecordPayment:
		if len(scope.ClientIDs) == 0 {
			return "payment without client", nil
		}
		if scope.Date.IsZero() {
			return "payment without collection date", nil
		}
		for _, clientID := range scope.ClientIDs {
			holder, ok, err := g.Assignments.AssignedCollector(ctx, clientID, scope.Date)
			if err != nil {
				return "", ports.StoreError("assigned collector", err)
			}
			if !ok || holder != sess.UserID {
				return fmt.Sprintf("client %s not on route of collector %d for %s",
					clientID, sess.UserID, timeutil.FormatDate(scope.Date)), nil
			}
		}
		return "", nil

	case OpViewPayments:
		if len(scope.ClientIDs) > 0 {
			return "payment history is scoped by author only", nil
		}
		for _, a := range scope.AuthorIDs {
			if a != sess.UserID {
				return fmt.Sprintf("payments authored by %d", a), nil
			}
		}
		return "", nil

	default:
		return fmt.Sprintf("operation %s requires admin", op), nil
	}
}

func (g *Gate) allow(sess models.Session, op Operation, scope Scope) ScopedContext {
	metrics.GateDecisions.WithLabelValues(string(op), "allow").Inc()
	if sess.Role == models.RoleCollector && op == OpViewPayments && len(scope.AuthorIDs) == 0 {
		scope.AuthorIDs = []int64{sess.UserID}
	}
	return ScopedContext{Session: sess, Operation: op, Scope: scope}
}

func (g *Gate) deny(ctx context.Context, sess models.Session, op Operation, scope Scope, reason string) error {
	metrics.GateDecisions.WithLabelValues(string(op), "deny").Inc()

	fields := scopeFields(scope)
	g.Log.WithFields(logrus.Fields{
		"user_id":   sess.UserID,
		"role":      sess.Role,
		"operation": op,
		"scope":     fields,
	}).Warnf("[GATE][DENY] %s", reason)

	if g.Audit != nil {
		g.Audit.RecordDenial(ctx, ports.Denial{
			UserID:    sess.UserID,
			Role:      sess.Role,
			Operation: string(op),
			Reason:    reason,
			Scope:     fields,
		})
	}
	return fmt.Errorf("%s: %w", reason, ports.ErrForbidden)
}

func scopeFields(s Scope) map[string]any {
	m := map[string]any{}
	if s.CollectorID != 0 {
		m["collector_id"] = s.CollectorID
	}
	if len(s.ClientIDs) > 0 {
		m["client_ids"] = slices.Clone(s.ClientIDs)
	}
	if !s.Date.IsZero() {
		m["date"] = timeutil.FormatDate(s.Date)
	}
	if len(s.AuthorIDs) > 0 {
		m["author_ids"] = slices.Clone(s.AuthorIDs)
	}
	return m
}
