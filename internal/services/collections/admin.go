package collections

import (
	"context"
	"fmt"
	"strings"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/services/gate"
	"debtster_routes/internal/services/schedule"
	"debtster_routes/internal/utils"

	"github.com/sirupsen/logrus"
)

// AuthorizeAdmin is used by surfaces that run admin work outside this
// service, such as bulk import.
func (s *Service) AuthorizeAdmin(ctx context.Context, token string) (gate.ScopedContext, error) {
	return s.Gate.Authorize(ctx, token, gate.OpAdmin, gate.Scope{})
}

func (s *Service) CreateClient(ctx context.Context, token string, c models.Client) (models.Client, error) {
	if _, err := s.AuthorizeAdmin(ctx, token); err != nil {
		return models.Client{}, err
	}
	if strings.TrimSpace(c.FullName) == "" {
		return models.Client{}, fmt.Errorf("%w: client full name required", ports.ErrInvalidInput)
	}
	if c.LastName == "" && c.FirstName == "" {
		c.LastName, c.FirstName, c.MiddleName = utils.ParseFullName(c.FullName)
	}
	created, err := s.Admin.CreateClient(ctx, c)
	if err != nil {
		return models.Client{}, ports.StoreError("create client", err)
	}
	s.Log.WithField("client_id", created.ID).Info("[ADMIN][CLIENT]")
	return created, nil
}

// CreateDebt generates the installment schedule and stores both once the
// schedule passes validation.
func (s *Service) CreateDebt(ctx context.Context, token string, d models.Debt) (models.Debt, []models.Installment, error) {
	if _, err := s.AuthorizeAdmin(ctx, token); err != nil {
		return models.Debt{}, nil, err
	}
	if _, err := s.Admin.FindClient(ctx, d.ClientID); err != nil {
		return models.Debt{}, nil, ports.StoreError("find client", err)
	}
	items, err := schedule.Generate(d)
	if err != nil {
		return models.Debt{}, nil, err
	}
	if err := schedule.Validate(d, items); err != nil {
		return models.Debt{}, nil, err
	}
	created, err := s.Admin.CreateDebt(ctx, d, items)
	if err != nil {
		return models.Debt{}, nil, ports.StoreError("create debt", err)
	}
	for i := range items {
		items[i].DebtID = created.ID
	}
	s.Log.WithFields(logrus.Fields{
		"debt_id":      created.ID,
		"client_id":    created.ClientID,
		"installments": len(items),
	}).Info("[ADMIN][DEBT]")
	return created, items, nil
}

func (s *Service) CloseDebt(ctx context.Context, token, debtID string) error {
	if _, err := s.AuthorizeAdmin(ctx, token); err != nil {
		return err
	}
	if err := s.Admin.CloseDebt(ctx, debtID, s.Now().UTC()); err != nil {
		return ports.StoreError("close debt", err)
	}
	return nil
}

func (s *Service) CreateRoute(ctx context.Context, token string, r models.Route) (models.Route, error) {
	if _, err := s.AuthorizeAdmin(ctx, token); err != nil {
		return models.Route{}, err
	}
	if strings.TrimSpace(r.Name) == "" {
		return models.Route{}, fmt.Errorf("%w: route name required", ports.ErrInvalidInput)
	}
	created, err := s.Admin.CreateRoute(ctx, r)
	if err != nil {
		return models.Route{}, ports.StoreError("create route", err)
	}
	return created, nil
}

func (s *Service) ReplaceRouteStops(ctx context.Context, token, routeID string, stops []models.RouteStop) error {
	if _, err := s.AuthorizeAdmin(ctx, token); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(stops))
	for _, st := range stops {
		if _, dup := seen[st.ClientID]; dup {
			return fmt.Errorf("%w: client %s listed twice on route %s", ports.ErrInvalidInput, st.ClientID, routeID)
		}
		seen[st.ClientID] = struct{}{}
	}
	if err := s.Admin.ReplaceRouteStops(ctx, routeID, stops); err != nil {
		return ports.StoreError("replace stops", err)
	}
	return nil
}

// CreateAssignment hands a route to a collector. Past dates and clients
// already held by another collector on an overlapping day are rejected.
func (s *Service) CreateAssignment(ctx context.Context, token string, a models.RouteAssignment) (models.RouteAssignment, error) {
	sc, err := s.AuthorizeAdmin(ctx, token)
	if err != nil {
		return models.RouteAssignment{}, err
	}
	a.CreatedBy = sc.Session.UserID
	created, err := s.Admin.CreateAssignment(ctx, a, s.Today())
	if err != nil {
		return models.RouteAssignment{}, ports.StoreError("create assignment", err)
	}
	s.Log.WithFields(logrus.Fields{
		"assignment_id": created.ID,
		"collector_id":  created.CollectorID,
		"route_id":      created.RouteID,
		"stops":         len(created.Stops),
	}).Info("[ADMIN][ASSIGN]")
	return created, nil
}

func (s *Service) CancelAssignment(ctx context.Context, token, id string) error {
	if _, err := s.AuthorizeAdmin(ctx, token); err != nil {
		return err
	}
	if err := s.Admin.CancelAssignment(ctx, id, s.Today()); err != nil {
		return ports.StoreError("cancel assignment", err)
	}
	return nil
}
