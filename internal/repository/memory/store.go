package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/services/assignment"
	"debtster_routes/internal/timeutil"

	"github.com/google/uuid"
)

// Store keeps every collection in process memory. It satisfies all store
// ports and is safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	clients      map[string]models.Client
	debts        map[string]models.Debt
	installments map[string][]models.Installment
	routes       map[string]models.Route
	assignments  map[string]models.RouteAssignment
	payments     []models.Payment
	byKey        map[string]int
	failures     map[string]error
	now          func() time.Time
}

func New() *Store {
	return &Store{
		clients:      map[string]models.Client{},
		debts:        map[string]models.Debt{},
		installments: map[string][]models.Installment{},
		routes:       map[string]models.Route{},
		assignments:  map[string]models.RouteAssignment{},
		byKey:        map[string]int{},
		failures:     map[string]error{},
		now:          time.Now,
	}
}

// FailOn makes the named operation return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) fail(op string) error {
	if err, ok := s.failures[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ---------- ScheduleStore ----------

func (s *Store) GetActiveDebts(ctx context.Context, clientID string) ([]models.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("GetActiveDebts"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []models.Debt
	for _, d := range s.debts {
		if d.ClientID == clientID && d.Active() {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetScheduleEntries(ctx context.Context, debtID string, r models.DateRange) ([]models.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("GetScheduleEntries"); err != nil {
		return nil, err
	}
	var out []models.Installment
	for _, it := range s.installments[debtID] {
		if r.Contains(it.DueOn) {
			out = append(out, it)
		}
	}
	return out, nil
}

// ---------- AssignmentStore ----------

func (s *Store) GetAssignments(ctx context.Context, collectorID int64, date time.Time) ([]models.RouteAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("GetAssignments"); err != nil {
		return nil, err
	}
	var out []models.RouteAssignment
	for _, a := range s.assignments {
		if a.CollectorID == collectorID && a.Covers(date) {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out, nil
}

func (s *Store) AssignedCollector(ctx context.Context, clientID string, date time.Time) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("AssignedCollector"); err != nil {
		return 0, false, err
	}
	for _, a := range s.assignments {
		if a.Covers(date) && slices.Contains(a.ClientIDs(), clientID) {
			return a.CollectorID, true, nil
		}
	}
	return 0, false, nil
}

// ---------- PaymentLedger / PaymentHistory ----------

func (s *Store) GetPayments(ctx context.Context, installmentRefs []string) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("GetPayments"); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(installmentRefs))
	for _, r := range installmentRefs {
		want[r] = struct{}{}
	}
	var out []models.Payment
	for _, p := range s.payments {
		for _, r := range p.InstallmentRefs {
			if _, ok := want[r]; ok {
				out = append(out, clonePayment(p))
				break
			}
		}
	}
	return out, nil
}

func (s *Store) AppendPayment(ctx context.Context, p models.Payment) (models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AppendPayment"); err != nil {
		return models.Payment{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Payment{}, err
	}
	if i, ok := s.byKey[p.IdempotencyKey]; ok {
		return clonePayment(s.payments[i]), fmt.Errorf("key %s: %w", p.IdempotencyKey, ports.ErrDuplicateSubmission)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	p = clonePayment(p)
	s.payments = append(s.payments, p)
	s.byKey[p.IdempotencyKey] = len(s.payments) - 1
	return clonePayment(p), nil
}

func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (models.Payment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("FindByIdempotencyKey"); err != nil {
		return models.Payment{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return models.Payment{}, false, err
	}
	i, ok := s.byKey[key]
	if !ok {
		return models.Payment{}, false, nil
	}
	return clonePayment(s.payments[i]), true, nil
}

func (s *Store) GetPayment(ctx context.Context, id string) (models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("GetPayment"); err != nil {
		return models.Payment{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Payment{}, err
	}
	for _, p := range s.payments {
		if p.ID == id {
			return clonePayment(p), nil
		}
	}
	return models.Payment{}, fmt.Errorf("payment %s: %w", id, ports.ErrNotFound)
}

func (s *Store) ListByCollector(ctx context.Context, collectorID int64, r models.DateRange) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("ListByCollector"); err != nil {
		return nil, err
	}
	var out []models.Payment
	for _, p := range s.payments {
		if p.CollectorID == collectorID && r.Contains(timeutil.Date(p.CollectedAt, time.UTC)) {
			out = append(out, clonePayment(p))
		}
	}
	return out, nil
}

// PaymentCount is the number of ledger entries.
func (s *Store) PaymentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payments)
}

// ---------- AdminStore ----------

func (s *Store) CreateClient(ctx context.Context, c models.Client) (models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	s.clients[c.ID] = c
	return c, nil
}

func (s *Store) FindClient(ctx context.Context, id string) (models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return models.Client{}, fmt.Errorf("client %s: %w", id, ports.ErrNotFound)
	}
	return c, nil
}

func (s *Store) CreateDebt(ctx context.Context, d models.Debt, schedule []models.Installment) (models.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[d.ClientID]; !ok {
		return models.Debt{}, fmt.Errorf("client %s: %w", d.ClientID, ports.ErrNotFound)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now().UTC()
	}
	items := make([]models.Installment, len(schedule))
	for i, it := range schedule {
		it.DebtID = d.ID
		it.ClientID = d.ClientID
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		items[i] = it
	}
	s.debts[d.ID] = d
	s.installments[d.ID] = items
	return d, nil
}

func (s *Store) FindDebtByNumber(ctx context.Context, number string) (models.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.debts {
		if d.Number == number {
			return d, nil
		}
	}
	return models.Debt{}, fmt.Errorf("debt %s: %w", number, ports.ErrNotFound)
}

func (s *Store) CloseDebt(ctx context.Context, debtID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.debts[debtID]
	if !ok {
		return fmt.Errorf("debt %s: %w", debtID, ports.ErrNotFound)
	}
	if d.ClosedAt == nil {
		d.ClosedAt = &at
		s.debts[debtID] = d
	}
	return nil
}

func (s *Store) CreateRoute(ctx context.Context, r models.Route) (models.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	r.Stops = s.decorateStops(r.Stops)
	s.routes[r.ID] = r
	return r, nil
}

func (s *Store) FindRouteByName(ctx context.Context, name string) (models.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.routes {
		if r.Name == name {
			return r, nil
		}
	}
	return models.Route{}, fmt.Errorf("route %s: %w", name, ports.ErrNotFound)
}

func (s *Store) ReplaceRouteStops(ctx context.Context, routeID string, stops []models.RouteStop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[routeID]
	if !ok {
		return fmt.Errorf("route %s: %w", routeID, ports.ErrNotFound)
	}
	r.Stops = s.decorateStops(stops)
	s.routes[routeID] = r
	return nil
}

func (s *Store) CreateAssignment(ctx context.Context, a models.RouteAssignment, today time.Time) (models.RouteAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := assignment.ValidateWindow(a, today); err != nil {
		return models.RouteAssignment{}, err
	}
	r, ok := s.routes[a.RouteID]
	if !ok {
		return models.RouteAssignment{}, fmt.Errorf("route %s: %w", a.RouteID, ports.ErrNotFound)
	}
	a.RouteName = r.Name
	a.Stops = append([]models.RouteStop(nil), r.Stops...)

	existing := make([]models.RouteAssignment, 0, len(s.assignments))
	for _, b := range s.assignments {
		existing = append(existing, b)
	}
	if err := assignment.CheckConflicts(a, existing); err != nil {
		return models.RouteAssignment{}, err
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}
	s.assignments[a.ID] = a
	return a, nil
}

func (s *Store) CancelAssignment(ctx context.Context, id string, today time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return fmt.Errorf("assignment %s: %w", id, ports.ErrNotFound)
	}
	if !a.FirstDay().After(today) {
		return fmt.Errorf("assignment %s starts %s: %w", id, timeutil.FormatDate(a.FirstDay()), ports.ErrImmutableAssignment)
	}
	delete(s.assignments, id)
	return nil
}

func (s *Store) CollectorsOn(ctx context.Context, date time.Time) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := map[int64]struct{}{}
	for _, a := range s.assignments {
		if a.Covers(date) {
			set[a.CollectorID] = struct{}{}
		}
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

func (s *Store) decorateStops(stops []models.RouteStop) []models.RouteStop {
	out := make([]models.RouteStop, len(stops))
	for i, st := range stops {
		if c, ok := s.clients[st.ClientID]; ok {
			if st.ClientName == "" {
				st.ClientName = c.FullName
			}
			if st.Address == "" {
				st.Address = c.Address
			}
		}
		out[i] = st
	}
	return out
}

func clonePayment(p models.Payment) models.Payment {
	p.InstallmentRefs = append([]string(nil), p.InstallmentRefs...)
	return p
}

func sortAssignments(list []models.RouteAssignment) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Seq != list[j].Seq {
			return list[i].Seq < list[j].Seq
		}
		return list[i].ID < list[j].ID
	})
}
