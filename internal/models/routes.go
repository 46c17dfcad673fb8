package models

import (
	"slices"
	"time"
)

type Route struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Zone      string      `json:"zone,omitempty"`
	Stops     []RouteStop `json:"stops,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// RouteStop is a client on a route. Position is the admin-defined visiting
// order; nil means no explicit order was recorded.
type RouteStop struct {
	ClientID   string `json:"client_id"`
	ClientName string `json:"client_name,omitempty"`
	Address    string `json:"address,omitempty"`
	Position   *int   `json:"position,omitempty"`
}

// Recurrence repeats an assignment on the given weekdays inside [From, Until].
type Recurrence struct {
	Weekdays []time.Weekday `json:"weekdays"`
	From     time.Time      `json:"from"`
	Until    time.Time      `json:"until"`
}

type RouteAssignment struct {
	ID          string      `json:"id"`
	RouteID     string      `json:"route_id"`
	RouteName   string      `json:"route_name,omitempty"`
	CollectorID int64       `json:"collector_id"`
	Date        *time.Time  `json:"date,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
	Seq         int         `json:"seq"`
	Stops       []RouteStop `json:"stops,omitempty"`
	CreatedBy   int64       `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Covers reports whether the assignment applies on the civil date d.
func (a RouteAssignment) Covers(d time.Time) bool {
	if a.Date != nil {
		return a.Date.Equal(d)
	}
	if a.Recurrence == nil {
		return false
	}
	r := a.Recurrence
	if d.Before(r.From) || d.After(r.Until) {
		return false
	}
	return slices.Contains(r.Weekdays, d.Weekday())
}

// FirstDay is the earliest date the assignment can cover.
func (a RouteAssignment) FirstDay() time.Time {
	if a.Date != nil {
		return *a.Date
	}
	if a.Recurrence != nil {
		return a.Recurrence.From
	}
	return time.Time{}
}

// LastDay is the latest date the assignment can cover.
func (a RouteAssignment) LastDay() time.Time {
	if a.Date != nil {
		return *a.Date
	}
	if a.Recurrence != nil {
		return a.Recurrence.Until
	}
	return time.Time{}
}

// CoveredDays lists every date in the assignment's window it applies to.
func (a RouteAssignment) CoveredDays() []time.Time {
	var out []time.Time
	for d := a.FirstDay(); !d.After(a.LastDay()); d = d.AddDate(0, 0, 1) {
		if a.Covers(d) {
			out = append(out, d)
		}
	}
	return out
}

func (a RouteAssignment) ClientIDs() []string {
	ids := make([]string, 0, len(a.Stops))
	for _, s := range a.Stops {
		ids = append(ids, s.ClientID)
	}
	return ids
}
