package assignment

import (
	"fmt"
	"slices"
	"time"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/timeutil"
)

// MaxWindowDays caps how long a recurring assignment may run.
const MaxWindowDays = 366

// ValidateWindow checks that a is either a single date or a bounded weekly
// recurrence and that it does not start before today.
func ValidateWindow(a models.RouteAssignment, today time.Time) error {
	switch {
	case a.Date != nil && a.Recurrence != nil:
		return fmt.Errorf("%w: assignment has both a date and a recurrence", ports.ErrInvalidDate)
	case a.Date == nil && a.Recurrence == nil:
		return fmt.Errorf("%w: assignment needs a date or a recurrence", ports.ErrInvalidDate)
	case a.Recurrence != nil:
		r := a.Recurrence
		if r.From.IsZero() || r.Until.IsZero() || r.Until.Before(r.From) {
			return fmt.Errorf("%w: bad recurrence window", ports.ErrInvalidDate)
		}
		if timeutil.DaysBetween(r.From, r.Until) > MaxWindowDays {
			return fmt.Errorf("%w: recurrence longer than %d days", ports.ErrInvalidDate, MaxWindowDays)
		}
		if len(r.Weekdays) == 0 {
			return fmt.Errorf("%w: recurrence without weekdays", ports.ErrInvalidDate)
		}
	}
	if a.CollectorID <= 0 {
		return fmt.Errorf("%w: collector required", ports.ErrNotFound)
	}
	if a.FirstDay().Before(today) {
		return fmt.Errorf("assignment starting %s: %w", timeutil.FormatDate(a.FirstDay()), ports.ErrImmutableAssignment)
	}
	return nil
}

// CheckConflicts enforces that on every date a covers, none of its clients is
// visited by a different collector in existing.
func CheckConflicts(a models.RouteAssignment, existing []models.RouteAssignment) error {
	clients := a.ClientIDs()
	days := a.CoveredDays()
	for _, b := range existing {
		if b.CollectorID == a.CollectorID || b.ID == a.ID {
			continue
		}
		if b.LastDay().Before(a.FirstDay()) || b.FirstDay().After(a.LastDay()) {
			continue
		}
		shared := ""
		for _, c := range b.ClientIDs() {
			if slices.Contains(clients, c) {
				shared = c
				break
			}
		}
		if shared == "" {
			continue
		}
		for _, d := range days {
			if b.Covers(d) {
				return fmt.Errorf("client %s on %s held by collector %d: %w",
					shared, timeutil.FormatDate(d), b.CollectorID, ports.ErrAssignmentConflict)
			}
		}
	}
	return nil
}
