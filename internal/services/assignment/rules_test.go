package assignment

import (
	"testing"
	"time"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/timeutil"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	d, _ := timeutil.ParseDate(s)
	return d
}

func single(id string, collector int64, date string, clients ...string) models.RouteAssignment {
	d := day(date)
	a := models.RouteAssignment{ID: id, CollectorID: collector, Date: &d}
	for _, c := range clients {
		a.Stops = append(a.Stops, models.RouteStop{ClientID: c})
	}
	return a
}

func TestValidateWindow(t *testing.T) {
	today := day("2025-09-05")

	assert.NoError(t, ValidateWindow(single("a", 1, "2025-09-05", "c1"), today))
	assert.ErrorIs(t, ValidateWindow(single("a", 1, "2025-09-04", "c1"), today), ports.ErrImmutableAssignment)
	assert.ErrorIs(t, ValidateWindow(models.RouteAssignment{CollectorID: 1}, today), ports.ErrInvalidDate)

	rec := models.RouteAssignment{CollectorID: 1, Recurrence: &models.Recurrence{
		Weekdays: []time.Weekday{time.Monday}, From: day("2025-09-08"), Until: day("2025-09-01"),
	}}
	assert.ErrorIs(t, ValidateWindow(rec, today), ports.ErrInvalidDate)

	long := models.RouteAssignment{CollectorID: 1, Recurrence: &models.Recurrence{
		Weekdays: []time.Weekday{time.Monday}, From: day("2025-09-08"), Until: day("2027-09-01"),
	}}
	assert.ErrorIs(t, ValidateWindow(long, today), ports.ErrInvalidDate)
}

func TestCheckConflictsSameDay(t *testing.T) {
	existing := []models.RouteAssignment{single("b", 2, "2025-09-05", "c1", "c2")}

	err := CheckConflicts(single("a", 1, "2025-09-05", "c2"), existing)
	assert.ErrorIs(t, err, ports.ErrAssignmentConflict)

	assert.NoError(t, CheckConflicts(single("a", 1, "2025-09-06", "c2"), existing))
	assert.NoError(t, CheckConflicts(single("a", 1, "2025-09-05", "c3"), existing))
	// the same collector may hold the client twice
	assert.NoError(t, CheckConflicts(single("a", 2, "2025-09-05", "c1"), existing))
}

func TestCheckConflictsRecurring(t *testing.T) {
	// Tuesdays in September
	rec := models.RouteAssignment{
		ID: "r", CollectorID: 2,
		Recurrence: &models.Recurrence{Weekdays: []time.Weekday{time.Tuesday}, From: day("2025-09-01"), Until: day("2025-09-30")},
		Stops:      []models.RouteStop{{ClientID: "c1"}},
	}
	// 2025-09-09 is a Tuesday, 2025-09-10 a Wednesday
	assert.ErrorIs(t, CheckConflicts(single("a", 1, "2025-09-09", "c1"), []models.RouteAssignment{rec}), ports.ErrAssignmentConflict)
	assert.NoError(t, CheckConflicts(single("a", 1, "2025-09-10", "c1"), []models.RouteAssignment{rec}))
}
