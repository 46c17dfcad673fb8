package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateUsesLocationCivilDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 22:00 UTC on Sep 4 is already Sep 5 at UTC+5.
	got := Date(time.Date(2025, 9, 4, 22, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-09-05")
	require.NoError(t, err)
	assert.Equal(t, "2025-09-05", FormatDate(d))

	for _, bad := range []string{"", "2025-13-01", "05.09.2025", "2025-02-30"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestAddMonthsClamped(t *testing.T) {
	jan31 := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-02-28", FormatDate(AddMonthsClamped(jan31, 1)))
	assert.Equal(t, "2025-03-31", FormatDate(AddMonthsClamped(jan31, 2)))
	assert.Equal(t, "2024-02-29", FormatDate(AddMonthsClamped(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 1)))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 4, DaysBetween(a, AddDays(a, 4)))
	assert.Equal(t, -2, DaysBetween(a, AddDays(a, -2)))
}
