package processors

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func firstNonEmpty(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "0"
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	return s
}

func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(normalizeAmount(s))
}

// parseDate accepts the layouts found in back-office exports and returns a
// civil date at midnight UTC.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	layouts := []string{"2006-01-02", "02.01.2006", "02/01/2006", "2006/01/02", "02-01-2006"}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return &t
		}
	}
	return nil
}

func parseIntDefault(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// parseWeekdays reads "mon,wed,fri" or ISO numbers "1,3,5" (7 is Sunday).
func parseWeekdays(s string) ([]time.Weekday, bool) {
	var out []time.Weekday
	for _, part := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return r == ',' || r == ';' || r == ' ' }) {
		if len(part) >= 3 {
			if d, ok := weekdayNames[part[:3]]; ok {
				out = append(out, d)
				continue
			}
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 7 {
			return nil, false
		}
		out = append(out, time.Weekday(n%7))
	}
	return out, len(out) > 0
}
