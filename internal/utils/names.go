package utils

import "strings"

// ParseFullName splits a client name written family name first. A comma
// after the family name ("Ivanov, Ivan Petrovich") is accepted, and words
// past the third stay with the middle name ("Aliev Rashid Kamal ogly").
func ParseFullName(fullname string) (last, first, middle string) {
	fullname = strings.Replace(fullname, ",", " ", 1)
	parts := strings.Fields(fullname)

	switch {
	case len(parts) > 2:
		middle = strings.Join(parts[2:], " ")
		fallthrough
	case len(parts) == 2:
		first = parts[1]
		fallthrough
	case len(parts) == 1:
		last = parts[0]
	}
	return
}
