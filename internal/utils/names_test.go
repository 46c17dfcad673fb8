package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFullName(t *testing.T) {
	cases := []struct {
		in                  string
		last, first, middle string
	}{
		{"Ivanov Ivan Petrovich", "Ivanov", "Ivan", "Petrovich"},
		{"  Ivanov   Ivan ", "Ivanov", "Ivan", ""},
		{"Ivanov, Ivan Petrovich", "Ivanov", "Ivan", "Petrovich"},
		{"Aliev Rashid Kamal ogly", "Aliev", "Rashid", "Kamal ogly"},
		{"Ivanov", "Ivanov", "", ""},
		{"", "", "", ""},
	}
	for _, c := range cases {
		last, first, middle := ParseFullName(c.in)
		assert.Equal(t, c.last, last, c.in)
		assert.Equal(t, c.first, first, c.in)
		assert.Equal(t, c.middle, middle, c.in)
	}
}
