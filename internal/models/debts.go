package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Cadence string

const (
	CadenceDaily    Cadence = "daily"
	CadenceWeekly   Cadence = "weekly"
	CadenceBiweekly Cadence = "biweekly"
	CadenceMonthly  Cadence = "monthly"
)

func ParseCadence(s string) (Cadence, error) {
	switch c := Cadence(strings.ToLower(strings.TrimSpace(s))); c {
	case CadenceDaily, CadenceWeekly, CadenceBiweekly, CadenceMonthly:
		return c, nil
	}
	return "", fmt.Errorf("unknown cadence %q", s)
}

type Debt struct {
	ID               string          `json:"id"`
	ClientID         string          `json:"client_id"`
	Number           string          `json:"number"`
	Principal        decimal.Decimal `json:"principal"`
	Surcharge        decimal.Decimal `json:"surcharge"`
	Cadence          Cadence         `json:"cadence"`
	Every            int             `json:"every"`
	InstallmentCount int             `json:"installment_count"`
	StartOn          time.Time       `json:"start_on"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"`
	PaidOffAt        *time.Time      `json:"paid_off_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Total is the full obligation the schedule must add up to.
func (d Debt) Total() decimal.Decimal {
	return d.Principal.Add(d.Surcharge)
}

func (d Debt) Active() bool {
	return d.ClosedAt == nil && d.PaidOffAt == nil
}

// Installment is one entry of a debt's payment schedule.
type Installment struct {
	ID       string          `json:"id"`
	DebtID   string          `json:"debt_id"`
	ClientID string          `json:"client_id"`
	Seq      int             `json:"seq"`
	DueOn    time.Time       `json:"due_on"`
	Amount   decimal.Decimal `json:"amount"`
}

// DateRange is inclusive on both ends; a zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}
