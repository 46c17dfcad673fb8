package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WorklistStatus string

const (
	StatusPending       WorklistStatus = "pending"
	StatusPartiallyPaid WorklistStatus = "partially-paid"
	StatusPaid          WorklistStatus = "paid"
	StatusCarryForward  WorklistStatus = "overdue-carry-forward"
)

// WorklistLine is one selected installment inside a client's entry.
type WorklistLine struct {
	InstallmentID  string          `json:"installment_id"`
	DebtID         string          `json:"debt_id"`
	DebtNumber     string          `json:"debt_number,omitempty"`
	Seq            int             `json:"seq"`
	DueOn          time.Time       `json:"due_on"`
	Expected       decimal.Decimal `json:"expected"`
	Paid           decimal.Decimal `json:"paid"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	Status         WorklistStatus  `json:"status"`
	CarriedForward bool            `json:"carried_forward"`
}

// WorklistEntry is derived per request and never persisted.
type WorklistEntry struct {
	ClientID    string          `json:"client_id"`
	ClientName  string          `json:"client_name,omitempty"`
	Address     string          `json:"address,omitempty"`
	Position    *int            `json:"position,omitempty"`
	Lines       []WorklistLine  `json:"lines"`
	Expected    decimal.Decimal `json:"expected"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Credit      decimal.Decimal `json:"credit"`
	Status      WorklistStatus  `json:"status"`
}

type Worklist struct {
	CollectorID int64           `json:"collector_id"`
	Date        time.Time       `json:"date"`
	ComputedAt  time.Time       `json:"computed_at"`
	Entries     []WorklistEntry `json:"entries"`
}
