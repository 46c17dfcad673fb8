package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an append-only ledger entry. Corrections are entries with a
// negative amount pointing at the payment they offset.
type Payment struct {
	ID                string          `json:"id"`
	IdempotencyKey    string          `json:"idempotency_key"`
	ClientID          string          `json:"client_id"`
	CollectorID       int64           `json:"collector_id"`
	RecordedBy        int64           `json:"recorded_by"`
	Amount            decimal.Decimal `json:"amount"`
	InstallmentRefs   []string        `json:"installment_refs"`
	CollectedAt       time.Time       `json:"collected_at"`
	CreatedAt         time.Time       `json:"created_at"`
	CorrectsPaymentID *string         `json:"corrects_payment_id,omitempty"`
	Note              string          `json:"note,omitempty"`
}

func (p Payment) IsCorrection() bool {
	return p.CorrectsPaymentID != nil
}
