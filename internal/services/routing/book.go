package routing

import (
	"context"
	"time"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
)

// Book is everything known about one client's obligations at read time.
type Book struct {
	ClientID     string
	Debts        map[string]models.Debt
	Installments []models.Installment
	Payments     []models.Payment
	Allocation   Allocation
}

// LoadBook reads a client's active debts, full schedules and the payments
// against them. Any failed read aborts the load.
func LoadBook(ctx context.Context, schedules ports.ScheduleStore, ledger ports.PaymentLedger, clientID string) (Book, error) {
	b := Book{ClientID: clientID, Debts: map[string]models.Debt{}}

	debts, err := schedules.GetActiveDebts(ctx, clientID)
	if err != nil {
		return Book{}, ports.StoreError("get active debts", err)
	}
	for _, d := range debts {
		if !d.Active() {
			continue
		}
		items, err := schedules.GetScheduleEntries(ctx, d.ID, models.DateRange{})
		if err != nil {
			return Book{}, ports.StoreError("get schedule entries", err)
		}
		b.Debts[d.ID] = d
		b.Installments = append(b.Installments, items...)
	}
	SortInstallments(b.Installments)

	if len(b.Installments) > 0 {
		refs := make([]string, 0, len(b.Installments))
		for _, it := range b.Installments {
			refs = append(refs, it.ID)
		}
		b.Payments, err = ledger.GetPayments(ctx, refs)
		if err != nil {
			return Book{}, ports.StoreError("get payments", err)
		}
	}

	b.Allocation = Allocate(b.Installments, b.Payments)
	return b, nil
}

// Installment looks up a schedule entry by id.
func (b Book) Installment(id string) (models.Installment, bool) {
	for _, it := range b.Installments {
		if it.ID == id {
			return it, true
		}
	}
	return models.Installment{}, false
}

// DefaultRefs picks the installments an untargeted payment collected on date
// is meant for: the unpaid ones due on or before date, or failing that the
// next unpaid one.
func (b Book) DefaultRefs(date time.Time) []string {
	var refs []string
	for _, it := range b.Installments {
		if it.DueOn.After(date) {
			continue
		}
		if b.Allocation.PaidFor(it.ID).LessThan(it.Amount) {
			refs = append(refs, it.ID)
		}
	}
	if len(refs) > 0 {
		return refs
	}
	for _, it := range b.Installments {
		if it.DueOn.After(date) && b.Allocation.PaidFor(it.ID).LessThan(it.Amount) {
			return []string{it.ID}
		}
	}
	return nil
}
