package routing

import (
	"sort"

	"debtster_routes/internal/models"

	"github.com/shopspring/decimal"
)

// Allocation is how much of every installment the recorded payments cover.
type Allocation struct {
	Paid   map[string]decimal.Decimal
	Credit decimal.Decimal
}

func (a Allocation) PaidFor(installmentID string) decimal.Decimal {
	if v, ok := a.Paid[installmentID]; ok {
		return v
	}
	return decimal.Zero
}

// SortInstallments orders by due date, then debt, then sequence.
func SortInstallments(items []models.Installment) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.DueOn.Equal(b.DueOn) {
			return a.DueOn.Before(b.DueOn)
		}
		if a.DebtID != b.DebtID {
			return a.DebtID < b.DebtID
		}
		return a.Seq < b.Seq
	})
}

// Allocate distributes payments over installments. It depends only on the
// set of payments, never on the order they were written in: payments are
// netted with their corrections and applied in (CollectedAt, ID) order.
// Each payment fills its referenced installments first, then the unpaid
// installments after the last referenced one, then earlier unpaid ones,
// always oldest first. An installment is never filled past its amount; what
// cannot be placed becomes credit.
func Allocate(installments []models.Installment, payments []models.Payment) Allocation {
	items := append([]models.Installment(nil), installments...)
	SortInstallments(items)

	alloc := Allocation{Paid: make(map[string]decimal.Decimal, len(items)), Credit: decimal.Zero}

	effective := make(map[string]decimal.Decimal)
	originals := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		if p.IsCorrection() {
			continue
		}
		if _, seen := effective[p.ID]; seen {
			continue
		}
		effective[p.ID] = p.Amount
		originals = append(originals, p)
	}
	for _, p := range payments {
		if !p.IsCorrection() {
			continue
		}
		if base, ok := effective[*p.CorrectsPaymentID]; ok {
			effective[*p.CorrectsPaymentID] = base.Add(p.Amount)
		}
	}

	sort.SliceStable(originals, func(i, j int) bool {
		if !originals[i].CollectedAt.Equal(originals[j].CollectedAt) {
			return originals[i].CollectedAt.Before(originals[j].CollectedAt)
		}
		return originals[i].ID < originals[j].ID
	})

	for _, p := range originals {
		remaining := effective[p.ID]
		if !remaining.IsPositive() {
			continue
		}

		refs := make(map[string]struct{}, len(p.InstallmentRefs))
		for _, r := range p.InstallmentRefs {
			refs[r] = struct{}{}
		}

		fill := func(it models.Installment) {
			if !remaining.IsPositive() {
				return
			}
			room := it.Amount.Sub(alloc.PaidFor(it.ID))
			if !room.IsPositive() {
				return
			}
			take := decimal.Min(room, remaining)
			alloc.Paid[it.ID] = alloc.PaidFor(it.ID).Add(take)
			remaining = remaining.Sub(take)
		}

		lastRef := -1
		for i, it := range items {
			if _, ok := refs[it.ID]; ok {
				fill(it)
				lastRef = i
			}
		}
		for i := lastRef + 1; i < len(items); i++ {
			fill(items[i])
		}
		for i := 0; i <= lastRef; i++ {
			if _, ok := refs[items[i].ID]; !ok {
				fill(items[i])
			}
		}

		if remaining.IsPositive() {
			alloc.Credit = alloc.Credit.Add(remaining)
		}
	}
	return alloc
}
