package routing

import (
	"testing"
	"time"

	"debtster_routes/internal/models"
	"debtster_routes/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func installments(debtID string, amount int64, n int, start string) []models.Installment {
	out := make([]models.Installment, n)
	for i := range out {
		due := testutil.Day(start).AddDate(0, 0, i)
		out[i] = models.Installment{
			ID:     debtID + "#" + due.Format("0102"),
			DebtID: debtID,
			Seq:    i + 1,
			DueOn:  due,
			Amount: decimal.NewFromInt(amount),
		}
	}
	return out
}

func payment(id, amount, on string, refs ...string) models.Payment {
	return models.Payment{
		ID:              id,
		IdempotencyKey:  id,
		Amount:          testutil.Money(amount),
		CollectedAt:     testutil.Day(on).Add(9 * time.Hour),
		InstallmentRefs: refs,
	}
}

func TestAllocateRollsSurplusForward(t *testing.T) {
	items := installments("D", 20, 5, "2025-09-05")
	a := Allocate(items, []models.Payment{payment("p1", "50", "2025-09-05", "D#0905")})

	assert.True(t, a.PaidFor("D#0905").Equal(decimal.NewFromInt(20)))
	assert.True(t, a.PaidFor("D#0906").Equal(decimal.NewFromInt(20)))
	assert.True(t, a.PaidFor("D#0907").Equal(decimal.NewFromInt(10)))
	assert.True(t, a.PaidFor("D#0908").IsZero())
	assert.True(t, a.Credit.IsZero())
}

func TestAllocateBackfillsEarlierThenCredits(t *testing.T) {
	items := installments("D", 20, 3, "2025-09-01")
	a := Allocate(items, []models.Payment{payment("p1", "70", "2025-09-03", "D#0903")})

	for _, id := range []string{"D#0901", "D#0902", "D#0903"} {
		assert.True(t, a.PaidFor(id).Equal(decimal.NewFromInt(20)), id)
	}
	assert.Equal(t, "10", a.Credit.String())
}

func TestAllocateNetsCorrections(t *testing.T) {
	items := installments("D", 20, 2, "2025-09-05")
	orig := payment("p1", "40", "2025-09-05", "D#0905")
	target := "p1"
	fix := payment("c1", "-30", "2025-09-06", "D#0905")
	fix.CorrectsPaymentID = &target

	a := Allocate(items, []models.Payment{fix, orig})
	assert.Equal(t, "10", a.PaidFor("D#0905").String())
	assert.True(t, a.PaidFor("D#0906").IsZero())
}

func TestAllocateIgnoresWriteOrder(t *testing.T) {
	items := installments("D", 20, 5, "2025-09-05")
	ps := []models.Payment{
		payment("p1", "15", "2025-09-05", "D#0905"),
		payment("p2", "30", "2025-09-06", "D#0906"),
		payment("p3", "5", "2025-09-06", "D#0905"),
		payment("p4", "90", "2025-09-07", "D#0909"),
	}
	want := Allocate(items, ps)

	reversed := []models.Payment{ps[3], ps[2], ps[1], ps[0]}
	shuffled := []models.Payment{ps[2], ps[0], ps[3], ps[1]}
	assert.Equal(t, want, Allocate(items, reversed))
	assert.Equal(t, want, Allocate(items, shuffled))
}

func TestAllocateNeverOverfills(t *testing.T) {
	items := installments("D", 20, 3, "2025-09-05")
	a := Allocate(items, []models.Payment{
		payment("p1", "25", "2025-09-05", "D#0905"),
		payment("p2", "25", "2025-09-05", "D#0905"),
		payment("p3", "25", "2025-09-05", "D#0905"),
	})
	total := decimal.Zero
	for _, it := range items {
		assert.False(t, a.PaidFor(it.ID).GreaterThan(it.Amount), it.ID)
		total = total.Add(a.PaidFor(it.ID))
	}
	assert.Equal(t, "60", total.String())
	assert.Equal(t, "15", a.Credit.String())
}
