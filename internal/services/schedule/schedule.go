package schedule

import (
	"fmt"
	"time"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/timeutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DueDate returns the due date of the seq-th installment (1-based).
func DueDate(d models.Debt, seq int) time.Time {
	every := d.Every
	if every <= 0 {
		every = 1
	}
	step := (seq - 1) * every
	switch d.Cadence {
	case models.CadenceWeekly:
		return timeutil.AddDays(d.StartOn, 7*step)
	case models.CadenceBiweekly:
		return timeutil.AddDays(d.StartOn, 14*step)
	case models.CadenceMonthly:
		return timeutil.AddMonthsClamped(d.StartOn, step)
	default:
		return timeutil.AddDays(d.StartOn, step)
	}
}

// Generate builds the installment schedule for d. The per-installment amount
// is the total divided evenly and floored to cents; the last installment
// absorbs the remainder so the schedule sums to d.Total() exactly.
func Generate(d models.Debt) ([]models.Installment, error) {
	if d.InstallmentCount <= 0 {
		return nil, fmt.Errorf("%w: installment count must be positive", ports.ErrInvalidSchedule)
	}
	if d.StartOn.IsZero() {
		return nil, fmt.Errorf("%w: start date required", ports.ErrInvalidSchedule)
	}
	total := d.Total()
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: total obligation must be positive", ports.ErrInvalidSchedule)
	}

	n := decimal.NewFromInt(int64(d.InstallmentCount))
	base := total.Div(n).RoundFloor(2)
	if !base.IsPositive() {
		return nil, fmt.Errorf("%w: total %s too small for %d installments", ports.ErrInvalidSchedule, total, d.InstallmentCount)
	}
	last := total.Sub(base.Mul(decimal.NewFromInt(int64(d.InstallmentCount - 1))))

	out := make([]models.Installment, 0, d.InstallmentCount)
	for seq := 1; seq <= d.InstallmentCount; seq++ {
		amount := base
		if seq == d.InstallmentCount {
			amount = last
		}
		out = append(out, models.Installment{
			ID:       uuid.NewString(),
			DebtID:   d.ID,
			ClientID: d.ClientID,
			Seq:      seq,
			DueOn:    DueDate(d, seq),
			Amount:   amount,
		})
	}
	return out, nil
}

// Validate checks the schedule invariants: sequence 1..n, strictly increasing
// gapless due dates per the cadence, positive amounts summing to the total.
func Validate(d models.Debt, items []models.Installment) error {
	if len(items) != d.InstallmentCount {
		return fmt.Errorf("%w: want %d installments, got %d", ports.ErrInvalidSchedule, d.InstallmentCount, len(items))
	}
	sum := decimal.Zero
	for i, it := range items {
		if it.Seq != i+1 {
			return fmt.Errorf("%w: installment %d has seq %d", ports.ErrInvalidSchedule, i+1, it.Seq)
		}
		if !it.Amount.IsPositive() {
			return fmt.Errorf("%w: installment %d amount %s", ports.ErrInvalidSchedule, it.Seq, it.Amount)
		}
		if want := DueDate(d, it.Seq); !it.DueOn.Equal(want) {
			return fmt.Errorf("%w: installment %d due %s, cadence expects %s",
				ports.ErrInvalidSchedule, it.Seq, timeutil.FormatDate(it.DueOn), timeutil.FormatDate(want))
		}
		if i > 0 && !it.DueOn.After(items[i-1].DueOn) {
			return fmt.Errorf("%w: due dates not increasing at %d", ports.ErrInvalidSchedule, it.Seq)
		}
		sum = sum.Add(it.Amount)
	}
	if !sum.Equal(d.Total()) {
		return fmt.Errorf("%w: installments sum to %s, obligation is %s", ports.ErrInvalidSchedule, sum, d.Total())
	}
	return nil
}
