package schedule

import (
	"testing"
	"time"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/timeutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := timeutil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestGenerateDaily(t *testing.T) {
	d := models.Debt{
		ID:               "d1",
		ClientID:         "c1",
		Principal:        decimal.NewFromInt(100),
		Cadence:          models.CadenceDaily,
		InstallmentCount: 5,
		StartOn:          day("2025-09-01"),
	}
	items, err := Generate(d)
	require.NoError(t, err)
	require.Len(t, items, 5)
	for i, it := range items {
		assert.Equal(t, i+1, it.Seq)
		assert.True(t, it.Amount.Equal(decimal.NewFromInt(20)))
		assert.Equal(t, "d1", it.DebtID)
		assert.Equal(t, "c1", it.ClientID)
	}
	assert.Equal(t, "2025-09-05", timeutil.FormatDate(items[4].DueOn))
	require.NoError(t, Validate(d, items))
}

func TestGenerateRemainderGoesToLastInstallment(t *testing.T) {
	d := models.Debt{
		Principal:        decimal.NewFromInt(100),
		Surcharge:        decimal.RequireFromString("0.01"),
		Cadence:          models.CadenceWeekly,
		InstallmentCount: 3,
		StartOn:          day("2025-09-01"),
	}
	items, err := Generate(d)
	require.NoError(t, err)
	assert.Equal(t, "33.33", items[0].Amount.StringFixed(2))
	assert.Equal(t, "33.35", items[2].Amount.StringFixed(2))
	assert.Equal(t, "2025-09-15", timeutil.FormatDate(items[2].DueOn))
	require.NoError(t, Validate(d, items))
}

func TestGenerateMonthlyClampsMonthEnd(t *testing.T) {
	d := models.Debt{
		Principal:        decimal.NewFromInt(300),
		Cadence:          models.CadenceMonthly,
		InstallmentCount: 3,
		StartOn:          day("2025-01-31"),
	}
	items, err := Generate(d)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-28", timeutil.FormatDate(items[1].DueOn))
	assert.Equal(t, "2025-03-31", timeutil.FormatDate(items[2].DueOn))
}

func TestGenerateRejectsBadDebts(t *testing.T) {
	_, err := Generate(models.Debt{Principal: decimal.NewFromInt(10), StartOn: day("2025-09-01")})
	assert.ErrorIs(t, err, ports.ErrInvalidSchedule)

	_, err = Generate(models.Debt{InstallmentCount: 2, StartOn: day("2025-09-01")})
	assert.ErrorIs(t, err, ports.ErrInvalidSchedule)

	_, err = Generate(models.Debt{Principal: decimal.RequireFromString("0.01"), InstallmentCount: 3, StartOn: day("2025-09-01")})
	assert.ErrorIs(t, err, ports.ErrInvalidSchedule)
}

func TestValidateDetectsBrokenInvariants(t *testing.T) {
	d := models.Debt{
		Principal:        decimal.NewFromInt(60),
		Cadence:          models.CadenceDaily,
		InstallmentCount: 3,
		StartOn:          day("2025-09-01"),
	}
	good, err := Generate(d)
	require.NoError(t, err)

	gap := append([]models.Installment(nil), good...)
	gap[2].DueOn = day("2025-09-04")
	assert.ErrorIs(t, Validate(d, gap), ports.ErrInvalidSchedule)

	short := append([]models.Installment(nil), good...)
	short[1].Amount = decimal.NewFromInt(19)
	assert.ErrorIs(t, Validate(d, short), ports.ErrInvalidSchedule)

	assert.ErrorIs(t, Validate(d, good[:2]), ports.ErrInvalidSchedule)
}
