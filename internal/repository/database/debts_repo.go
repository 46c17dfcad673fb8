package database

import (
	"context"
	"fmt"
	"time"

	"debtster_routes/internal/config/connections/postgres"
	"debtster_routes/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type DebtsRepo struct {
	pg       *postgres.Postgres
	table    string
	schedule string
}

func NewDebtsRepo(pg *postgres.Postgres) *DebtsRepo {
	return &DebtsRepo{pg: pg, table: "debts", schedule: "payment_schedule"}
}

const debtColumns = `id::text, client_id::text, number, principal::text, surcharge::text,
	cadence, every, installment_count, start_on, closed_at, paid_off_at, created_at`

func scanDebt(row pgx.Row) (models.Debt, error) {
	var (
		d                    models.Debt
		principal, surcharge string
		cadence              string
	)
	if err := row.Scan(&d.ID, &d.ClientID, &d.Number, &principal, &surcharge,
		&cadence, &d.Every, &d.InstallmentCount, &d.StartOn, &d.ClosedAt, &d.PaidOffAt, &d.CreatedAt); err != nil {
		return models.Debt{}, err
	}
	var err error
	if d.Principal, err = money(principal); err != nil {
		return models.Debt{}, err
	}
	if d.Surcharge, err = money(surcharge); err != nil {
		return models.Debt{}, err
	}
	d.Cadence = models.Cadence(cadence)
	return d, nil
}

func (r *DebtsRepo) GetActiveDebts(ctx context.Context, clientID string) ([]models.Debt, error) {
	rows, err := r.pg.Pool.Query(ctx, `
		SELECT `+debtColumns+`
		FROM `+r.table+`
		WHERE client_id = $1::uuid AND closed_at IS NULL AND paid_off_at IS NULL
		ORDER BY id`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DebtsRepo) GetScheduleEntries(ctx context.Context, debtID string, dr models.DateRange) ([]models.Installment, error) {
	var from, to *time.Time
	if !dr.From.IsZero() {
		from = &dr.From
	}
	if !dr.To.IsZero() {
		to = &dr.To
	}
	rows, err := r.pg.Pool.Query(ctx, `
		SELECT id, debt_id::text, client_id::text, seq, due_on, amount::text
		FROM `+r.schedule+`
		WHERE debt_id = $1::uuid
		  AND ($2::date IS NULL OR due_on >= $2::date)
		  AND ($3::date IS NULL OR due_on <= $3::date)
		ORDER BY seq`, debtID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Installment
	for rows.Next() {
		var (
			it     models.Installment
			amount string
		)
		if err := rows.Scan(&it.ID, &it.DebtID, &it.ClientID, &it.Seq, &it.DueOn, &amount); err != nil {
			return nil, err
		}
		if it.Amount, err = money(amount); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// CreateDebt inserts the debt and its schedule in one transaction, queuing
// the installments as a single batch.
func (r *DebtsRepo) CreateDebt(ctx context.Context, d models.Debt, schedule []models.Installment) (models.Debt, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	tx, err := r.pg.Pool.Begin(ctx)
	if err != nil {
		return models.Debt{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO `+r.table+` (
			id, client_id, number, principal, surcharge, cadence, every,
			installment_count, start_on, created_at
		) VALUES (
			$1::uuid, $2::uuid, $3, $4::numeric, $5::numeric, $6, $7,
			$8, $9::date, NOW()
		)
		RETURNING created_at`,
		d.ID, d.ClientID, d.Number, d.Principal.String(), d.Surcharge.String(), string(d.Cadence), d.Every,
		d.InstallmentCount, d.StartOn,
	).Scan(&d.CreatedAt)
	if err != nil {
		return models.Debt{}, fmt.Errorf("insert debt %s: %w", d.Number, err)
	}

	batch := &pgx.Batch{}
	for _, it := range schedule {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		batch.Queue(`
			INSERT INTO `+r.schedule+` (id, debt_id, client_id, seq, due_on, amount)
			VALUES ($1, $2::uuid, $3::uuid, $4, $5::date, $6::numeric)`,
			it.ID, d.ID, d.ClientID, it.Seq, it.DueOn, it.Amount.String(),
		)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range schedule {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return models.Debt{}, fmt.Errorf("insert installment %d of %s: %w", i+1, d.Number, err)
		}
	}
	if err := br.Close(); err != nil {
		return models.Debt{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Debt{}, err
	}
	return d, nil
}

func (r *DebtsRepo) FindDebtByNumber(ctx context.Context, number string) (models.Debt, error) {
	d, err := scanDebt(r.pg.Pool.QueryRow(ctx, `
		SELECT `+debtColumns+` FROM `+r.table+` WHERE number = $1`, number))
	if err != nil {
		return models.Debt{}, notFound("debt "+number, err)
	}
	return d, nil
}

func (r *DebtsRepo) CloseDebt(ctx context.Context, debtID string, at time.Time) error {
	var id string
	err := r.pg.Pool.QueryRow(ctx, `
		UPDATE `+r.table+` SET closed_at = COALESCE(closed_at, $2)
		WHERE id = $1::uuid
		RETURNING id::text`, debtID, at,
	).Scan(&id)
	return notFound("debt "+debtID, err)
}
