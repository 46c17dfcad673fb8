package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"debtster_routes/internal/config/connections/postgres"
	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PaymentsRepo struct {
	pg    *postgres.Postgres
	table string
}

func NewPaymentsRepo(pg *postgres.Postgres) *PaymentsRepo {
	return &PaymentsRepo{pg: pg, table: "payments"}
}

const paymentColumns = `id::text, idempotency_key, client_id::text, collector_id, recorded_by,
	amount::text, installment_refs, collected_at, created_at, corrects_payment_id::text, note`

func scanPayment(row pgx.Row) (models.Payment, error) {
	var (
		p      models.Payment
		amount string
	)
	if err := row.Scan(&p.ID, &p.IdempotencyKey, &p.ClientID, &p.CollectorID, &p.RecordedBy,
		&amount, &p.InstallmentRefs, &p.CollectedAt, &p.CreatedAt, &p.CorrectsPaymentID, &p.Note); err != nil {
		return models.Payment{}, err
	}
	var err error
	if p.Amount, err = money(amount); err != nil {
		return models.Payment{}, err
	}
	return p, nil
}

func (r *PaymentsRepo) collect(ctx context.Context, sql string, args ...any) ([]models.Payment, error) {
	rows, err := r.pg.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PaymentsRepo) GetPayments(ctx context.Context, installmentRefs []string) ([]models.Payment, error) {
	if len(installmentRefs) == 0 {
		return nil, nil
	}
	return r.collect(ctx, `
		SELECT `+paymentColumns+`
		FROM `+r.table+`
		WHERE installment_refs && $1::text[]
		ORDER BY collected_at, id`, installmentRefs)
}

// AppendPayment relies on the unique idempotency index: a conflicting insert
// returns no row and the committed payment is read back instead.
func (r *PaymentsRepo) AppendPayment(ctx context.Context, p models.Payment) (models.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := r.pg.Pool.QueryRow(ctx, `
		INSERT INTO `+r.table+` (
			id, idempotency_key, client_id, collector_id, recorded_by,
			amount, installment_refs, collected_at, created_at, corrects_payment_id, note
		) VALUES (
			$1::uuid, $2, $3::uuid, $4, $5,
			$6::numeric, $7::text[], $8, NOW(), $9::uuid, $10
		)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING created_at`,
		p.ID, p.IdempotencyKey, p.ClientID, p.CollectorID, p.RecordedBy,
		p.Amount.String(), p.InstallmentRefs, p.CollectedAt, p.CorrectsPaymentID, p.Note,
	).Scan(&p.CreatedAt)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Payment{}, err
	}

	stored, ok, err := r.FindByIdempotencyKey(ctx, p.IdempotencyKey)
	if err != nil {
		return models.Payment{}, err
	}
	if !ok {
		return models.Payment{}, fmt.Errorf("key %s: conflicting insert left no row", p.IdempotencyKey)
	}
	return stored, fmt.Errorf("key %s: %w", p.IdempotencyKey, ports.ErrDuplicateSubmission)
}

func (r *PaymentsRepo) FindByIdempotencyKey(ctx context.Context, key string) (models.Payment, bool, error) {
	p, err := scanPayment(r.pg.Pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM `+r.table+` WHERE idempotency_key = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Payment{}, false, nil
	}
	if err != nil {
		return models.Payment{}, false, err
	}
	return p, true, nil
}

func (r *PaymentsRepo) GetPayment(ctx context.Context, id string) (models.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Payment{}, fmt.Errorf("payment %s: %w", id, ports.ErrNotFound)
	}
	p, err := scanPayment(r.pg.Pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM `+r.table+` WHERE id = $1::uuid`, id))
	if err != nil {
		return models.Payment{}, notFound("payment "+id, err)
	}
	return p, nil
}

// ListByCollector returns payments by collected_at within the inclusive
// civil date range, evaluated in UTC.
func (r *PaymentsRepo) ListByCollector(ctx context.Context, collectorID int64, dr models.DateRange) ([]models.Payment, error) {
	var from, to *time.Time
	if !dr.From.IsZero() {
		from = &dr.From
	}
	if !dr.To.IsZero() {
		end := dr.To.AddDate(0, 0, 1)
		to = &end
	}
	return r.collect(ctx, `
		SELECT `+paymentColumns+`
		FROM `+r.table+`
		WHERE collector_id = $1
		  AND ($2::timestamptz IS NULL OR collected_at >= $2)
		  AND ($3::timestamptz IS NULL OR collected_at < $3)
		ORDER BY collected_at, id`, collectorID, from, to)
}
