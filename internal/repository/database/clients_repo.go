package database

import (
	"context"
	"fmt"
	"strings"

	"debtster_routes/internal/config/connections/postgres"
	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"

	"github.com/google/uuid"
)

type ClientsRepo struct {
	pg    *postgres.Postgres
	table string
}

func NewClientsRepo(pg *postgres.Postgres) *ClientsRepo {
	return &ClientsRepo{pg: pg, table: "clients"}
}

func (r *ClientsRepo) CreateClient(ctx context.Context, c models.Client) (models.Client, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.FullName = strings.TrimSpace(c.FullName)

	err := r.pg.Pool.QueryRow(ctx, `
		INSERT INTO `+r.table+` (id, full_name, last_name, first_name, middle_name, phone, address, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			last_name = EXCLUDED.last_name,
			first_name = EXCLUDED.first_name,
			middle_name = EXCLUDED.middle_name,
			phone = COALESCE(NULLIF(EXCLUDED.phone, ''), `+r.table+`.phone),
			address = COALESCE(NULLIF(EXCLUDED.address, ''), `+r.table+`.address)
		RETURNING created_at`,
		c.ID, c.FullName, c.LastName, c.FirstName, c.MiddleName, c.Phone, c.Address,
	).Scan(&c.CreatedAt)
	return c, err
}

func (r *ClientsRepo) FindClient(ctx context.Context, id string) (models.Client, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Client{}, fmt.Errorf("client %s: %w", id, ports.ErrNotFound)
	}
	var c models.Client
	err := r.pg.Pool.QueryRow(ctx, `
		SELECT id::text, full_name, last_name, first_name, middle_name, phone, address, created_at
		FROM `+r.table+` WHERE id = $1::uuid`, id,
	).Scan(&c.ID, &c.FullName, &c.LastName, &c.FirstName, &c.MiddleName, &c.Phone, &c.Address, &c.CreatedAt)
	if err != nil {
		return models.Client{}, notFound("client "+id, err)
	}
	return c, nil
}
