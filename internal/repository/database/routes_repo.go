package database

import (
	"context"
	"fmt"

	"debtster_routes/internal/config/connections/postgres"
	"debtster_routes/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type RoutesRepo struct {
	pg    *postgres.Postgres
	table string
	stops string
}

func NewRoutesRepo(pg *postgres.Postgres) *RoutesRepo {
	return &RoutesRepo{pg: pg, table: "routes", stops: "route_stops"}
}

func (r *RoutesRepo) CreateRoute(ctx context.Context, rt models.Route) (models.Route, error) {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	tx, err := r.pg.Pool.Begin(ctx)
	if err != nil {
		return models.Route{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, `
		INSERT INTO `+r.table+` (id, name, zone, created_at)
		VALUES ($1::uuid, $2, $3, NOW())
		RETURNING created_at`, rt.ID, rt.Name, rt.Zone,
	).Scan(&rt.CreatedAt); err != nil {
		return models.Route{}, fmt.Errorf("insert route %s: %w", rt.Name, err)
	}
	if err := r.writeStops(ctx, tx, rt.ID, rt.Stops); err != nil {
		return models.Route{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Route{}, err
	}
	return rt, nil
}

func (r *RoutesRepo) FindRouteByName(ctx context.Context, name string) (models.Route, error) {
	var rt models.Route
	err := r.pg.Pool.QueryRow(ctx, `
		SELECT id::text, name, zone, created_at FROM `+r.table+` WHERE name = $1`, name,
	).Scan(&rt.ID, &rt.Name, &rt.Zone, &rt.CreatedAt)
	if err != nil {
		return models.Route{}, notFound("route "+name, err)
	}
	rt.Stops, err = r.routeStops(ctx, r.pg.Pool, rt.ID)
	return rt, err
}

func (r *RoutesRepo) ReplaceRouteStops(ctx context.Context, routeID string, stops []models.RouteStop) error {
	tx, err := r.pg.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `SELECT 1 FROM `+r.table+` WHERE id = $1::uuid FOR UPDATE`, routeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("route "+routeID, pgx.ErrNoRows)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM `+r.stops+` WHERE route_id = $1::uuid`, routeID); err != nil {
		return err
	}
	if err := r.writeStops(ctx, tx, routeID, stops); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *RoutesRepo) writeStops(ctx context.Context, tx pgx.Tx, routeID string, stops []models.RouteStop) error {
	if len(stops) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range stops {
		batch.Queue(`
			INSERT INTO `+r.stops+` (route_id, client_id, position)
			VALUES ($1::uuid, $2::uuid, $3)
			ON CONFLICT (route_id, client_id) DO UPDATE SET position = EXCLUDED.position`,
			routeID, s.ClientID, s.Position,
		)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for _, s := range stops {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("stop %s: %w", s.ClientID, err)
		}
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// routeStops returns a route's stops joined with client display fields.
func (r *RoutesRepo) routeStops(ctx context.Context, q querier, routeID string) ([]models.RouteStop, error) {
	rows, err := q.Query(ctx, `
		SELECT s.client_id::text, c.full_name, c.address, s.position
		FROM `+r.stops+` s
		JOIN clients c ON c.id = s.client_id
		WHERE s.route_id = $1::uuid
		ORDER BY s.position NULLS LAST, s.client_id`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RouteStop
	for rows.Next() {
		var s models.RouteStop
		if err := rows.Scan(&s.ClientID, &s.ClientName, &s.Address, &s.Position); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
