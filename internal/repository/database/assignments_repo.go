package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"debtster_routes/internal/config/connections/postgres"
	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/services/assignment"
	"debtster_routes/internal/timeutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// assignmentLockKey serializes assignment writes so the overlap check and
// the insert see the same state.
const assignmentLockKey = 7_340_001

type AssignmentsRepo struct {
	pg     *postgres.Postgres
	table  string
	stops  string
	routes *RoutesRepo
}

func NewAssignmentsRepo(pg *postgres.Postgres) *AssignmentsRepo {
	return &AssignmentsRepo{pg: pg, table: "route_assignments", stops: "route_assignment_stops", routes: NewRoutesRepo(pg)}
}

const assignmentColumns = `a.id::text, a.route_id::text, a.route_name, a.collector_id, a.date,
	a.weekdays, a.valid_from, a.valid_until, a.seq, a.created_by, a.created_at`

// coversDate is a predicate true when assignment a applies on the date
// bound to placeholder p.
func coversDate(p string) string {
	return `(a.date = ` + p + `::date OR (a.date IS NULL
		AND ` + p + `::date BETWEEN a.valid_from AND a.valid_until
		AND EXTRACT(DOW FROM ` + p + `::date)::int = ANY(a.weekdays)))`
}

func (r *AssignmentsRepo) GetAssignments(ctx context.Context, collectorID int64, date time.Time) ([]models.RouteAssignment, error) {
	return r.load(ctx, r.pg.Pool, `
		SELECT `+assignmentColumns+`
		FROM `+r.table+` a
		WHERE a.collector_id = $1 AND `+coversDate("$2")+`
		ORDER BY a.seq, a.id`, collectorID, date)
}

func (r *AssignmentsRepo) AssignedCollector(ctx context.Context, clientID string, date time.Time) (int64, bool, error) {
	var collectorID int64
	err := r.pg.Pool.QueryRow(ctx, `
		SELECT a.collector_id
		FROM `+r.table+` a
		JOIN `+r.stops+` s ON s.assignment_id = a.id
		WHERE s.client_id::text = $1 AND `+coversDate("$2")+`
		ORDER BY a.seq, a.id
		LIMIT 1`, clientID, date,
	).Scan(&collectorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return collectorID, true, nil
}

func (r *AssignmentsRepo) CollectorsOn(ctx context.Context, date time.Time) ([]int64, error) {
	rows, err := r.pg.Pool.Query(ctx, `
		SELECT DISTINCT a.collector_id
		FROM `+r.table+` a
		WHERE `+coversDate("$1")+`
		ORDER BY a.collector_id`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CreateAssignment validates the window, snapshots the route's current stops
// and rejects client overlap with other collectors.
func (r *AssignmentsRepo) CreateAssignment(ctx context.Context, a models.RouteAssignment, today time.Time) (models.RouteAssignment, error) {
	if err := assignment.ValidateWindow(a, today); err != nil {
		return models.RouteAssignment{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	tx, err := r.pg.Pool.Begin(ctx)
	if err != nil {
		return models.RouteAssignment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, assignmentLockKey); err != nil {
		return models.RouteAssignment{}, err
	}

	if err := tx.QueryRow(ctx, `SELECT name FROM routes WHERE id = $1::uuid`, a.RouteID).Scan(&a.RouteName); err != nil {
		return models.RouteAssignment{}, notFound("route "+a.RouteID, err)
	}
	if a.Stops, err = r.routes.routeStops(ctx, tx, a.RouteID); err != nil {
		return models.RouteAssignment{}, err
	}

	existing, err := r.load(ctx, tx, `
		SELECT `+assignmentColumns+`
		FROM `+r.table+` a
		WHERE a.collector_id <> $1
		  AND COALESCE(a.date, a.valid_until) >= $2::date
		  AND COALESCE(a.date, a.valid_from) <= $3::date`,
		a.CollectorID, a.FirstDay(), a.LastDay())
	if err != nil {
		return models.RouteAssignment{}, err
	}
	if err := assignment.CheckConflicts(a, existing); err != nil {
		return models.RouteAssignment{}, err
	}

	var (
		weekdays    []int32
		from, until *time.Time
	)
	if rec := a.Recurrence; rec != nil {
		for _, d := range rec.Weekdays {
			weekdays = append(weekdays, int32(d))
		}
		from, until = &rec.From, &rec.Until
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO `+r.table+` (
			id, route_id, route_name, collector_id, date, weekdays,
			valid_from, valid_until, seq, created_by, created_at
		) VALUES (
			$1::uuid, $2::uuid, $3, $4, $5::date, $6,
			$7::date, $8::date, $9, $10, NOW()
		)
		RETURNING created_at`,
		a.ID, a.RouteID, a.RouteName, a.CollectorID, a.Date, weekdays,
		from, until, a.Seq, a.CreatedBy,
	).Scan(&a.CreatedAt); err != nil {
		return models.RouteAssignment{}, fmt.Errorf("insert assignment: %w", err)
	}

	batch := &pgx.Batch{}
	for i, s := range a.Stops {
		batch.Queue(`
			INSERT INTO `+r.stops+` (assignment_id, client_id, client_name, address, position, ord)
			VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6)`,
			a.ID, s.ClientID, s.ClientName, s.Address, s.Position, i,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range a.Stops {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return models.RouteAssignment{}, fmt.Errorf("snapshot stops: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return models.RouteAssignment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.RouteAssignment{}, err
	}
	return a, nil
}

func (r *AssignmentsRepo) CancelAssignment(ctx context.Context, id string, today time.Time) error {
	tx, err := r.pg.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	list, err := r.load(ctx, tx, `
		SELECT `+assignmentColumns+` FROM `+r.table+` a WHERE a.id::text = $1 FOR UPDATE`, id)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("assignment %s: %w", id, ports.ErrNotFound)
	}
	if !list[0].FirstDay().After(today) {
		return fmt.Errorf("assignment %s starts %s: %w", id, timeutil.FormatDate(list[0].FirstDay()), ports.ErrImmutableAssignment)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM `+r.table+` WHERE id = $1::uuid`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// load scans assignments selected with assignmentColumns and attaches their
// stop snapshots.
func (r *AssignmentsRepo) load(ctx context.Context, q querier, sql string, args ...any) ([]models.RouteAssignment, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	var (
		out   []models.RouteAssignment
		ids   []string
		index = map[string]int{}
	)
	for rows.Next() {
		var (
			a           models.RouteAssignment
			weekdays    []int32
			from, until *time.Time
		)
		if err := rows.Scan(&a.ID, &a.RouteID, &a.RouteName, &a.CollectorID, &a.Date,
			&weekdays, &from, &until, &a.Seq, &a.CreatedBy, &a.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		if a.Date == nil && from != nil && until != nil {
			rec := &models.Recurrence{From: *from, Until: *until}
			for _, d := range weekdays {
				rec.Weekdays = append(rec.Weekdays, time.Weekday(d))
			}
			a.Recurrence = rec
		}
		index[a.ID] = len(out)
		ids = append(ids, a.ID)
		out = append(out, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	srows, err := q.Query(ctx, `
		SELECT assignment_id::text, client_id::text, client_name, address, position
		FROM `+r.stops+`
		WHERE assignment_id::text = ANY($1)
		ORDER BY assignment_id, ord`, ids)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var (
			assignmentID string
			s            models.RouteStop
		)
		if err := srows.Scan(&assignmentID, &s.ClientID, &s.ClientName, &s.Address, &s.Position); err != nil {
			return nil, err
		}
		i := index[assignmentID]
		out[i].Stops = append(out[i].Stops, s)
	}
	return out, srows.Err()
}
