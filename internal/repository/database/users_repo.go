package database

import (
	"context"

	"debtster_routes/internal/config/connections/postgres"
	"debtster_routes/internal/models"
)

// UserRepo reads roles. It does not cache: a role revoked in the users
// table applies to the very next request.
type UserRepo struct {
	pg    *postgres.Postgres
	table string
}

func NewUserRepo(pg *postgres.Postgres) *UserRepo {
	return &UserRepo{pg: pg, table: "users"}
}

func (r *UserRepo) GetTableName() string {
	return r.table
}

func (r *UserRepo) RoleOf(ctx context.Context, userID int64) (models.Role, error) {
	var role string
	err := r.pg.Pool.QueryRow(ctx,
		`SELECT role FROM `+r.table+` WHERE id = $1 LIMIT 1`,
		userID,
	).Scan(&role)
	if err != nil {
		return "", notFound("user", err)
	}
	return models.Role(role), nil
}
