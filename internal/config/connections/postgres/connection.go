package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const appName = "debtster_routes"

type ConnectionInfo struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
	SSLMode  string
	// MaxConns caps the pool; the route engine loads client books in
	// parallel and each load holds a connection. Zero keeps the pgx default.
	MaxConns int32
}

type Postgres struct {
	Pool *pgxpool.Pool
}

func (info ConnectionInfo) poolConfig() (*pgxpool.Config, error) {
	sslMode := info.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	cfg, err := pgxpool.ParseConfig(fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		info.Host, info.Port, info.User, info.Password, info.DB, sslMode,
	))
	if err != nil {
		return nil, err
	}
	if info.MaxConns > 0 {
		cfg.MaxConns = info.MaxConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.RuntimeParams["application_name"] = appName
	// installment due dates and collected_at are compared as UTC
	cfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	return cfg, nil
}

func NewConnection(ctx context.Context, info ConnectionInfo) (*Postgres, error) {
	cfg, err := info.poolConfig()
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping %s:%s/%s: %w", info.Host, info.Port, info.DB, err)
	}

	return &Postgres{Pool: pool}, nil
}

func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}
