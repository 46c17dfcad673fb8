package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"debtster_routes/internal/config/connections/mongo"
	"debtster_routes/internal/config/connections/postgres"
	rd "debtster_routes/internal/config/connections/redis"
	"debtster_routes/internal/config/connections/s3"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings are the typed values read from the environment and .env.
type Settings struct {
	Port           string
	LogLevel       string
	AllowedOrigins []string

	Postgres postgres.ConnectionInfo
	Mongo    mongo.ConnectionInfo
	S3       s3.ConnectionInfo
	Redis    rd.ConnectionInfo

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	RouteTimezone     string
	RouteHorizonDays  int
	CarryForwardDays  int
	OfflineMaxAgeDays int
	EngineConcurrency int
	ClockSkew         time.Duration
	StoreRetryMax     int
	StoreRetryBase    time.Duration
	ExportCron        string
	ImportBatchSize   int
}

func defaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8070")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("PG_HOST", "127.0.0.1")
	v.SetDefault("PG_PORT", "5432")
	v.SetDefault("PG_USER", "root")
	v.SetDefault("PG_PASSWORD", "hello-world")
	v.SetDefault("PG_DB", "debtster")
	v.SetDefault("PG_SSLMODE", "disable")
	v.SetDefault("PG_MAX_CONNS", 0)

	v.SetDefault("MONGO_SCHEME", "mongodb")
	v.SetDefault("MONGO_USER", "root")
	v.SetDefault("MONGO_PASSWORD", "secret")
	v.SetDefault("MONGO_HOST", "127.0.0.1")
	v.SetDefault("MONGO_PORT", "27017")
	v.SetDefault("MONGO_DB", "import_db")
	v.SetDefault("MONGO_AUTH_SOURCE", "admin")

	v.SetDefault("AWS_ENDPOINT", "http://localhost:9000")
	v.SetDefault("AWS_ACCESS_KEY_ID", "minioadmin")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "minioadmin")
	v.SetDefault("AWS_DEFAULT_REGION", "us-east-1")
	v.SetDefault("AWS_BUCKET", "exports")
	v.SetDefault("AWS_USE_SSL", false)

	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "debtster_routes")
	v.SetDefault("JWT_TTL", "12h")

	v.SetDefault("ROUTE_TIMEZONE", "UTC")
	v.SetDefault("ROUTE_HORIZON_DAYS", 7)
	v.SetDefault("CARRY_FORWARD_DAYS", 0)
	v.SetDefault("OFFLINE_MAX_AGE_DAYS", 3)
	v.SetDefault("ENGINE_CONCURRENCY", 8)
	v.SetDefault("CLOCK_SKEW", "10m")
	v.SetDefault("STORE_RETRY_MAX", 3)
	v.SetDefault("STORE_RETRY_BASE", "100ms")
	v.SetDefault("EXPORT_CRON", "0 20 * * *")
	v.SetDefault("IMPORT_BATCH_SIZE", 1000)
}

// Load reads .env if present, then the process environment.
func Load() Settings {
	_ = godotenv.Load()
	v := viper.New()
	v.AutomaticEnv()
	defaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) Settings {
	endpoint, ssl := splitEndpoint(v.GetString("AWS_ENDPOINT"), v.GetBool("AWS_USE_SSL"))
	return Settings{
		Port:           v.GetString("SERVER_PORT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		Postgres: postgres.ConnectionInfo{
			Host:     v.GetString("PG_HOST"),
			Port:     v.GetString("PG_PORT"),
			User:     v.GetString("PG_USER"),
			Password: v.GetString("PG_PASSWORD"),
			DB:       v.GetString("PG_DB"),
			SSLMode:  v.GetString("PG_SSLMODE"),
			MaxConns: poolSize(v.GetInt32("PG_MAX_CONNS"), v.GetInt("ENGINE_CONCURRENCY")),
		},
		Mongo: mongo.ConnectionInfo{
			Scheme:     v.GetString("MONGO_SCHEME"),
			User:       v.GetString("MONGO_USER"),
			Password:   v.GetString("MONGO_PASSWORD"),
			Host:       v.GetString("MONGO_HOST"),
			Port:       v.GetString("MONGO_PORT"),
			DB:         v.GetString("MONGO_DB"),
			AuthSource: v.GetString("MONGO_AUTH_SOURCE"),
		},
		S3: s3.ConnectionInfo{
			Endpoint:  endpoint,
			AccessKey: v.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			Region:    v.GetString("AWS_DEFAULT_REGION"),
			Bucket:    v.GetString("AWS_BUCKET"),
			UseSSL:    ssl,
		},
		Redis: rd.ConnectionInfo{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTIssuer: v.GetString("JWT_ISSUER"),
		JWTTTL:    v.GetDuration("JWT_TTL"),

		RouteTimezone:     v.GetString("ROUTE_TIMEZONE"),
		RouteHorizonDays:  v.GetInt("ROUTE_HORIZON_DAYS"),
		CarryForwardDays:  v.GetInt("CARRY_FORWARD_DAYS"),
		OfflineMaxAgeDays: v.GetInt("OFFLINE_MAX_AGE_DAYS"),
		EngineConcurrency: v.GetInt("ENGINE_CONCURRENCY"),
		ClockSkew:         v.GetDuration("CLOCK_SKEW"),
		StoreRetryMax:     v.GetInt("STORE_RETRY_MAX"),
		StoreRetryBase:    v.GetDuration("STORE_RETRY_BASE"),
		ExportCron:        v.GetString("EXPORT_CRON"),
		ImportBatchSize:   v.GetInt("IMPORT_BATCH_SIZE"),
	}
}

// poolSize leaves headroom over the engine's parallel book loads for
// request handlers and the import worker.
func poolSize(configured int32, concurrency int) int32 {
	if configured > 0 {
		return configured
	}
	if concurrency < 1 {
		return 0
	}
	return int32(concurrency) + 4
}

// splitEndpoint strips a URL scheme from endpoint; minio wants host:port.
// An https scheme turns TLS on.
func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), useSSL
	}
	return endpoint, useSSL
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type Config struct {
	Settings Settings
	S3       *s3.S3
	Mongo    *mongo.Mongo
	Postgres *postgres.Postgres
	Redis    *rd.Redis
}

// Init opens every connection. Connections opened before a failure are
// closed again.
func Init(ctx context.Context, s Settings) (*Config, error) {
	c := &Config{Settings: s}

	s3c, err := s3.NewConnection(s.S3)
	if err != nil {
		return nil, fmt.Errorf("s3 connect: %w", err)
	}
	c.S3 = s3c

	if c.Mongo, err = mongo.NewConnection(ctx, s.Mongo); err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if c.Postgres, err = postgres.NewConnection(ctx, s.Postgres); err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	if c.Redis, err = rd.NewConnection(ctx, s.Redis); err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return c, nil
}

func (c *Config) Close(ctx context.Context) {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Postgres != nil {
		c.Postgres.Close()
	}
	if c.Mongo != nil {
		_ = c.Mongo.Close(ctx)
	}
}

// Probes lists one ping per backing service, for /health and startup checks.
func (c *Config) Probes() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"postgres": func(ctx context.Context) error {
			if c.Postgres == nil || c.Postgres.Pool == nil {
				return errors.New("not initialized")
			}
			return c.Postgres.Pool.Ping(ctx)
		},
		"mongo": func(ctx context.Context) error {
			if c.Mongo == nil || c.Mongo.Client == nil {
				return errors.New("not initialized")
			}
			return c.Mongo.Client.Ping(ctx, nil)
		},
		"s3": func(ctx context.Context) error {
			if c.S3 == nil || c.S3.Client == nil {
				return errors.New("not initialized")
			}
			ok, err := c.S3.Client.BucketExists(ctx, c.S3.Bucket)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("bucket %q not found", c.S3.Bucket)
			}
			return nil
		},
		"redis": func(ctx context.Context) error {
			if c.Redis == nil || c.Redis.Client == nil {
				return errors.New("not initialized")
			}
			return c.Redis.Client.Ping(ctx).Err()
		},
	}
}

func (c *Config) CheckConnections(ctx context.Context) error {
	var errs []error
	for name, probe := range c.Probes() {
		if err := probe(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
