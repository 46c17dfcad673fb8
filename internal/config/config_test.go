package config

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	defaults(v)
	s := fromViper(v)

	assert.Equal(t, "8070", s.Port)
	assert.Equal(t, 7, s.RouteHorizonDays)
	assert.Equal(t, 0, s.CarryForwardDays)
	assert.Equal(t, 3, s.OfflineMaxAgeDays)
	assert.Equal(t, int32(12), s.Postgres.MaxConns)
	assert.Equal(t, 8, s.EngineConcurrency)
	assert.Equal(t, 3, s.StoreRetryMax)
	assert.Equal(t, 100*time.Millisecond, s.StoreRetryBase)
	assert.Equal(t, 10*time.Minute, s.ClockSkew)
	assert.Equal(t, 12*time.Hour, s.JWTTTL)
	assert.Equal(t, "0 20 * * *", s.ExportCron)
	assert.Equal(t, "localhost:9000", s.S3.Endpoint)
	assert.False(t, s.S3.UseSSL)
	assert.Equal(t, []string{"*"}, s.AllowedOrigins)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("ROUTE_HORIZON_DAYS", "3")
	t.Setenv("CARRY_FORWARD_DAYS", "30")
	t.Setenv("OFFLINE_MAX_AGE_DAYS", "1")
	t.Setenv("PG_MAX_CONNS", "40")
	t.Setenv("STORE_RETRY_BASE", "250ms")
	t.Setenv("AWS_ENDPOINT", "https://s3.example:443")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	v := viper.New()
	v.AutomaticEnv()
	defaults(v)
	s := fromViper(v)

	assert.Equal(t, 3, s.RouteHorizonDays)
	assert.Equal(t, 30, s.CarryForwardDays)
	assert.Equal(t, 1, s.OfflineMaxAgeDays)
	assert.Equal(t, int32(40), s.Postgres.MaxConns)
	assert.Equal(t, 250*time.Millisecond, s.StoreRetryBase)
	assert.Equal(t, "s3.example:443", s.S3.Endpoint)
	assert.True(t, s.S3.UseSSL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.AllowedOrigins)
}

func TestCheckConnectionsReportsEveryMissingService(t *testing.T) {
	err := (&Config{}).CheckConnections(context.Background())
	assert.Error(t, err)
	for _, name := range []string{"postgres", "mongo", "s3", "redis"} {
		assert.Contains(t, err.Error(), name)
	}
}
