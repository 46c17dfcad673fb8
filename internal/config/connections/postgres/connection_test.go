package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	cfg, err := ConnectionInfo{
		Host: "db", Port: "5433", User: "routes", Password: "pw", DB: "debtster", MaxConns: 18,
	}.poolConfig()
	require.NoError(t, err)

	assert.Equal(t, int32(18), cfg.MaxConns)
	assert.Equal(t, "db", cfg.ConnConfig.Host)
	assert.Equal(t, uint16(5433), cfg.ConnConfig.Port)
	assert.Equal(t, "debtster", cfg.ConnConfig.Database)
	assert.Equal(t, "debtster_routes", cfg.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "UTC", cfg.ConnConfig.RuntimeParams["timezone"])
	assert.Nil(t, cfg.ConnConfig.TLSConfig)
}

func TestPoolConfigKeepsDefaultSize(t *testing.T) {
	def, err := ConnectionInfo{Host: "db", Port: "5432", DB: "x"}.poolConfig()
	require.NoError(t, err)
	assert.Positive(t, def.MaxConns)
}
