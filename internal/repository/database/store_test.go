package database

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"debtster_routes/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFoundMapsNoRows(t *testing.T) {
	assert.ErrorIs(t, notFound("debt x", pgx.ErrNoRows), ports.ErrNotFound)
	assert.ErrorIs(t, notFound("debt x", fmt.Errorf("scan: %w", pgx.ErrNoRows)), ports.ErrNotFound)

	other := errors.New("conn reset")
	assert.Equal(t, other, notFound("debt x", other))
	assert.NoError(t, notFound("debt x", nil))
}

func TestMoney(t *testing.T) {
	d, err := money("1234.50")
	require.NoError(t, err)
	assert.Equal(t, "1234.5", d.String())

	_, err = money("12,50")
	assert.Error(t, err)
}

func TestCoversDatePlaceholder(t *testing.T) {
	sql := coversDate("$7")
	assert.Contains(t, sql, "a.date = $7::date")
	assert.Contains(t, sql, "EXTRACT(DOW FROM $7::date)")
	assert.NotContains(t, sql, "$2")
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	body, err := migrationsFS.ReadFile(names[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "payments_idempotency_key_uq")
}
