package database

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToPgx5DSN(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db", convertToPgx5DSN("postgres://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://u:p@h/db", convertToPgx5DSN("postgresql://u:p@h/db"))
	assert.Equal(t, "pgx5://u@h/db", convertToPgx5DSN("pgx5://u@h/db"))
	assert.Equal(t, "host=h dbname=db", convertToPgx5DSN("host=h dbname=db"))
}

func TestWithSessionParams_AddsTimeouts(t *testing.T) {
	out, err := withSessionParams("postgres://u:p@h:5432/db?sslmode=disable", 10*time.Second, 10*time.Second)
	require.NoError(t, err)

	u, err := url.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "10000", u.Query().Get("statement_timeout"))
	assert.Equal(t, "10", u.Query().Get("connect_timeout"))
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestWithSessionParams_KeepsExplicitValues(t *testing.T) {
	out, err := withSessionParams("postgres://h/db?statement_timeout=500", 10*time.Second, 0)
	require.NoError(t, err)

	u, err := url.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "500", u.Query().Get("statement_timeout"))
	assert.Empty(t, u.Query().Get("connect_timeout"))
}

func TestMigrationFiles_Embedded(t *testing.T) {
	up, err := migrationFiles.ReadFile("migrations/000001_init.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "ON DELETE CASCADE")
	assert.Contains(t, string(up), "idx_ratings_theme_user")

	_, err = migrationFiles.ReadFile("migrations/000001_init.down.sql")
	assert.NoError(t, err)
}
