package database

import (
	"database/sql"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func tableExists(t *testing.T, conn *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrateUpDown(t *testing.T) {
	conn := openMemory(t)

	version, dirty, err := MigrateVersion(conn)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, MigrateUp(conn))
	// idempotent
	require.NoError(t, MigrateUp(conn))

	version, dirty, err = MigrateVersion(conn)
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)
	for _, table := range []string{"sensor_readings", "reading_outcomes", "learned_models", "analysis_tasks"} {
		assert.True(t, tableExists(t, conn, table), table)
	}

	require.NoError(t, MigrateDown(conn))
	version, _, err = MigrateVersion(conn)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, tableExists(t, conn, "analysis_tasks"))
	assert.True(t, tableExists(t, conn, "learned_models"))
}

func TestTransactionRollsBack(t *testing.T) {
	conn := openMemory(t)
	require.NoError(t, MigrateUp(conn))

	boom := errors.New("boom")
	err := Transaction(conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO learned_models (venue_id, computed_at) VALUES ('v1', 1)`); err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err)

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM learned_models`).Scan(&n))
	assert.Zero(t, n)

	require.NoError(t, Transaction(conn, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO learned_models (venue_id, computed_at) VALUES ('v1', 1)`)
		return err
	}))
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM learned_models`).Scan(&n))
	assert.Equal(t, 1, n)
}
