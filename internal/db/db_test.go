package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRunsMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	db, err := Open(path)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&count))
	assert.Equal(t, 1, count)
	require.NoError(t, db.Close())

	// Reopening must not re-apply migrations.
	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "catalog.db")

	db, err := Open(path, WithBusyTimeout(1000))
	require.NoError(t, err)
	defer db.Close()

	var name string
	require.NoError(t, db.Conn().QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='groups'`,
	).Scan(&name))
	assert.Equal(t, "groups", name)
}
