package sqlite_test

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/SscSPs/oversight/pkg/database"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens an in-memory database and applies the embedded migrations.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.OpenSQLite(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(db, "sqlite3", "", database.Up, logger))
	return db
}
