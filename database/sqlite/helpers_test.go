package sqlite_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace"
	"github.com/retracehq/retrace/database/sqlite"

	_ "modernc.org/sqlite" // SQLite driver
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepo creates a migrated repo backed by an in-memory database.
// Each test gets a unique table name for isolation.
func setupTestRepo(t *testing.T) *sqlite.Repo {
	t.Helper()

	ctx := context.Background()
	tables := retrace.Tables{Sessions: fmt.Sprintf("sessions_%s", getRandomString(t))}

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "failed to open database")

	t.Cleanup(func() { _ = db.Close() })

	err = sqlite.Migrate(ctx, db, tables)
	require.NoError(t, err, "failed to migrate")

	err = sqlite.ValidateSchema(ctx, db, tables)
	require.NoError(t, err, "failed to validate schema")

	repo, err := sqlite.NewRepo(db, tables)
	require.NoError(t, err, "failed to create repo")

	return repo
}

// insertTestSession inserts a session with the given page URL and returns
// the stored row.
func insertTestSession(t *testing.T, repo *sqlite.Repo, pageURL string) retrace.Session {
	t.Helper()

	stored, err := repo.Insert(context.Background(), retrace.Session{
		ID:            uuid.New(),
		PageURL:       pageURL,
		UserAgent:     "test-agent",
		EventCount:    3,
		RecordingKey:  "sessions/test/recording.json",
		RecordingSize: 512,
	})
	require.NoError(t, err, "failed to insert session")

	return stored
}
