package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "insightlab_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate(5000))
	return database
}

func TestMigrate_Idempotent(t *testing.T) {
	database := newTestDB(t)
	require.NoError(t, database.Migrate(9999))

	// The second migrate must not reseed an existing budget.
	b, err := database.GetBudget(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5000, b.DailyLimit)
	assert.Equal(t, 60, b.YellowPct)
	assert.Equal(t, "1", database.GetSetting("schema_version", ""))
}

func TestBudget_SetGet(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	want := TokenBudget{DailyLimit: 100, YellowPct: 50, OrangePct: 70, RedPct: 95}
	require.NoError(t, database.SetBudget(ctx, want))
	got, err := database.GetBudget(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSettings(t *testing.T) {
	database := newTestDB(t)
	assert.Equal(t, "fallback", database.GetSetting("missing", "fallback"))
	require.NoError(t, database.SetSetting("k", "v1"))
	require.NoError(t, database.SetSetting("k", "v2"))
	assert.Equal(t, "v2", database.GetSetting("k", ""))
}

func TestPurgeBefore(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -40).Format("2006-01-02")
	today := time.Now().Format("2006-01-02")
	_, err := database.Exec(`INSERT INTO token_usage (model, prompt_tokens, completion_tokens, date) VALUES ('m', 1, 1, ?), ('m', 2, 2, ?)`, old, today)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO logs (level, message, created_at) VALUES ('info', 'old', '2000-01-01 00:00:00')`)
	require.NoError(t, err)
	database.WriteLog("info", "fresh")

	n, err := database.PurgeBefore(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var usageRows, logRows int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM token_usage`).Scan(&usageRows))
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM logs`).Scan(&logRows))
	assert.Equal(t, 1, usageRows)
	assert.Equal(t, 1, logRows)
}
