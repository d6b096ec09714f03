// Package db provides the SQLite database wrapper and model types for Insight Lab.
// Only operational data lives here (usage accounting, budget, logs, webhooks);
// prompts and simulations are never stored.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps *sql.DB and provides migration support.
type DB struct {
	*sql.DB
}

// New opens a SQLite connection with WAL mode and foreign keys enabled.
// Driver name is "sqlite" (modernc.org/sqlite, not mattn/go-sqlite3).
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_journal=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("db.New: open: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("db.New: ping: %w", err)
	}
	// Limit to 1 writer at a time to avoid SQLITE_BUSY in WAL mode.
	sqlDB.SetMaxOpenConns(1)
	return &DB{sqlDB}, nil
}

// Migrate runs all CREATE TABLE IF NOT EXISTS migrations exactly once per schema version.
// dailyLimit seeds the budget row the first time it is created.
func (d *DB) Migrate(dailyLimit int) error {
	if _, err := d.Exec(ddlSettings); err != nil {
		return fmt.Errorf("db.Migrate: settings table: %w", err)
	}

	var version int
	row := d.QueryRow(`SELECT value FROM settings WHERE key='schema_version' LIMIT 1`)
	_ = row.Scan(&version) // Row may not exist yet (version=0).

	if version < schemaVersion {
		for _, ddl := range []string{ddlLogs, ddlWebhooks, ddlTokenUsage, ddlTokenBudget} {
			if _, err := d.Exec(ddl); err != nil {
				return fmt.Errorf("db.Migrate: %w", err)
			}
		}
		_, err := d.Exec(`INSERT INTO settings (key, value) VALUES ('schema_version', ?)
			ON CONFLICT(key) DO UPDATE SET value=excluded.value`, schemaVersion)
		if err != nil {
			return fmt.Errorf("db.Migrate: schema_version upsert: %w", err)
		}
	}

	// INSERT OR IGNORE keeps an edited budget.
	if _, err := d.Exec(`INSERT OR IGNORE INTO token_budget (id, daily_limit) VALUES (1, ?)`, dailyLimit); err != nil {
		return fmt.Errorf("db.Migrate: seed budget: %w", err)
	}
	return nil
}

const schemaVersion = 1

// ── Model Types ──────────────────────────────────────────────────────────────

// Log is a structured log line.
type Log struct {
	ID        int       `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Webhook defines an outbound webhook subscription.
type Webhook struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	URL        string       `json:"url"`
	Events     string       `json:"events"`
	Enabled    bool         `json:"enabled"`
	LastStatus int          `json:"last_status"`
	LastFired  sql.NullTime `json:"last_fired,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// TokenUsage records token consumption of one upstream completion.
type TokenUsage struct {
	ID               int       `json:"id"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Date             string    `json:"date"`
	CreatedAt        time.Time `json:"created_at"`
}

// TokenBudget is the daily upstream token limit with its alert thresholds.
type TokenBudget struct {
	DailyLimit int `json:"daily_limit"`
	YellowPct  int `json:"yellow_pct"`
	OrangePct  int `json:"orange_pct"`
	RedPct     int `json:"red_pct"`
}

// ── DDL Statements ───────────────────────────────────────────────────────────

const ddlSettings = `CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);`

const ddlLogs = `CREATE TABLE IF NOT EXISTS logs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	level      TEXT    NOT NULL DEFAULT 'info',
	message    TEXT    NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

const ddlWebhooks = `CREATE TABLE IF NOT EXISTS webhooks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT    NOT NULL,
	url         TEXT    NOT NULL,
	events      TEXT    NOT NULL DEFAULT '',
	enabled     INTEGER NOT NULL DEFAULT 1,
	last_status INTEGER NOT NULL DEFAULT 0,
	last_fired  DATETIME,
	created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);`

const ddlTokenUsage = `CREATE TABLE IF NOT EXISTS token_usage (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	model             TEXT    NOT NULL DEFAULT '',
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	date              TEXT    NOT NULL,
	created_at        DATETIME DEFAULT CURRENT_TIMESTAMP
);`

const ddlTokenBudget = `CREATE TABLE IF NOT EXISTS token_budget (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	daily_limit INTEGER NOT NULL DEFAULT 200000,
	yellow_pct  INTEGER NOT NULL DEFAULT 60,
	orange_pct  INTEGER NOT NULL DEFAULT 80,
	red_pct     INTEGER NOT NULL DEFAULT 90
);`

// ── Helpers ───────────────────────────────────────────────────────────────────

// WriteLog inserts a log line into the logs table.
func (d *DB) WriteLog(level, message string) {
	_, _ = d.Exec(`INSERT INTO logs (level, message) VALUES (?,?)`, level, message)
}

// GetSetting retrieves a settings value by key, returning fallback if not found.
func (d *DB) GetSetting(key, fallback string) string {
	var v string
	if err := d.QueryRow(`SELECT value FROM settings WHERE key=?`, key).Scan(&v); err != nil {
		return fallback
	}
	return v
}

// SetSetting upserts a settings key-value pair.
func (d *DB) SetSetting(key, value string) error {
	_, err := d.Exec(
		`INSERT INTO settings (key, value) VALUES (?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("db.SetSetting: %w", err)
	}
	return nil
}

// GetBudget reads the budget row.
func (d *DB) GetBudget(ctx context.Context) (TokenBudget, error) {
	var b TokenBudget
	err := d.QueryRowContext(ctx,
		`SELECT daily_limit, yellow_pct, orange_pct, red_pct FROM token_budget WHERE id=1`,
	).Scan(&b.DailyLimit, &b.YellowPct, &b.OrangePct, &b.RedPct)
	if err != nil {
		return b, fmt.Errorf("db.GetBudget: %w", err)
	}
	return b, nil
}

// SetBudget overwrites the budget row.
func (d *DB) SetBudget(ctx context.Context, b TokenBudget) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO token_budget (id, daily_limit, yellow_pct, orange_pct, red_pct)
		VALUES (1,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET daily_limit=excluded.daily_limit,
			yellow_pct=excluded.yellow_pct, orange_pct=excluded.orange_pct,
			red_pct=excluded.red_pct`,
		b.DailyLimit, b.YellowPct, b.OrangePct, b.RedPct,
	)
	if err != nil {
		return fmt.Errorf("db.SetBudget: %w", err)
	}
	return nil
}

// PurgeBefore deletes usage rows and log lines older than cutoff.
func (d *DB) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	res, err := d.ExecContext(ctx, `DELETE FROM token_usage WHERE date < ?`, cutoff.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("db.PurgeBefore: usage: %w", err)
	}
	n, _ := res.RowsAffected()
	total += n

	res, err = d.ExecContext(ctx, `DELETE FROM logs WHERE created_at < ?`,
		cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return total, fmt.Errorf("db.PurgeBefore: logs: %w", err)
	}
	n, _ = res.RowsAffected()
	return total + n, nil
}
