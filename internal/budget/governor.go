// Package budget tracks upstream completion usage against a daily token limit.
package budget

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Manjussha/insightlab/internal/db"
	"github.com/Manjussha/insightlab/internal/tokenizer"
)

// ErrExhausted is returned by Allow once today's usage reaches the limit.
var ErrExhausted = errors.New("daily token budget exhausted")

// NotifySender can send a notification event.
type NotifySender interface {
	Send(event string, payload interface{})
}

// Usage is the token count of one upstream completion.
type Usage struct {
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// Status is a snapshot of today's consumption.
type Status struct {
	Date       string               `json:"date"`
	Used       int                  `json:"used"`
	DailyLimit int                  `json:"daily_limit"`
	Zone       tokenizer.BudgetZone `json:"zone"`
}

// Governor checks budget zones and triggers alerts on zone changes.
type Governor struct {
	database *db.DB
	notify   NotifySender
	now      func() time.Time

	mu       sync.Mutex
	lastZone tokenizer.BudgetZone
	known    bool
}

// NewGovernor creates a new Governor. notify may be nil.
func NewGovernor(database *db.DB, notify NotifySender) *Governor {
	return &Governor{database: database, notify: notify, now: time.Now}
}

// Status calculates today's usage and zone.
func (g *Governor) Status(ctx context.Context) (Status, error) {
	today := g.now().Format("2006-01-02")

	var used int
	err := g.database.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(prompt_tokens + completion_tokens), 0)
		FROM token_usage WHERE date=?`, today,
	).Scan(&used)
	if err != nil {
		return Status{}, fmt.Errorf("governor.Status: usage query: %w", err)
	}

	b, err := g.database.GetBudget(ctx)
	if err != nil {
		// No budget configured: unlimited.
		b = db.TokenBudget{YellowPct: 60, OrangePct: 80, RedPct: 90}
	}

	th := tokenizer.Thresholds{YellowPct: b.YellowPct, OrangePct: b.OrangePct, RedPct: b.RedPct}
	return Status{
		Date:       today,
		Used:       used,
		DailyLimit: b.DailyLimit,
		Zone:       tokenizer.ZoneFor(used, b.DailyLimit, th),
	}, nil
}

// Allow returns ErrExhausted when today's usage has reached the limit.
// A zero limit never blocks.
func (g *Governor) Allow(ctx context.Context) error {
	st, err := g.Status(ctx)
	if err != nil {
		return err
	}
	if st.DailyLimit > 0 && st.Used >= st.DailyLimit {
		return ErrExhausted
	}
	return nil
}

// CheckBudget detects zone escalations and notifies once per escalation.
func (g *Governor) CheckBudget(ctx context.Context) {
	st, err := g.Status(ctx)
	if err != nil {
		log.Printf("governor.CheckBudget: %v", err)
		return
	}

	g.mu.Lock()
	prev, known := g.lastZone, g.known
	g.lastZone, g.known = st.Zone, true
	g.mu.Unlock()

	if known && st.Zone <= prev {
		return // No escalation, no re-alert.
	}
	if st.Zone == tokenizer.ZoneGreen {
		return
	}

	msg := fmt.Sprintf("Upstream token budget at %s: %d of %d tokens used today.",
		st.Zone, st.Used, st.DailyLimit)
	log.Printf("governor: %s", msg)
	g.database.WriteLog("warn", msg)
	if g.notify != nil {
		g.notify.Send("budget.zone", st)
	}
}

// RecordUsage saves token usage for one upstream completion.
func (g *Governor) RecordUsage(ctx context.Context, u Usage) error {
	_, err := g.database.ExecContext(ctx, `
		INSERT INTO token_usage (model, prompt_tokens, completion_tokens, date)
		VALUES (?,?,?,?)`,
		u.Model, u.PromptTokens, u.CompletionTokens, g.now().Format("2006-01-02"),
	)
	if err != nil {
		return fmt.Errorf("governor.RecordUsage: %w", err)
	}
	return nil
}
