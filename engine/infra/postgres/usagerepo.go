package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/gsainfoteam/chatbot-be/engine/core"
	"github.com/gsainfoteam/chatbot-be/engine/llm"
)

// UsageRepo records per-session token usage and accumulates daily totals
// per chatbot key. It implements chat.UsageRecorder.
type UsageRepo struct {
	db DB
}

func NewUsageRepo(db DB) *UsageRepo {
	return &UsageRepo{db: db}
}

func (r *UsageRepo) RecordUsage(ctx context.Context, sessionID, keyID core.ID, model string, usage llm.Usage) error {
	query, args, err := squirrel.
		Insert("llm_usage").
		Columns("session_id", "key_id", "model", "prompt_tokens", "completion_tokens", "total_tokens").
		Values(sessionID, keyID, model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build usage insert: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	return r.upsertKeyUsage(ctx, keyID, usage)
}

// upsertKeyUsage folds the turn's tokens into the key's row for today.
func (r *UsageRepo) upsertKeyUsage(ctx context.Context, keyID core.ID, usage llm.Usage) error {
	query, args, err := squirrel.
		Insert("key_usage").
		Columns("key_id", "usage_date", "prompt_tokens", "completion_tokens", "total_tokens").
		Values(keyID, squirrel.Expr("CURRENT_DATE"), usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens).
		Suffix(`ON CONFLICT (key_id, usage_date) DO UPDATE SET
			prompt_tokens = key_usage.prompt_tokens + EXCLUDED.prompt_tokens,
			completion_tokens = key_usage.completion_tokens + EXCLUDED.completion_tokens,
			total_tokens = key_usage.total_tokens + EXCLUDED.total_tokens,
			updated_at = now()`).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build key usage upsert: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert key usage: %w", err)
	}
	return nil
}
