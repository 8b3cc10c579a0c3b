package postgres_test

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsainfoteam/chatbot-be/engine/core"
	"github.com/gsainfoteam/chatbot-be/engine/infra/postgres"
	"github.com/gsainfoteam/chatbot-be/engine/llm"
)

func TestUsageRepo_RecordUsage(t *testing.T) {
	t.Run("Should insert a usage row and upsert the key's daily total", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewUsageRepo(mockPool)
		sessionID := core.NewID()
		keyID := core.NewID()

		mockPool.ExpectExec("INSERT INTO llm_usage").
			WithArgs(sessionID, keyID, "gpt-4o-mini", 100, 50, 150).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec("INSERT INTO key_usage").
			WithArgs(keyID, 100, 50, 150).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.RecordUsage(context.Background(), sessionID, keyID, "gpt-4o-mini", llm.Usage{
			PromptTokens:     100,
			CompletionTokens: 50,
			TotalTokens:      150,
		})
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should propagate an insert failure", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewUsageRepo(mockPool)

		mockPool.ExpectExec("INSERT INTO llm_usage").
			WillReturnError(assert.AnError)

		err = repo.RecordUsage(context.Background(), core.NewID(), core.NewID(), "gpt-4o-mini", llm.Usage{TotalTokens: 10})
		require.Error(t, err)
	})
	t.Run("Should propagate a key upsert failure", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewUsageRepo(mockPool)

		mockPool.ExpectExec("INSERT INTO llm_usage").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec("INSERT INTO key_usage").
			WillReturnError(assert.AnError)

		err = repo.RecordUsage(context.Background(), core.NewID(), core.NewID(), "gpt-4o-mini", llm.Usage{TotalTokens: 10})
		require.Error(t, err)
	})
}
