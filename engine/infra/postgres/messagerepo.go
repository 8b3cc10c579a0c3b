package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/gsainfoteam/chatbot-be/engine/chat"
	"github.com/gsainfoteam/chatbot-be/engine/core"
)

var messageColumns = []string{"id", "session_id", "role", "content", "metadata"}

// MessageRepo persists conversation messages. It implements
// chat.MessageStore.
type MessageRepo struct {
	db DB
}

func NewMessageRepo(db DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) CreateMessage(
	ctx context.Context,
	sessionID core.ID,
	role, content string,
	metadata map[string]any,
) (*chat.StoredMessage, error) {
	var metadataJSON []byte
	if len(metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal message metadata: %w", err)
		}
	}
	query, args, err := squirrel.
		Insert("messages").
		Columns("session_id", "role", "content", "metadata").
		Values(sessionID, role, content, metadataJSON).
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build message insert: %w", err)
	}
	msg := chat.StoredMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&msg.ID); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &msg, nil
}

// ListRecent returns up to limit messages for a session, most recent first.
func (r *MessageRepo) ListRecent(ctx context.Context, sessionID core.ID, limit int) ([]chat.StoredMessage, error) {
	query, args, err := squirrel.
		Select(messageColumns...).
		From("messages").
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build message select: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []chat.StoredMessage
	for rows.Next() {
		var msg chat.StoredMessage
		var metadataJSON []byte
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &msg.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal message metadata: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
