package chat

import (
	"context"

	"github.com/gsainfoteam/chatbot-be/engine/core"
	"github.com/gsainfoteam/chatbot-be/engine/llm"
	"github.com/gsainfoteam/chatbot-be/engine/mcp"
)

// Retrieval is the document retrieval backend consumed by the pipeline.
type Retrieval interface {
	ListTools(ctx context.Context) ([]mcp.ToolInfo, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallResult, error)
}

// StoredMessage is one persisted conversation message.
type StoredMessage struct {
	ID        core.ID
	SessionID core.ID
	Role      string
	Content   string
	Metadata  map[string]any
}

// MessageStore persists conversation messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, sessionID core.ID, role, content string, metadata map[string]any) (*StoredMessage, error)
	// ListRecent returns up to limit messages, most recent first.
	ListRecent(ctx context.Context, sessionID core.ID, limit int) ([]StoredMessage, error)
}

// UsageRecorder records token usage per session and accumulates it per
// chatbot key.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, sessionID, keyID core.ID, model string, usage llm.Usage) error
}

// Sink receives client-facing stream frames. Implementations own the
// transport; the streamer only sequences frames through it.
type Sink interface {
	SendFrame(payload any) error
	SendDone() error
}
