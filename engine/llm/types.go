package llm

import "encoding/json"

// Role constants for conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a conversation message sent to the model.
type Message struct {
	Role    string
	Content string
	// ToolCalls carries function calls emitted by the assistant.
	// Constraint: only messages with Role == "assistant" may contain ToolCalls.
	ToolCalls []ToolCall
	// ToolCallID correlates a tool message with the call it answers.
	// Constraint: only messages with Role == "tool" may set it.
	ToolCallID string
	// Name is the tool name for tool-role messages.
	Name string
}

// ToolDefinition represents a tool advertised to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema
}

// ToolCall represents a tool invocation request parsed from a model response.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// CallOptions tunes a single model call.
type CallOptions struct {
	Temperature float64
	MaxTokens   int
	ToolChoice  string // "auto", "none", or a specific tool name
}

// Usage reports token consumption for one model call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-independent chat request.
type Request struct {
	Messages []Message
	Tools    []ToolDefinition
	Options  CallOptions
}

// Response is the parsed result of a non-streaming chat call.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	Model        string
	FinishReason string
	Usage        *Usage
}
