package chat

import (
	"github.com/gsainfoteam/chatbot-be/engine/core"
	"github.com/gsainfoteam/chatbot-be/engine/llm"
)

// ToolExecutionResult is the outcome of one tool call. The grounding gate
// and the streamer consume it; HadReferenceContent is true only when the
// document filter attached real fetched document text to the raw result.
type ToolExecutionResult struct {
	ToolCallID          string
	Name                string
	Content             string
	Resources           []ResourceInfo
	HadReferenceContent bool
}

// ResourceInfo is the citation unit attached to a finished answer. Only
// documents backed by pdf or png formats are surfaced to the end user.
type ResourceInfo struct {
	Path    string   `json:"path"`
	Formats []string `json:"formats"`
	URL     string   `json:"url"`
}

// DocumentCandidate is the per-question working structure of the relevance
// filter. It is never persisted.
type DocumentCandidate struct {
	Title        string
	Content      string
	Path         string
	Formats      []string
	SubDocuments []SubDocumentRef
}

// SubDocumentRef is a cross-reference parsed out of a fetched document.
type SubDocumentRef struct {
	Path        string
	Description string
}

// Selection is the tool selector's outcome for one question.
type Selection struct {
	ToolCalls []llm.ToolCall
	Raw       *llm.Response
}

// FilterResult is the document relevance filter's outcome.
type FilterResult struct {
	Content       string
	UsedResources []ResourceInfo
}

// Request is one chat turn entering the pipeline. KeyID identifies the
// chatbot key the session was issued for; usage is accounted against it.
type Request struct {
	SessionID core.ID
	KeyID     core.ID
	Question  string
}

// Client-facing stream frames. Content frames repeat; a resources frame is
// emitted at most once, before the done sentinel.
type ContentFrame struct {
	Content string `json:"content"`
}

type ResourcesFrame struct {
	Type      string         `json:"type"`
	Resources []ResourceInfo `json:"resources"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
