package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gsainfoteam/chatbot-be/engine/llm"
	"github.com/gsainfoteam/chatbot-be/engine/mcp"
	"github.com/gsainfoteam/chatbot-be/pkg/logger"
)

// DocumentFilter narrows a document listing to question-relevant content.
type DocumentFilter interface {
	Filter(ctx context.Context, question string, refs []mcp.ResourceRef) (*FilterResult, error)
}

// Executor runs selected tool calls concurrently. Each call is bounded by
// its own timeout; a failing or timed-out call degrades to a synthetic
// failure result and never aborts its siblings.
type Executor struct {
	retrieval Retrieval
	filter    DocumentFilter
	timeout   time.Duration
}

func NewExecutor(retrieval Retrieval, filter DocumentFilter, timeout time.Duration) *Executor {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Executor{retrieval: retrieval, filter: filter, timeout: timeout}
}

// ExecuteAll fans out all calls and joins their results in call order.
func (e *Executor) ExecuteAll(ctx context.Context, calls []llm.ToolCall, question string) []ToolExecutionResult {
	results := make([]ToolExecutionResult, len(calls))
	group, ctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		group.Go(func() error {
			results[i] = e.executeOne(ctx, call, question)
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func (e *Executor) executeOne(ctx context.Context, call llm.ToolCall, question string) ToolExecutionResult {
	log := logger.FromContext(ctx)
	result := ToolExecutionResult{ToolCallID: call.ID, Name: call.Name}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		log.Warn("Tool call has malformed arguments", "tool", call.Name, "error", err)
		result.Content = syntheticFailure(err.Error())
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		result *mcp.CallResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := e.retrieval.CallTool(callCtx, call.Name, args)
		done <- outcome{result: r, err: err}
	}()

	var raw *mcp.CallResult
	select {
	case out := <-done:
		if out.err != nil {
			log.Warn("Tool execution failed", "tool", call.Name, "error", out.err)
			result.Content = syntheticFailure(out.err.Error())
			return result
		}
		raw = out.result
	case <-callCtx.Done():
		log.Warn("Tool execution timed out", "tool", call.Name, "timeout", e.timeout)
		result.Content = syntheticFailure(fmt.Sprintf("Tool execution timeout: %s", call.Name))
		return result
	}

	shape := mcp.ParseToolResultShape(raw.Texts)
	result.Content = shape.Text
	if shape.Kind != mcp.ShapeDocumentListing {
		return result
	}

	filtered, err := e.filter.Filter(ctx, question, shape.Resources)
	if err != nil {
		log.Warn("Document filtering failed", "tool", call.Name, "error", err)
		return result
	}
	if filtered.Content == "" {
		return result
	}
	result.Content = joinNonEmpty(result.Content, filtered.Content)
	result.Resources = filtered.UsedResources
	result.HadReferenceContent = true
	return result
}

func syntheticFailure(message string) string {
	return "Tool execution failed: " + message
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("decode tool arguments: %w", err)
	}
	return args, nil
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += part
	}
	return out
}
