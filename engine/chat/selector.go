package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sethvargo/go-retry"

	"github.com/gsainfoteam/chatbot-be/engine/llm"
	"github.com/gsainfoteam/chatbot-be/engine/mcp"
	"github.com/gsainfoteam/chatbot-be/pkg/logger"
)

// selectionPolicy fixes the model parameters of one selection attempt.
type selectionPolicy struct {
	Temperature float64
	Emphasize   bool
}

// Attempt 1 is permissive; attempt 2 insists on tool use at a lower
// temperature. Two attempts total.
var selectionPolicies = []selectionPolicy{
	{Temperature: 0.3},
	{Temperature: 0.1, Emphasize: true},
}

const minDescriptionLen = 20

var errNoToolSelected = errors.New("no tool selected")

// Selector asks the model to choose tools for a question. Zero selected
// tools after all attempts is a valid terminal state, not an error.
type Selector struct {
	model   llm.Client
	backoff time.Duration
}

func NewSelector(model llm.Client, backoff time.Duration) *Selector {
	if backoff == 0 {
		backoff = 500 * time.Millisecond
	}
	return &Selector{model: model, backoff: backoff}
}

// Select runs the attempt loop. A model call failure counts as zero calls
// for that attempt so the next attempt still runs.
func (s *Selector) Select(
	ctx context.Context,
	question string,
	tools []mcp.ToolInfo,
	history []llm.Message,
) (*Selection, error) {
	log := logger.FromContext(ctx)
	defs := toolDefinitions(tools)
	var out Selection
	attempt := 0
	err := retry.Do(
		ctx,
		retry.WithMaxRetries(uint64(len(selectionPolicies)-1), retry.NewConstant(s.backoff)),
		func(ctx context.Context) error {
			policy := selectionPolicies[attempt]
			attempt++
			resp, err := s.model.Chat(ctx, buildSelectionRequest(question, defs, history, policy))
			if err != nil {
				log.Warn("Tool selection attempt failed", "attempt", attempt, "error", err)
				return retry.RetryableError(errNoToolSelected)
			}
			if len(resp.ToolCalls) == 0 {
				log.Debug("Model selected no tools", "attempt", attempt)
				return retry.RetryableError(errNoToolSelected)
			}
			out.Raw = resp
			out.ToolCalls = resp.ToolCalls
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, errNoToolSelected) {
			return &Selection{}, nil
		}
		return nil, err
	}
	return &out, nil
}

func buildSelectionRequest(
	question string,
	defs []llm.ToolDefinition,
	history []llm.Message,
	policy selectionPolicy,
) *llm.Request {
	system := selectionSystemPrompt
	if policy.Emphasize {
		system = selectionEmphasisPrompt
	}
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})
	return &llm.Request{
		Messages: messages,
		Tools:    defs,
		Options:  llm.CallOptions{Temperature: policy.Temperature},
	}
}

// toolDefinitions converts the catalog into function definitions, enriching
// descriptions that are too short to guide the model.
func toolDefinitions(tools []mcp.ToolInfo) []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(tools))
	for _, tool := range tools {
		description := tool.Description
		if utf8.RuneCountInString(description) < minDescriptionLen {
			description = describeTool(tool)
		}
		defs = append(defs, llm.ToolDefinition{
			Name:        tool.Name,
			Description: description,
			Parameters:  tool.InputSchema,
		})
	}
	return defs
}

func describeTool(tool mcp.ToolInfo) string {
	name := strings.ReplaceAll(tool.Name, "_", " ")
	params := parameterNames(tool.InputSchema)
	if len(params) == 0 {
		return fmt.Sprintf("'%s' 작업을 수행하는 도구입니다.", name)
	}
	return fmt.Sprintf("'%s' 작업을 수행하는 도구입니다. 매개변수: %s", name, strings.Join(params, ", "))
}

func parameterNames(schema map[string]any) []string {
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
