package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gsainfoteam/chatbot-be/engine/core"
)

// Client is the interface for model interactions. Chat performs a blocking
// call; ChatStream returns the raw SSE byte stream so the caller owns frame
// reassembly and can forward deltas incrementally.
type Client interface {
	Chat(ctx context.Context, req *Request) (*Response, error)
	ChatStream(ctx context.Context, req *Request) (io.ReadCloser, error)
	Close() error
}

// Config configures the OpenAI-compatible HTTP client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type httpClient struct {
	config Config
	http   *http.Client
}

// NewClient creates a client for an OpenAI-compatible chat completions
// endpoint. The HTTP client carries no timeout of its own for streaming
// calls; cancellation is driven by the request context.
func NewClient(cfg Config) Client {
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		cfg.BaseURL = "https://" + cfg.BaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &httpClient{
		config: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// Wire types for the OpenAI-compatible chat completions protocol.
type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string          `json:"type"`
	Function wireFunctionDef `json:"function"`
}

type wireFunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type wireRequest struct {
	Model         string        `json:"model"`
	Messages      []wireMessage `json:"messages"`
	Tools         []wireTool    `json:"tools,omitempty"`
	ToolChoice    string        `json:"tool_choice,omitempty"`
	Temperature   *float64      `json:"temperature,omitempty"`
	MaxTokens     int           `json:"max_tokens,omitempty"`
	Stream        bool          `json:"stream"`
	StreamOptions *struct {
		IncludeUsage bool `json:"include_usage"`
	} `json:"stream_options,omitempty"`
}

type wireResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

func (c *httpClient) Chat(ctx context.Context, req *Request) (*Response, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}
	resp, err := c.send(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, core.NewError(err, "MODEL_DECODE_ERROR", nil)
	}
	if len(wire.Choices) == 0 {
		return nil, core.NewError(fmt.Errorf("response contains no choices"), "MODEL_EMPTY_RESPONSE", nil)
	}
	choice := wire.Choices[0]
	out := &Response{
		Content:      choice.Message.Content,
		Model:        wire.Model,
		FinishReason: choice.FinishReason,
		Usage:        wire.Usage,
	}
	for _, call := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: json.RawMessage(call.Function.Arguments),
		})
	}
	return out, nil
}

func (c *httpClient) ChatStream(ctx context.Context, req *Request) (io.ReadCloser, error) {
	resp, err := c.send(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *httpClient) send(ctx context.Context, req *Request, stream bool) (*http.Response, error) {
	wire := wireRequest{
		Model:     c.config.Model,
		MaxTokens: req.Options.MaxTokens,
		Stream:    stream,
	}
	if req.Options.Temperature > 0 {
		temp := req.Options.Temperature
		wire.Temperature = &temp
	}
	if stream {
		wire.StreamOptions = &struct {
			IncludeUsage bool `json:"include_usage"`
		}{IncludeUsage: true}
	}
	for _, msg := range req.Messages {
		wire.Messages = append(wire.Messages, toWireMessage(msg))
	}
	for _, tool := range req.Tools {
		wire.Tools = append(wire.Tools, wireTool{
			Type: "function",
			Function: wireFunctionDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if len(wire.Tools) > 0 {
		wire.ToolChoice = req.Options.ToolChoice
		if wire.ToolChoice == "" {
			wire.ToolChoice = "auto"
		}
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, core.NewError(err, "MODEL_ENCODE_ERROR", nil)
	}
	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.config.BaseURL+"/chat/completions",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, core.NewError(err, "MODEL_REQUEST_ERROR", nil)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, core.NewError(err, "MODEL_UNREACHABLE", map[string]any{
			"base_url": c.config.BaseURL,
		})
	}
	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if readErr != nil {
			body = nil
		}
		return nil, core.NewError(
			fmt.Errorf("model backend returned status %d: %s", resp.StatusCode, string(body)),
			"MODEL_STATUS_ERROR",
			map[string]any{"status": resp.StatusCode},
		)
	}
	return resp, nil
}

func toWireMessage(msg Message) wireMessage {
	out := wireMessage{
		Role:       msg.Role,
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
		Name:       msg.Name,
	}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, wireToolCall{
			ID:   call.ID,
			Type: "function",
			Function: wireFunction{
				Name:      call.Name,
				Arguments: string(call.Arguments),
			},
		})
	}
	return out
}

func (c *httpClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
