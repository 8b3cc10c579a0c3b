package mcp

import (
	"context"
	"fmt"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"github.com/gsainfoteam/chatbot-be/engine/core"
	"github.com/gsainfoteam/chatbot-be/pkg/logger"
)

// ToolInfo describes one tool exposed by the retrieval backend.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// CallResult carries the text content items of one tool invocation.
type CallResult struct {
	Texts []string
}

// Client wraps an MCP session against the document retrieval backend over
// streamable HTTP.
type Client struct {
	mcp *mcpclient.Client
}

// Connect establishes and initializes the MCP session. The returned client
// is safe for concurrent use.
func Connect(ctx context.Context, serverURL string) (*Client, error) {
	mcpClient, err := mcpclient.NewStreamableHttpClient(serverURL)
	if err != nil {
		return nil, core.NewError(err, "RETRIEVAL_CONNECT_ERROR", map[string]any{
			"server_url": serverURL,
		})
	}
	if err := mcpClient.GetTransport().Start(ctx); err != nil {
		return nil, core.NewError(err, "RETRIEVAL_CONNECT_ERROR", map[string]any{
			"server_url": serverURL,
		})
	}
	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: mcptypes.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    "chatbot-be",
				Version: "1.0.0",
			},
		},
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		return nil, core.NewError(err, "RETRIEVAL_INIT_ERROR", map[string]any{
			"server_url": serverURL,
		})
	}
	logger.FromContext(ctx).Info("Connected to retrieval backend", "server_url", serverURL)
	return &Client{mcp: mcpClient}, nil
}

// ListTools fetches the tool catalog from the retrieval backend.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	start := time.Now()
	result, err := c.mcp.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return nil, core.NewError(err, "RETRIEVAL_LIST_TOOLS_ERROR", nil)
	}
	tools := make([]ToolInfo, 0, len(result.Tools))
	for _, tool := range result.Tools {
		tools = append(tools, ToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schemaToMap(tool.InputSchema),
		})
	}
	logger.FromContext(ctx).Debug("Listed retrieval tools",
		"count", len(tools),
		"duration", time.Since(start),
	)
	return tools, nil
}

// CallTool invokes a tool and returns its text content items. A result
// flagged IsError by the backend is surfaced as an error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	result, err := c.mcp.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, core.NewError(err, "RETRIEVAL_CALL_ERROR", map[string]any{"tool": name})
	}
	texts := extractTexts(result)
	if result.IsError {
		detail := "tool reported an error"
		if len(texts) > 0 {
			detail = texts[0]
		}
		return nil, core.NewError(fmt.Errorf("%s", detail), "RETRIEVAL_TOOL_ERROR", map[string]any{"tool": name})
	}
	return &CallResult{Texts: texts}, nil
}

// Close terminates the MCP session.
func (c *Client) Close() error {
	return c.mcp.Close()
}

func extractTexts(result *mcptypes.CallToolResult) []string {
	if result == nil {
		return nil
	}
	texts := make([]string, 0, len(result.Content))
	for _, item := range result.Content {
		switch typed := item.(type) {
		case mcptypes.TextContent:
			texts = append(texts, typed.Text)
		}
	}
	return texts
}

func schemaToMap(schema mcptypes.ToolInputSchema) map[string]any {
	if schema.Type == "" && len(schema.Properties) == 0 {
		return nil
	}
	out := map[string]any{"type": schema.Type}
	if len(schema.Properties) > 0 {
		out["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	return out
}
