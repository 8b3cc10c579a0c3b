package chat

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"

	"github.com/gsainfoteam/chatbot-be/engine/core"
	"github.com/gsainfoteam/chatbot-be/engine/llm"
	"github.com/gsainfoteam/chatbot-be/engine/mcp"
)

type fakeRetrieval struct {
	mu        sync.Mutex
	listFn    func(ctx context.Context) ([]mcp.ToolInfo, error)
	callFn    func(ctx context.Context, name string, args map[string]any) (*mcp.CallResult, error)
	listCalls int
	toolCalls []string
}

func (f *fakeRetrieval) ListTools(ctx context.Context) ([]mcp.ToolInfo, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeRetrieval) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallResult, error) {
	f.mu.Lock()
	f.toolCalls = append(f.toolCalls, name)
	f.mu.Unlock()
	if f.callFn != nil {
		return f.callFn(ctx, name, args)
	}
	return &mcp.CallResult{}, nil
}

func (f *fakeRetrieval) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeRetrieval) calledTools() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.toolCalls...)
}

type fakeModel struct {
	mu       sync.Mutex
	chatFn   func(req *llm.Request) (*llm.Response, error)
	streamFn func(req *llm.Request) (io.ReadCloser, error)
	chats    []*llm.Request
	streams  []*llm.Request
}

func (f *fakeModel) Chat(_ context.Context, req *llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.chats = append(f.chats, req)
	f.mu.Unlock()
	if f.chatFn != nil {
		return f.chatFn(req)
	}
	return &llm.Response{}, nil
}

func (f *fakeModel) ChatStream(_ context.Context, req *llm.Request) (io.ReadCloser, error) {
	f.mu.Lock()
	f.streams = append(f.streams, req)
	f.mu.Unlock()
	if f.streamFn != nil {
		return f.streamFn(req)
	}
	return io.NopCloser(nil), nil
}

func (f *fakeModel) Close() error { return nil }

func (f *fakeModel) chatRequests() []*llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*llm.Request(nil), f.chats...)
}

func (f *fakeModel) streamRequests() []*llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*llm.Request(nil), f.streams...)
}

type fakeStore struct {
	mu       sync.Mutex
	messages []StoredMessage
	history  []StoredMessage
	createFn func(role, content string) error
}

func (f *fakeStore) CreateMessage(
	_ context.Context,
	sessionID core.ID,
	role, content string,
	metadata map[string]any,
) (*StoredMessage, error) {
	if f.createFn != nil {
		if err := f.createFn(role, content); err != nil {
			return nil, err
		}
	}
	msg := StoredMessage{
		ID:        core.NewID(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
	}
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	f.mu.Unlock()
	return &msg, nil
}

func (f *fakeStore) ListRecent(_ context.Context, _ core.ID, limit int) ([]StoredMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]StoredMessage(nil), f.history...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) saved() []StoredMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]StoredMessage(nil), f.messages...)
}

type fakeUsage struct {
	mu       sync.Mutex
	recorded []llm.Usage
	keys     []core.ID
	err      error
}

func (f *fakeUsage) RecordUsage(_ context.Context, _ core.ID, keyID core.ID, _ string, usage llm.Usage) error {
	f.mu.Lock()
	f.recorded = append(f.recorded, usage)
	f.keys = append(f.keys, keyID)
	f.mu.Unlock()
	return f.err
}

func (f *fakeUsage) recordedUsages() []llm.Usage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Usage(nil), f.recorded...)
}

type captureSink struct {
	mu     sync.Mutex
	frames []any
	done   bool
}

func (s *captureSink) SendFrame(payload any) error {
	s.mu.Lock()
	s.frames = append(s.frames, payload)
	s.mu.Unlock()
	return nil
}

func (s *captureSink) SendDone() error {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	return nil
}

func (s *captureSink) contentText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := ""
	for _, frame := range s.frames {
		if cf, ok := frame.(ContentFrame); ok {
			out += cf.Content
		}
	}
	return out
}

func (s *captureSink) resourcesFrames() []ResourcesFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ResourcesFrame
	for _, frame := range s.frames {
		if rf, ok := frame.(ResourcesFrame); ok {
			out = append(out, rf)
		}
	}
	return out
}

func (s *captureSink) errorFrames() []ErrorFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ErrorFrame
	for _, frame := range s.frames {
		if ef, ok := frame.(ErrorFrame); ok {
			out = append(out, ef)
		}
	}
	return out
}

type staticFilter struct {
	result *FilterResult
	err    error
}

func (s *staticFilter) Filter(context.Context, string, []mcp.ResourceRef) (*FilterResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &FilterResult{}, nil
}

// sseBody builds a model SSE response body from content deltas plus an
// optional usage-bearing final chunk.
func sseBody(deltas []string, usageTokens int) io.ReadCloser {
	body := ""
	for _, delta := range deltas {
		body += `data: {"model":"gpt-4o-mini","choices":[{"delta":{"content":` + jsonString(delta) + `}}]}` + "\n\n"
	}
	if usageTokens > 0 {
		body += `data: {"choices":[],"usage":{"total_tokens":` + itoa(usageTokens) + `}}` + "\n\n"
	}
	body += "data: [DONE]\n\n"
	return io.NopCloser(newChunkReader(body, 7))
}

// chunkReader yields the body in fixed-size chunks so line reassembly is
// exercised across chunk boundaries.
type chunkReader struct {
	data []byte
	size int
}

func newChunkReader(data string, size int) *chunkReader {
	return &chunkReader{data: []byte(data), size: size}
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.size
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func itoa(n int) string { return strconv.Itoa(n) }

// errReader fails after yielding its prefix.
type errReader struct {
	data []byte
	err  error
}

func (r *errReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func (r *errReader) Close() error { return nil }
