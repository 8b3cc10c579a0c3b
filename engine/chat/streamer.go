package chat

import (
	"context"
	"io"
	"strings"

	"github.com/gsainfoteam/chatbot-be/engine/llm"
	"github.com/gsainfoteam/chatbot-be/pkg/logger"
)

// Streamer drives the final model call and the client-facing event stream.
// It reassembles the model's SSE chunks, forwards content deltas as they
// arrive, and persists the finished assistant message with its usage.
type Streamer struct {
	model     llm.Client
	store     MessageStore
	usage     UsageRecorder
	maxTokens int
}

func NewStreamer(model llm.Client, store MessageStore, usage UsageRecorder, maxTokens int) *Streamer {
	return &Streamer{model: model, store: store, usage: usage, maxTokens: maxTokens}
}

// StreamAnswer streams the grounded answer. Tool results are appended to
// the conversation as tool messages correlated by call id.
func (s *Streamer) StreamAnswer(
	ctx context.Context,
	req Request,
	history []llm.Message,
	selection *Selection,
	results []ToolExecutionResult,
	sink Sink,
) error {
	messages := make([]llm.Message, 0, len(history)+len(results)+4)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: answerSystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Question})
	messages = append(messages, assistantToolCallMessage(selection))
	for _, result := range results {
		messages = append(messages, llm.Message{
			Role:       llm.RoleTool,
			Content:    toolResultsHeader + "\n\n" + result.Content,
			ToolCallID: result.ToolCallID,
			Name:       result.Name,
		})
	}
	return s.stream(ctx, req, messages, AccumulatedResources(results), sink)
}

// StreamRefusal streams the canned no-relevant-materials response. The
// resources frame is always empty on this path.
func (s *Streamer) StreamRefusal(
	ctx context.Context,
	req Request,
	history []llm.Message,
	sink Sink,
) error {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: noRelevantMaterialsPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Question})
	return s.stream(ctx, req, messages, nil, sink)
}

func (s *Streamer) stream(
	ctx context.Context,
	req Request,
	messages []llm.Message,
	resources []ResourceInfo,
	sink Sink,
) error {
	log := logger.FromContext(ctx)
	body, err := s.model.ChatStream(ctx, &llm.Request{
		Messages: messages,
		Options:  llm.CallOptions{MaxTokens: s.maxTokens},
	})
	if err != nil {
		log.Error("Answer stream could not be opened", "error", err)
		_ = sink.SendFrame(ErrorFrame{Type: "error", Message: "응답 생성에 실패했습니다."})
		return err
	}
	defer body.Close()

	var content strings.Builder
	var model string
	var usage *llm.Usage
	reducer := &llm.StreamReducer{}
	buf := make([]byte, 4096)

	consume := func(frames []string) error {
		for _, frame := range frames {
			chunk, ok := llm.ParseStreamChunk(frame)
			if !ok {
				continue
			}
			if chunk.Model != "" {
				model = chunk.Model
			}
			if chunk.Usage != nil {
				usage = chunk.Usage
			}
			if delta := chunk.DeltaContent(); delta != "" {
				content.WriteString(delta)
				if err := sink.SendFrame(ContentFrame{Content: delta}); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if err := consume(reducer.Feed(buf[:n])); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// Content accumulated before a late failure is still flushed
			// to storage.
			log.Error("Answer stream broke mid-read", "error", readErr)
			s.persist(ctx, req, content.String(), model, usage, resources)
			_ = sink.SendFrame(ErrorFrame{Type: "error", Message: "응답 전송 중 오류가 발생했습니다."})
			return readErr
		}
	}
	if err := consume(reducer.Flush()); err != nil {
		return err
	}

	s.persist(ctx, req, content.String(), model, usage, resources)
	if len(resources) > 0 {
		if err := sink.SendFrame(ResourcesFrame{Type: "resources", Resources: resources}); err != nil {
			return err
		}
	}
	return sink.SendDone()
}

func (s *Streamer) persist(
	ctx context.Context,
	req Request,
	content, model string,
	usage *llm.Usage,
	resources []ResourceInfo,
) {
	log := logger.FromContext(ctx)
	if content == "" {
		return
	}
	metadata := map[string]any{}
	if model != "" {
		metadata["model"] = model
	}
	if usage != nil {
		metadata["usage"] = *usage
	}
	if len(resources) > 0 {
		metadata["resources"] = resources
	}
	if _, err := s.store.CreateMessage(ctx, req.SessionID, llm.RoleAssistant, content, metadata); err != nil {
		log.Error("Assistant message could not be persisted", "session_id", req.SessionID, "error", err)
	}
	if usage != nil && usage.TotalTokens > 0 && s.usage != nil {
		if err := s.usage.RecordUsage(ctx, req.SessionID, req.KeyID, model, *usage); err != nil {
			log.Warn("Usage recording failed", "session_id", req.SessionID, "error", err)
		}
	}
}

func assistantToolCallMessage(selection *Selection) llm.Message {
	msg := llm.Message{Role: llm.RoleAssistant}
	if selection == nil {
		return msg
	}
	if selection.Raw != nil {
		msg.Content = selection.Raw.Content
	}
	msg.ToolCalls = selection.ToolCalls
	return msg
}
