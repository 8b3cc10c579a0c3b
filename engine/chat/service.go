package chat

import (
	"context"
	"time"

	"github.com/gsainfoteam/chatbot-be/engine/llm"
	"github.com/gsainfoteam/chatbot-be/pkg/logger"
)

// Service is the chat turn orchestrator. One HandleChat call walks the full
// pipeline: persist the question, load history, select tools, execute them,
// gate on grounding, and stream either the answer or the refusal.
type Service struct {
	registry     *ToolRegistry
	selector     *Selector
	executor     *Executor
	streamer     *Streamer
	store        MessageStore
	historyLimit int
}

func NewService(
	registry *ToolRegistry,
	selector *Selector,
	executor *Executor,
	streamer *Streamer,
	store MessageStore,
	historyLimit int,
) *Service {
	if historyLimit == 0 {
		historyLimit = 10
	}
	return &Service{
		registry:     registry,
		selector:     selector,
		executor:     executor,
		streamer:     streamer,
		store:        store,
		historyLimit: historyLimit,
	}
}

// HandleChat processes one chat turn against the sink. The user message is
// persisted before tool selection begins; the assistant message only after
// the stream completes.
func (s *Service) HandleChat(ctx context.Context, req Request, sink Sink) error {
	log := logger.FromContext(ctx)
	start := time.Now()

	if _, err := s.store.CreateMessage(ctx, req.SessionID, llm.RoleUser, req.Question, nil); err != nil {
		observeRequest(OutcomeError, start)
		_ = sink.SendFrame(ErrorFrame{Type: "error", Message: "메시지 저장에 실패했습니다."})
		return err
	}

	history, err := s.loadHistory(ctx, req)
	if err != nil {
		log.Warn("History load failed, continuing without context",
			"session_id", req.SessionID, "error", err)
	}

	tools, err := s.registry.GetTools(ctx)
	if err != nil {
		log.Error("Tool catalog unavailable", "error", err)
		observeRequest(OutcomeError, start)
		_ = sink.SendFrame(ErrorFrame{Type: "error", Message: "검색 도구를 불러오지 못했습니다."})
		return err
	}

	selection, err := s.selector.Select(ctx, req.Question, tools, history)
	if err != nil {
		observeRequest(OutcomeError, start)
		_ = sink.SendFrame(ErrorFrame{Type: "error", Message: "응답 생성에 실패했습니다."})
		return err
	}
	if len(selection.ToolCalls) == 0 {
		log.Info("No tools selected, streaming refusal", "session_id", req.SessionID)
		err := s.streamer.StreamRefusal(ctx, req, history, sink)
		observeRequest(outcomeOf(OutcomeRefused, err), start)
		return err
	}

	results := s.executor.ExecuteAll(ctx, selection.ToolCalls, req.Question)
	for _, result := range results {
		observeToolExecution(result)
	}
	if !HasGrounding(results) {
		log.Info("No grounding material found, streaming refusal",
			"session_id", req.SessionID, "tool_calls", len(selection.ToolCalls))
		err := s.streamer.StreamRefusal(ctx, req, history, sink)
		observeRequest(outcomeOf(OutcomeRefused, err), start)
		return err
	}

	err = s.streamer.StreamAnswer(ctx, req, history, selection, results, sink)
	observeRequest(outcomeOf(OutcomeAnswered, err), start)
	return err
}

// loadHistory returns the recent conversation in chronological order,
// excluding the user message persisted for this turn.
func (s *Service) loadHistory(ctx context.Context, req Request) ([]llm.Message, error) {
	stored, err := s.store.ListRecent(ctx, req.SessionID, s.historyLimit+1)
	if err != nil {
		return nil, err
	}
	messages := make([]llm.Message, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		msg := stored[i]
		if msg.Role != llm.RoleUser && msg.Role != llm.RoleAssistant {
			continue
		}
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	if n := len(messages); n > 0 &&
		messages[n-1].Role == llm.RoleUser && messages[n-1].Content == req.Question {
		messages = messages[:n-1]
	}
	return messages, nil
}

func outcomeOf(success string, err error) string {
	if err != nil {
		return OutcomeError
	}
	return success
}
