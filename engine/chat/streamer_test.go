package chat

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsainfoteam/chatbot-be/engine/core"
	"github.com/gsainfoteam/chatbot-be/engine/llm"
)

func TestStreamer_StreamAnswer(t *testing.T) {
	sessionID := core.NewID()
	keyID := core.NewID()
	turn := func(question string) Request {
		return Request{SessionID: sessionID, KeyID: keyID, Question: question}
	}
	selection := &Selection{
		ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "list_resources"}},
		Raw:       &llm.Response{},
	}
	results := []ToolExecutionResult{{
		ToolCallID:          "call_1",
		Name:                "list_resources",
		Content:             "## 리소스: 학생지원\n\n장학금 안내",
		HadReferenceContent: true,
	}}

	t.Run("Should forward deltas and persist the reassembled answer", func(t *testing.T) {
		model := &fakeModel{streamFn: func(*llm.Request) (io.ReadCloser, error) {
			return sseBody([]string{"장학금은 ", "매 학기 ", "신청합니다."}, 120), nil
		}}
		store := &fakeStore{}
		usage := &fakeUsage{}
		streamer := NewStreamer(model, store, usage, 2048)
		sink := &captureSink{}

		err := streamer.StreamAnswer(context.Background(), turn("학생지원 제도 알려줘"), nil, selection, results, sink)
		require.NoError(t, err)
		assert.Equal(t, "장학금은 매 학기 신청합니다.", sink.contentText())
		assert.True(t, sink.done)

		saved := store.saved()
		require.Len(t, saved, 1)
		assert.Equal(t, llm.RoleAssistant, saved[0].Role)
		assert.Equal(t, "장학금은 매 학기 신청합니다.", saved[0].Content)
		assert.Equal(t, "gpt-4o-mini", saved[0].Metadata["model"])

		require.Len(t, usage.recordedUsages(), 1)
		assert.Equal(t, 120, usage.recordedUsages()[0].TotalTokens)
		require.Len(t, usage.keys, 1)
		assert.Equal(t, keyID, usage.keys[0])
	})
	t.Run("Should append tool messages correlated by call id", func(t *testing.T) {
		model := &fakeModel{streamFn: func(*llm.Request) (io.ReadCloser, error) {
			return sseBody([]string{"답변"}, 0), nil
		}}
		streamer := NewStreamer(model, &fakeStore{}, nil, 2048)

		err := streamer.StreamAnswer(context.Background(), turn("질문"), nil, selection, results, &captureSink{})
		require.NoError(t, err)

		messages := model.streamRequests()[0].Messages
		last := messages[len(messages)-1]
		assert.Equal(t, llm.RoleTool, last.Role)
		assert.Equal(t, "call_1", last.ToolCallID)
		assert.Contains(t, last.Content, "장학금 안내")
	})
	t.Run("Should emit a resources frame only when resources accumulated", func(t *testing.T) {
		model := &fakeModel{streamFn: func(*llm.Request) (io.ReadCloser, error) {
			return sseBody([]string{"답변"}, 0), nil
		}}
		streamer := NewStreamer(model, &fakeStore{}, nil, 2048)

		sink := &captureSink{}
		err := streamer.StreamAnswer(context.Background(), turn("질문"), nil, selection, results, sink)
		require.NoError(t, err)
		assert.Empty(t, sink.resourcesFrames())

		withResources := []ToolExecutionResult{{
			ToolCallID:          "call_1",
			Name:                "list_resources",
			Content:             "내용",
			HadReferenceContent: true,
			Resources: []ResourceInfo{{
				Path:    "등록금고지서 (PDF)",
				Formats: []string{"md", "pdf"},
				URL:     "https://docs.example.com/등록금고지서",
			}},
		}}
		sink = &captureSink{}
		err = streamer.StreamAnswer(context.Background(), turn("질문"), nil, selection, withResources, sink)
		require.NoError(t, err)
		frames := sink.resourcesFrames()
		require.Len(t, frames, 1)
		assert.Equal(t, "resources", frames[0].Type)
		assert.Equal(t, "등록금고지서 (PDF)", frames[0].Resources[0].Path)
	})
	t.Run("Should emit an error frame when the stream cannot be opened", func(t *testing.T) {
		model := &fakeModel{streamFn: func(*llm.Request) (io.ReadCloser, error) {
			return nil, assert.AnError
		}}
		store := &fakeStore{}
		streamer := NewStreamer(model, store, nil, 2048)
		sink := &captureSink{}

		err := streamer.StreamAnswer(context.Background(), turn("질문"), nil, selection, results, sink)
		require.Error(t, err)
		require.Len(t, sink.errorFrames(), 1)
		assert.False(t, sink.done)
		assert.Empty(t, store.saved())
	})
	t.Run("Should flush accumulated content when the stream breaks late", func(t *testing.T) {
		model := &fakeModel{streamFn: func(*llm.Request) (io.ReadCloser, error) {
			return &errReader{
				data: []byte("data: {\"model\":\"gpt-4o-mini\",\"choices\":[{\"delta\":{\"content\":\"앞부분\"}}]}\n"),
				err:  assert.AnError,
			}, nil
		}}
		store := &fakeStore{}
		streamer := NewStreamer(model, store, nil, 2048)
		sink := &captureSink{}

		err := streamer.StreamAnswer(context.Background(), turn("질문"), nil, selection, results, sink)
		require.Error(t, err)
		assert.Equal(t, "앞부분", sink.contentText())
		require.Len(t, sink.errorFrames(), 1)

		saved := store.saved()
		require.Len(t, saved, 1)
		assert.Equal(t, "앞부분", saved[0].Content)
	})
	t.Run("Should not persist anything for an empty stream", func(t *testing.T) {
		model := &fakeModel{streamFn: func(*llm.Request) (io.ReadCloser, error) {
			return sseBody(nil, 0), nil
		}}
		store := &fakeStore{}
		streamer := NewStreamer(model, store, nil, 2048)
		sink := &captureSink{}

		err := streamer.StreamAnswer(context.Background(), turn("질문"), nil, selection, results, sink)
		require.NoError(t, err)
		assert.True(t, sink.done)
		assert.Empty(t, store.saved())
	})
}

func TestStreamer_StreamRefusal(t *testing.T) {
	t.Run("Should stream with the refusal prompt and no resources frame", func(t *testing.T) {
		model := &fakeModel{streamFn: func(*llm.Request) (io.ReadCloser, error) {
			return sseBody([]string{"관련 자료를 찾지 못했습니다."}, 30), nil
		}}
		store := &fakeStore{}
		streamer := NewStreamer(model, store, nil, 2048)
		sink := &captureSink{}

		err := streamer.StreamRefusal(context.Background(), Request{SessionID: core.NewID(), KeyID: core.NewID(), Question: "화성 이주 방법"}, nil, sink)
		require.NoError(t, err)
		assert.Equal(t, "관련 자료를 찾지 못했습니다.", sink.contentText())
		assert.Empty(t, sink.resourcesFrames())
		assert.True(t, sink.done)

		messages := model.streamRequests()[0].Messages
		assert.Equal(t, noRelevantMaterialsPrompt, messages[0].Content)
	})
	t.Run("Should log and continue when usage recording fails", func(t *testing.T) {
		model := &fakeModel{streamFn: func(*llm.Request) (io.ReadCloser, error) {
			return sseBody([]string{"안내"}, 10), nil
		}}
		usage := &fakeUsage{err: assert.AnError}
		streamer := NewStreamer(model, &fakeStore{}, usage, 2048)
		sink := &captureSink{}

		err := streamer.StreamRefusal(context.Background(), Request{SessionID: core.NewID(), KeyID: core.NewID(), Question: "질문"}, nil, sink)
		require.NoError(t, err)
		assert.True(t, sink.done)
	})
}

func TestHasGrounding(t *testing.T) {
	t.Run("Should be false when nothing produced reference content", func(t *testing.T) {
		assert.False(t, HasGrounding([]ToolExecutionResult{
			{Content: "Tool execution failed: timeout"},
			{Content: "원시 텍스트"},
		}))
	})
	t.Run("Should be true with reference content", func(t *testing.T) {
		assert.True(t, HasGrounding([]ToolExecutionResult{{HadReferenceContent: true}}))
	})
	t.Run("Should be true with accumulated resources alone", func(t *testing.T) {
		assert.True(t, HasGrounding([]ToolExecutionResult{{
			Resources: []ResourceInfo{{Path: "문서 (PDF)"}},
		}}))
	})
	t.Run("Should be false for an empty batch", func(t *testing.T) {
		assert.False(t, HasGrounding(nil))
	})
}
