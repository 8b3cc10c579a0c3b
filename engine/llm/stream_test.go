package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamReducer(t *testing.T) {
	t.Run("Should emit one frame per complete data line", func(t *testing.T) {
		r := &StreamReducer{}
		frames := r.Feed([]byte("data: {\"a\":1}\ndata: {\"b\":2}\n"))
		require.Len(t, frames, 2)
		assert.Equal(t, `{"a":1}`, frames[0])
		assert.Equal(t, `{"b":2}`, frames[1])
	})
	t.Run("Should buffer a line split across chunks", func(t *testing.T) {
		r := &StreamReducer{}
		assert.Empty(t, r.Feed([]byte("data: {\"content\":")))
		frames := r.Feed([]byte("\"안녕\"}\n"))
		require.Len(t, frames, 1)
		assert.Equal(t, `{"content":"안녕"}`, frames[0])
	})
	t.Run("Should handle a chunk splitting the data prefix", func(t *testing.T) {
		r := &StreamReducer{}
		assert.Empty(t, r.Feed([]byte("da")))
		frames := r.Feed([]byte("ta: [DONE]\n"))
		require.Len(t, frames, 1)
		assert.Equal(t, DoneSentinel, frames[0])
	})
	t.Run("Should ignore blank and non-data lines", func(t *testing.T) {
		r := &StreamReducer{}
		frames := r.Feed([]byte("\r\n: keep-alive\nevent: ping\ndata: {}\n"))
		require.Len(t, frames, 1)
		assert.Equal(t, "{}", frames[0])
	})
	t.Run("Should strip carriage returns", func(t *testing.T) {
		r := &StreamReducer{}
		frames := r.Feed([]byte("data: {\"x\":1}\r\n"))
		require.Len(t, frames, 1)
		assert.Equal(t, `{"x":1}`, frames[0])
	})
	t.Run("Should flush a trailing unterminated line", func(t *testing.T) {
		r := &StreamReducer{}
		assert.Empty(t, r.Feed([]byte("data: tail")))
		frames := r.Flush()
		require.Len(t, frames, 1)
		assert.Equal(t, "tail", frames[0])
		assert.Empty(t, r.Flush())
	})
}

func TestParseStreamChunk(t *testing.T) {
	t.Run("Should parse delta content and usage", func(t *testing.T) {
		chunk, ok := ParseStreamChunk(
			`{"model":"gpt-4o-mini","choices":[{"delta":{"content":"부분"}}],"usage":{"total_tokens":42}}`,
		)
		require.True(t, ok)
		assert.Equal(t, "부분", chunk.DeltaContent())
		assert.Equal(t, "gpt-4o-mini", chunk.Model)
		require.NotNil(t, chunk.Usage)
		assert.Equal(t, 42, chunk.Usage.TotalTokens)
	})
	t.Run("Should reject the done sentinel", func(t *testing.T) {
		_, ok := ParseStreamChunk(DoneSentinel)
		assert.False(t, ok)
	})
	t.Run("Should reject malformed payloads without error", func(t *testing.T) {
		_, ok := ParseStreamChunk("not json")
		assert.False(t, ok)
	})
	t.Run("Should return empty delta for empty choices", func(t *testing.T) {
		chunk, ok := ParseStreamChunk(`{"choices":[]}`)
		require.True(t, ok)
		assert.Equal(t, "", chunk.DeltaContent())
	})
}
