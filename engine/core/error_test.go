package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("Should unwrap to the original error", func(t *testing.T) {
		sentinel := errors.New("connection refused")
		err := NewError(sentinel, "MODEL_UNREACHABLE", map[string]any{"base_url": "http://llm"})
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, "MODEL_UNREACHABLE", CodeOf(err))
	})
	t.Run("Should surface the code through wrapping", func(t *testing.T) {
		err := fmt.Errorf("pipeline: %w", NewError(errors.New("boom"), "TOOL_EXECUTION_ERROR", nil))
		assert.Equal(t, "TOOL_EXECUTION_ERROR", CodeOf(err))
	})
	t.Run("Should return empty code for plain errors", func(t *testing.T) {
		assert.Equal(t, "", CodeOf(errors.New("plain")))
	})
	t.Run("Should format code and message", func(t *testing.T) {
		err := NewError(errors.New("no tools"), "TOOL_LIST_ERROR", nil)
		require.Contains(t, err.Error(), "TOOL_LIST_ERROR")
		require.Contains(t, err.Error(), "no tools")
	})
}
