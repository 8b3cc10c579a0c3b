package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gsainfoteam/chatbot-be/engine/chat"
	"github.com/gsainfoteam/chatbot-be/pkg/logger"
)

type chatStreamRequest struct {
	Question string `json:"question" binding:"required"`
}

// handleChatStream runs the chat pipeline over a long-lived SSE response.
// The client disconnecting cancels in-flight tool and model calls through
// the request context.
func (s *Server) handleChatStream(c *gin.Context) {
	sess, ok := sessionFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing session")
		return
	}
	var req chatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "question is required")
		return
	}
	sink, err := newSSESink(c.Writer)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "STREAM_UNSUPPORTED", "streaming unsupported")
		return
	}
	c.Writer.WriteHeader(http.StatusOK)

	ctx := c.Request.Context()
	if err := s.chat.HandleChat(ctx, chat.Request{
		SessionID: sess.ID,
		KeyID:     sess.KeyID,
		Question:  req.Question,
	}, sink); err != nil {
		logger.FromContext(ctx).Error("Chat turn failed",
			"session_id", sess.ID, "error", err)
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	status := http.StatusOK
	deps := gin.H{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "dependencies": deps})
}
