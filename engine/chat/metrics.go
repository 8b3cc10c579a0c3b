package chat

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline outcomes used as metric label values.
const (
	OutcomeAnswered = "answered"
	OutcomeRefused  = "refused"
	OutcomeError    = "error"
)

var (
	chatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatbot",
		Subsystem: "chat",
		Name:      "requests_total",
		Help:      "Chat turns processed, by pipeline outcome.",
	}, []string{"outcome"})

	chatDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chatbot",
		Subsystem: "chat",
		Name:      "request_duration_seconds",
		Help:      "End-to-end chat turn duration, by pipeline outcome.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"outcome"})

	toolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatbot",
		Subsystem: "chat",
		Name:      "tool_executions_total",
		Help:      "Tool calls executed, by tool name and status.",
	}, []string{"tool", "status"})

	toolCacheRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatbot",
		Subsystem: "chat",
		Name:      "tool_cache_refreshes_total",
		Help:      "Tool catalog cache refreshes.",
	})
)

func observeRequest(outcome string, start time.Time) {
	chatRequests.WithLabelValues(outcome).Inc()
	chatDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func observeToolExecution(result ToolExecutionResult) {
	status := "ok"
	if strings.HasPrefix(result.Content, "Tool execution failed") {
		status = "failed"
	}
	toolExecutions.WithLabelValues(result.Name, status).Inc()
}
