package chat

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gsainfoteam/chatbot-be/engine/mcp"
	"github.com/gsainfoteam/chatbot-be/pkg/logger"
)

// ToolRegistry caches the retrieval backend's tool catalog with a fixed TTL.
// Concurrent refreshes are deduplicated through singleflight; a failed
// refresh propagates to the caller, there is no stale-on-error fallback.
type ToolRegistry struct {
	retrieval Retrieval
	ttl       time.Duration

	mu        sync.RWMutex
	tools     []mcp.ToolInfo
	fetchedAt time.Time

	sfGroup singleflight.Group
	now     func() time.Time
}

// NewToolRegistry creates a registry over the retrieval backend. A zero ttl
// defaults to 5 minutes.
func NewToolRegistry(retrieval Retrieval, ttl time.Duration) *ToolRegistry {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &ToolRegistry{
		retrieval: retrieval,
		ttl:       ttl,
		now:       time.Now,
	}
}

// GetTools returns the cached tool list when fresh, otherwise refetches it
// from the backend and replaces the cache wholesale.
func (r *ToolRegistry) GetTools(ctx context.Context) ([]mcp.ToolInfo, error) {
	r.mu.RLock()
	tools, fetchedAt := r.tools, r.fetchedAt
	r.mu.RUnlock()
	if !fetchedAt.IsZero() && r.now().Sub(fetchedAt) < r.ttl {
		return tools, nil
	}
	result, err, _ := r.sfGroup.Do("tools", func() (any, error) {
		r.mu.RLock()
		cached, ts := r.tools, r.fetchedAt
		r.mu.RUnlock()
		if !ts.IsZero() && r.now().Sub(ts) < r.ttl {
			return cached, nil
		}
		fresh, err := r.retrieval.ListTools(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.tools = fresh
		r.fetchedAt = r.now()
		r.mu.Unlock()
		toolCacheRefreshes.Inc()
		logger.FromContext(ctx).Debug("Refreshed tool cache", "count", len(fresh))
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]mcp.ToolInfo), nil
}

// Invalidate clears the cache so the next GetTools call refetches.
func (r *ToolRegistry) Invalidate() {
	r.mu.Lock()
	r.tools = nil
	r.fetchedAt = time.Time{}
	r.mu.Unlock()
}
