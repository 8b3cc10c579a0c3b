package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gsainfoteam/chatbot-be/engine/core"
	"github.com/gsainfoteam/chatbot-be/pkg/logger"
)

// Session is the widget session payload stored by the issuance service.
type Session struct {
	ID    core.ID `json:"id"`
	KeyID core.ID `json:"key_id"`
}

// Interface is the minimal Redis surface the verifier needs.
type Interface interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Verifier resolves bearer session tokens against the shared Redis store.
// Token issuance is owned by the widget auth service; this side only reads.
type Verifier struct {
	client Interface
}

var ErrInvalidToken = errors.New("invalid or expired session token")

func NewVerifier(client Interface) *Verifier {
	return &Verifier{client: client}
}

func tokenKey(token string) string {
	return fmt.Sprintf("widget:session:%s", token)
}

// Verify resolves a token to its session. An unknown or expired token
// yields ErrInvalidToken; transport failures are surfaced as errors.
func (v *Verifier) Verify(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	cached := v.client.Get(ctx, tokenKey(token))
	if err := cached.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidToken
		}
		return nil, core.NewError(err, "SESSION_STORE_ERROR", nil)
	}
	var sess Session
	if err := json.Unmarshal([]byte(cached.Val()), &sess); err != nil {
		logger.FromContext(ctx).Warn("Malformed session payload", "error", err)
		return nil, ErrInvalidToken
	}
	if sess.ID.IsZero() {
		return nil, ErrInvalidToken
	}
	return &sess, nil
}

// Healthy reports whether the session store is reachable.
func (v *Verifier) Healthy(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}
