package cache

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ResponseTTL is the fixed expiry window for cached answers.
const ResponseTTL = time.Hour

// ResponseCache memoizes expensive chat answers keyed by (user, normalized
// question). Strictly best-effort: a miss or a store error is only a slower
// path, never a failure.
type ResponseCache struct {
	store  Store
	logger *zap.Logger
}

// NewResponseCache creates a response cache over the given store.
func NewResponseCache(store Store, logger *zap.Logger) *ResponseCache {
	return &ResponseCache{store: store, logger: logger}
}

// Key builds the deterministic cache key for a user and question. Questions
// are trimmed and lowercased before encoding so trivially different phrasings
// of the same question share an entry; the base64 step keeps arbitrary
// question text safe inside a Redis key.
func (rc *ResponseCache) Key(userID, question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	encoded := base64.StdEncoding.EncodeToString([]byte(normalized))
	return "cache:" + userID + ":" + encoded
}

// GetResponse returns the cached answer for (userID, question), if any.
func (rc *ResponseCache) GetResponse(ctx context.Context, userID, question string) (string, bool) {
	value, found, err := rc.store.Get(ctx, rc.Key(userID, question))
	if err != nil {
		if rc.logger != nil {
			rc.logger.Warn("⚠️ Cache read failed", zap.Error(err))
		}
		return "", false
	}
	return value, found
}

// SetResponse stores an answer for (userID, question) with the fixed TTL.
func (rc *ResponseCache) SetResponse(ctx context.Context, userID, question, answer string) {
	if err := rc.store.Set(ctx, rc.Key(userID, question), answer, ResponseTTL); err != nil {
		if rc.logger != nil {
			rc.logger.Warn("⚠️ Cache write failed", zap.Error(err))
		}
	}
}
