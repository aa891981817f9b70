package session

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/envelope"
)

// DefaultSize is the number of completed turns kept in memory.
const DefaultSize = 1024

// Cache keeps recently completed envelopes for the debug endpoints. Cached
// envelopes must not be mutated. Safe for concurrent use.
type Cache struct {
	byID   *lru.Cache[string, *envelope.Envelope]
	byChat *lru.Cache[int64, string]
}

// New creates a cache holding at most size envelopes.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	byID, err := lru.New[string, *envelope.Envelope](size)
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	byChat, err := lru.New[int64, string](size)
	if err != nil {
		return nil, fmt.Errorf("session chat index: %w", err)
	}
	return &Cache{byID: byID, byChat: byChat}, nil
}

// Put stores a completed envelope.
func (c *Cache) Put(env *envelope.Envelope) {
	if env == nil || env.Meta.RequestID == "" {
		return
	}
	c.byID.Add(env.Meta.RequestID, env)
	if env.Meta.ChatID != nil {
		c.byChat.Add(*env.Meta.ChatID, env.Meta.RequestID)
	}
}

// Get returns the envelope for requestID.
func (c *Cache) Get(requestID string) (*envelope.Envelope, bool) {
	return c.byID.Get(requestID)
}

// LastForChat returns the most recent envelope of a chat, if still cached.
func (c *Cache) LastForChat(chatID int64) (*envelope.Envelope, bool) {
	id, ok := c.byChat.Get(chatID)
	if !ok {
		return nil, false
	}
	return c.byID.Get(id)
}

// Len reports the number of cached envelopes.
func (c *Cache) Len() int {
	return c.byID.Len()
}
