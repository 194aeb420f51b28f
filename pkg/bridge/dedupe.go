package bridge

import (
	"strings"
	"sync"
)

// DedupeCache remembers which (conversation, message) pairs have already
// been dispatched to the assistant, and separately which prompts the
// assistant declared unanswerable. Eviction is explicit: the scheduler
// clears the cache when a scan finds no unread work, and the manual resume
// action clears it as well. There is no time-based purge.
type DedupeCache struct {
	mu         sync.Mutex
	dispatched map[string]struct{}
	notFound   map[string]struct{}
}

// NewDedupeCache creates an empty cache.
func NewDedupeCache() *DedupeCache {
	return &DedupeCache{
		dispatched: make(map[string]struct{}),
		notFound:   make(map[string]struct{}),
	}
}

// DedupeKey builds the composite key for a message: the conversation ID
// when it is stable, otherwise the sender name (synthetic per-scan IDs
// would never match across scans).
func DedupeKey(conversationID, sender, text string, stableID bool) string {
	if stableID {
		return conversationID + "|" + text
	}
	return sender + "|" + text
}

// MarkDispatched records that a message has been handed to the broker.
func (c *DedupeCache) MarkDispatched(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatched[key] = struct{}{}
}

// Dispatched reports whether a message was already handed to the broker.
func (c *DedupeCache) Dispatched(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.dispatched[key]
	return ok
}

// MarkNotFound records that the assistant had no answer for a message.
func (c *DedupeCache) MarkNotFound(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notFound[key] = struct{}{}
}

// NotFound reports whether a message previously came back unanswerable.
func (c *DedupeCache) NotFound(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.notFound[key]
	return ok
}

// Forget removes a single dispatched key, re-enabling discovery of the
// message. Used when a delivery is aborted before anything was sent.
func (c *DedupeCache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.dispatched, key)
}

// Clear drops both sets.
func (c *DedupeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatched = make(map[string]struct{})
	c.notFound = make(map[string]struct{})
}

// Len reports the combined number of remembered keys.
func (c *DedupeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.dispatched) + len(c.notFound)
}

// OperatorAuthored reports whether a preview text is the operator's own
// outgoing message rather than a customer question. The inbox shows these
// with a literal prefix; matching is case-insensitive.
func OperatorAuthored(previewText string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(previewText)), "you:")
}
