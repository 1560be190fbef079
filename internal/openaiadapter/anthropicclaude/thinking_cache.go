package anthropicclaude

import (
	"sort"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

const (
	thinkingCacheMaxEntries = 256
	thinkingCacheTTL        = 10 * time.Minute
)

// thinkingCache holds signed thinking blocks keyed by the tool_use ids of the
// assistant turn that produced them. When a client omits thinking blocks from
// conversation history (OpenAI clients have no field for them), the cached
// block is reattached to the next request so the API accepts tool use with
// thinking enabled.
//
// The cache is owned by the adapter instance and passed explicitly to the
// request and stream converters; entries are short-lived and capped.
type thinkingCache struct {
	mu      sync.Mutex
	entries map[string]thinkingCacheEntry
	now     func() time.Time
}

type thinkingCacheEntry struct {
	block    anthropic.ThinkingBlockParam
	storedAt time.Time
}

func newThinkingCache() *thinkingCache {
	return &thinkingCache{
		entries: make(map[string]thinkingCacheEntry),
		now:     time.Now,
	}
}

// put stores a signed thinking block for a tool_use id. Blocks without a
// signature are not cacheable: the API rejects unsigned thinking on input.
func (c *thinkingCache) put(toolUseID string, block anthropic.ThinkingBlockParam) {
	if toolUseID == "" || block.Signature == "" || block.Thinking == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[toolUseID] = thinkingCacheEntry{block: block, storedAt: c.now()}
	c.evictLocked()
}

// get returns a non-expired thinking block for the tool_use id.
func (c *thinkingCache) get(toolUseID string) (anthropic.ThinkingBlockParam, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[toolUseID]
	if !ok {
		return anthropic.ThinkingBlockParam{}, false
	}
	if c.now().Sub(entry.storedAt) > thinkingCacheTTL {
		delete(c.entries, toolUseID)
		return anthropic.ThinkingBlockParam{}, false
	}
	return entry.block, true
}

// evictLocked drops expired entries, then the oldest entries beyond the cap.
func (c *thinkingCache) evictLocked() {
	now := c.now()
	for id, entry := range c.entries {
		if now.Sub(entry.storedAt) > thinkingCacheTTL {
			delete(c.entries, id)
		}
	}
	if len(c.entries) <= thinkingCacheMaxEntries {
		return
	}

	type aged struct {
		id       string
		storedAt time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for id, entry := range c.entries {
		all = append(all, aged{id: id, storedAt: entry.storedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].storedAt.Before(all[j].storedAt) })
	for _, entry := range all[:len(c.entries)-thinkingCacheMaxEntries] {
		delete(c.entries, entry.id)
	}
}
