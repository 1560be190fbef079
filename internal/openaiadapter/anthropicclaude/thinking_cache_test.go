package anthropicclaude

import (
	"fmt"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestThinkingCacheRoundTrip(t *testing.T) {
	cache := newThinkingCache()
	block := anthropic.ThinkingBlockParam{Thinking: "reasoned about it", Signature: "sig_1"}

	cache.put("toolu_1", block)

	got, ok := cache.get("toolu_1")
	if !ok {
		t.Fatal("entry not found")
	}
	if got.Thinking != block.Thinking || got.Signature != block.Signature {
		t.Errorf("got %+v, want %+v", got, block)
	}

	if _, ok := cache.get("toolu_2"); ok {
		t.Error("unknown id returned an entry")
	}
}

func TestThinkingCacheRejectsUnsigned(t *testing.T) {
	cache := newThinkingCache()

	cache.put("toolu_1", anthropic.ThinkingBlockParam{Thinking: "unsigned"})
	cache.put("toolu_2", anthropic.ThinkingBlockParam{Signature: "sig_only"})
	cache.put("", anthropic.ThinkingBlockParam{Thinking: "x", Signature: "sig"})

	for _, id := range []string{"toolu_1", "toolu_2", ""} {
		if _, ok := cache.get(id); ok {
			t.Errorf("entry %q stored despite missing fields", id)
		}
	}
}

func TestThinkingCacheExpiry(t *testing.T) {
	current := time.Now()
	cache := newThinkingCache()
	cache.now = func() time.Time { return current }

	cache.put("toolu_1", anthropic.ThinkingBlockParam{Thinking: "x", Signature: "sig"})

	current = current.Add(thinkingCacheTTL + time.Second)
	if _, ok := cache.get("toolu_1"); ok {
		t.Error("expired entry returned")
	}
}

func TestThinkingCacheEvictsOldestBeyondCap(t *testing.T) {
	current := time.Now()
	cache := newThinkingCache()
	cache.now = func() time.Time { return current }

	for i := 0; i <= thinkingCacheMaxEntries; i++ {
		current = current.Add(time.Millisecond)
		cache.put(fmt.Sprintf("toolu_%d", i), anthropic.ThinkingBlockParam{Thinking: "x", Signature: "sig"})
	}

	if len(cache.entries) != thinkingCacheMaxEntries {
		t.Errorf("entries = %d, want %d", len(cache.entries), thinkingCacheMaxEntries)
	}
	if _, ok := cache.get("toolu_0"); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := cache.get(fmt.Sprintf("toolu_%d", thinkingCacheMaxEntries)); !ok {
		t.Error("newest entry evicted")
	}
}
