package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeKey(t *testing.T) {
	t.Run("stable ID keys on conversation", func(t *testing.T) {
		key := DedupeKey("c123456", "Jane", "hello", true)
		assert.Equal(t, "c123456|hello", key)
	})

	t.Run("synthetic ID keys on sender", func(t *testing.T) {
		key := DedupeKey("tmp0", "Jane", "hello", false)
		assert.Equal(t, "Jane|hello", key)
	})
}

func TestDedupeCache(t *testing.T) {
	t.Run("dispatched round trip", func(t *testing.T) {
		cache := NewDedupeCache()
		assert.False(t, cache.Dispatched("k"))

		cache.MarkDispatched("k")
		assert.True(t, cache.Dispatched("k"))
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("not-found is remembered until cleared", func(t *testing.T) {
		cache := NewDedupeCache()
		cache.MarkNotFound("k")

		assert.True(t, cache.NotFound("k"))
		assert.False(t, cache.Dispatched("k"))

		// Forget only touches the dispatched set.
		cache.Forget("k")
		assert.True(t, cache.NotFound("k"))

		cache.Clear()
		assert.False(t, cache.NotFound("k"))
		assert.Zero(t, cache.Len())
	})

	t.Run("forget re-enables discovery", func(t *testing.T) {
		cache := NewDedupeCache()
		cache.MarkDispatched("k")
		cache.Forget("k")
		assert.False(t, cache.Dispatched("k"))
	})
}

func TestOperatorAuthored(t *testing.T) {
	tests := []struct {
		preview string
		want    bool
	}{
		{"You: thanks for reaching out", true},
		{"you: ok", true},
		{"  YOU: shipped today", true},
		{"What are your opening hours?", false},
		{"your order shipped", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, OperatorAuthored(tt.preview), "preview %q", tt.preview)
	}
}
