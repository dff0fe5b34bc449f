package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDeterminism(t *testing.T) {
	history := []Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}

	k1, err := Key("claude-opus-4-5", "next prompt", history)
	require.NoError(t, err)
	k2, err := Key("claude-opus-4-5", "next prompt", history)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := Key("claude-opus-4-5", "different prompt", history)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	k4, err := Key("claude-haiku-4-5", "next prompt", history)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4)

	mutatedHistory := append([]Message{}, history...)
	mutatedHistory[0].Content = "different"
	k5, err := Key("claude-opus-4-5", "next prompt", mutatedHistory)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k5)
}

func TestGetPutRoundTrip(t *testing.T) {
	c, err := New(t.TempDir(), time.Hour)
	require.NoError(t, err)

	key, err := Key("model", "prompt", nil)
	require.NoError(t, err)

	_, ok := c.Get(key)
	assert.False(t, ok)

	entry := Entry{Content: "response", InputTokens: 10, OutputTokens: 20, Model: "model"}
	require.NoError(t, c.Put(key, entry))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "response", got.Content)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestGetExpiredEntryIsMiss(t *testing.T) {
	c, err := New(t.TempDir(), time.Millisecond)
	require.NoError(t, err)

	key, err := Key("model", "prompt", nil)
	require.NoError(t, err)
	require.NoError(t, c.Put(key, Entry{Content: "response"}))

	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(key)
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, 0, stats.Entries, "expired entry should have been deleted on read")
}

func TestClearRemovesEntries(t *testing.T) {
	c, err := New(t.TempDir(), time.Hour)
	require.NoError(t, err)

	key, err := Key("model", "prompt", nil)
	require.NoError(t, err)
	require.NoError(t, c.Put(key, Entry{Content: "response"}))

	require.NoError(t, c.Clear(0))
	assert.Equal(t, 0, c.Stats().Entries)
}
