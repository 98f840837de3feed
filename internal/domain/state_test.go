package domain

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_BookmarkDefaults(t *testing.T) {
	var nilState *State
	assert.Equal(t, "def", nilState.Bookmark("s", "k", "def"))

	state := NewState()
	assert.Equal(t, "def", state.Bookmark("s", "k", "def"))

	state.SetBookmark("s", "k", "")
	assert.Equal(t, "def", state.Bookmark("s", "k", "def"))

	state.SetBookmark("s", "k", "v")
	assert.Equal(t, "v", state.Bookmark("s", "k", "def"))
}

func TestState_AdvanceBookmark(t *testing.T) {
	start := "2024-01-01T00:00:00Z"
	state := NewState()

	older := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, start, state.AdvanceBookmark("s", "k", start, older))

	newer := time.Date(2024, 2, 1, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-02-01T08:30:00.000000Z", state.AdvanceBookmark("s", "k", start, newer))

	assert.Equal(t, "2024-02-01T08:30:00.000000Z", state.AdvanceBookmark("s", "k", start, older))
	assert.Equal(t, "2024-02-01T08:30:00.000000Z", state.Bookmark("s", "k", ""))
}

func TestState_AdvanceBookmarkReplacesUnparseable(t *testing.T) {
	state := NewState()
	state.SetBookmark("s", "k", "garbage")

	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01T00:00:00.000000Z", state.AdvanceBookmark("s", "k", "", ts))
}

func TestState_CloneIsIndependent(t *testing.T) {
	state := NewState()
	state.SetBookmark("a", "k", "1")

	clone := state.Clone()
	clone.SetBookmark("a", "k", "2")
	clone.SetBookmark("b", "k", "3")

	assert.Equal(t, "1", state.Bookmark("a", "k", ""))
	assert.NotContains(t, state.Bookmarks, "b")

	var nilState *State
	assert.NotNil(t, nilState.Clone().Bookmarks)
}

func TestState_Rows(t *testing.T) {
	state := NewState()
	state.SetBookmark("a", "k1", "1")
	state.SetBookmark("a", "k2", "2")
	state.SetBookmark("b", "k", "3")

	rows := state.Rows()
	assert.Len(t, rows, 3)
	assert.Contains(t, rows, Bookmark{StreamID: "b", Key: "k", Value: "3"})
}

func TestState_JSONShape(t *testing.T) {
	state := NewState()
	state.SetBookmark("portfolios", "extendedData.lastUpdateDateTime", "2024-01-01T00:00:00Z")

	data, err := json.Marshal(state)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bookmarks":{"portfolios":{"extendedData.lastUpdateDateTime":"2024-01-01T00:00:00Z"}}}`, string(data))
}

func TestRecord_Lookup(t *testing.T) {
	rec := Record{
		"id": "c1",
		"extendedData": map[string]any{
			"lastUpdateDateTime": "2024-01-01T00:00:00Z",
		},
	}

	v, ok := rec.Lookup("extendedData.lastUpdateDateTime")
	assert.True(t, ok)
	assert.Equal(t, "2024-01-01T00:00:00Z", v)

	_, ok = rec.Lookup("extendedData.missing")
	assert.False(t, ok)

	_, ok = rec.Lookup("id.nested")
	assert.False(t, ok)
}
