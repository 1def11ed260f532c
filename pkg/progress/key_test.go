package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFor(t *testing.T) {
	const dentists = "https://www.google.com/maps/search/dentists+in+leeds"

	assert.Equal(t, "custom", KeyFor("custom", dentists))
	assert.Equal(t, DefaultKey, KeyFor("", ""))

	key := KeyFor("", dentists)
	assert.Regexp(t, `^STATE-[0-9a-f]{16}$`, key)
	assert.Equal(t, key, KeyFor("", "HTTPS://WWW.Google.com/maps/search/dentists+in+leeds/#top"))
	assert.NotEqual(t, key, KeyFor("", "https://www.google.com/maps/search/plumbers+in+leeds"))

	withQuery := KeyFor("", dentists+"?hl=en&entry=ttu")
	assert.NotEqual(t, key, withQuery)
	assert.Equal(t, withQuery, KeyFor("", dentists+"?entry=ttu&hl=en"))
}

func TestSeedsKeepIndependentCursors(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	dentists := NewStore(backend, KeyFor("", "https://maps.example.com/maps/search/dentists"), nil)
	plumbers := NewStore(backend, KeyFor("", "https://maps.example.com/maps/search/plumbers"), nil)

	_, err := dentists.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, dentists.MarkProcessed(ctx, "https://maps.example.com/maps/place/a", 6))

	state, err := plumbers.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Cursor)
	assert.Empty(t, state.Seen)

	reopened := NewStore(backend, KeyFor("", "https://maps.example.com/maps/search/dentists"), nil)
	state, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, state.Cursor)
}
