package service

import (
	"testing"

	"github.com/postdeck/calendar-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThreadFixture() (*DraftStore, ThreadService) {
	store := NewDraftStore()
	return store, NewThreadService(NewMediaSelectionService())
}

func TestAddSegmentOnNonThreadingPlatform(t *testing.T) {
	store, ts := newThreadFixture()

	assert.ErrorIs(t, ts.AddSegment(store, "instagram"), ErrThreadingUnsupported)
}

func TestAddSegmentCapsAtMaxLength(t *testing.T) {
	store, ts := newThreadFixture()

	for i := 0; i < models.MaxThreadLength; i++ {
		require.NoError(t, ts.AddSegment(store, "x"))
	}

	assert.ErrorIs(t, ts.AddSegment(store, "x"), ErrThreadFull)
	assert.Len(t, ts.EffectiveChain(store, "x"), models.MaxThreadLength)
}

func TestEffectiveChainFallsBackToGeneric(t *testing.T) {
	store, ts := newThreadFixture()
	store.Update(func(d *models.Draft) {
		d.Thread = []models.ThreadMessage{{Text: "one"}, {Text: "two"}}
	})

	chain := ts.EffectiveChain(store, "x")
	require.Len(t, chain, 2)
	assert.Equal(t, "one", chain[0].Text)
}

func TestFirstEditCopiesGenericChain(t *testing.T) {
	store, ts := newThreadFixture()
	store.Update(func(d *models.Draft) {
		d.Thread = []models.ThreadMessage{{Text: "one"}, {Text: "two"}}
	})

	require.NoError(t, ts.AddSegment(store, "x"))

	d := store.Snapshot()
	assert.Len(t, d.PlatformThreads["x"], 3)
	// The generic chain is the pre-platform default and stays as it was.
	assert.Len(t, d.Thread, 2)
}

func TestRemoveSegmentCompacts(t *testing.T) {
	store, ts := newThreadFixture()
	store.Update(func(d *models.Draft) {
		d.PlatformThreads["x"] = []models.ThreadMessage{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	})

	require.NoError(t, ts.RemoveSegment(store, "x", 1))

	chain := ts.EffectiveChain(store, "x")
	require.Len(t, chain, 2)
	assert.Equal(t, "a", chain[0].Text)
	assert.Equal(t, "c", chain[1].Text)
}

func TestUpdateSegmentText(t *testing.T) {
	store, ts := newThreadFixture()
	store.Update(func(d *models.Draft) {
		d.PlatformThreads["threads"] = []models.ThreadMessage{{Text: "a"}, {Text: "b"}}
	})

	require.NoError(t, ts.UpdateSegmentText(store, "threads", 1, "rewritten"))
	assert.Equal(t, "rewritten", ts.EffectiveChain(store, "threads")[1].Text)

	assert.ErrorIs(t, ts.UpdateSegmentText(store, "threads", 5, "x"), ErrNoSuchSegment)
}

func TestToggleSegmentMedia(t *testing.T) {
	store, ts := newThreadFixture()
	store.AddStagedMedia(models.MediaItem{UID: "img-0", Type: models.MediaTypeImage})
	store.Update(func(d *models.Draft) {
		d.Thread = []models.ThreadMessage{{Text: "lead"}}
	})

	// Editing media on a segment materializes the platform chain first.
	require.NoError(t, ts.ToggleSegmentMedia(store, "x", 0, "img-0"))

	d := store.Snapshot()
	require.Len(t, d.PlatformThreads["x"], 1)
	assert.Equal(t, []string{"img-0"}, d.PlatformThreads["x"][0].MediaUIDs)
}
