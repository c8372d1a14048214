package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRulesForUnknownPlatform(t *testing.T) {
	r := RulesFor("myspace")
	assert.Equal(t, 1, r.MaxImages)
	assert.Equal(t, 1, r.MaxVideos)
	assert.False(t, r.AllowMixedMedia)
	assert.False(t, r.SupportsThreading)
}

func TestCanAddMixedMediaCeiling(t *testing.T) {
	r := RulesFor("instagram")

	assert.True(t, r.CanAdd(5, 4, "image"))
	assert.True(t, r.CanAdd(5, 4, "video"))
	assert.False(t, r.CanAdd(6, 4, "image"))
	assert.False(t, r.CanAdd(0, 10, "video"))
}

func TestCanAddRejectsMixingWhenUnsupported(t *testing.T) {
	r := RulesFor("x")

	assert.True(t, r.CanAdd(3, 0, "image"))
	assert.False(t, r.CanAdd(4, 0, "image"))
	assert.True(t, r.CanAdd(0, 0, "video"))
	assert.False(t, r.CanAdd(0, 1, "video"))

	// One type on the canvas shuts out the other entirely.
	assert.False(t, r.CanAdd(1, 0, "video"))
	assert.False(t, r.CanAdd(0, 1, "image"))
}

func TestShowOrderingUI(t *testing.T) {
	assert.False(t, ShowOrderingUI("instagram", 0))
	assert.False(t, ShowOrderingUI("instagram", 1))
	assert.True(t, ShowOrderingUI("instagram", 2))

	// No carousel support, no ordering chrome regardless of count.
	assert.False(t, ShowOrderingUI("youtube", 3))
}

func TestThreadingPlatforms(t *testing.T) {
	got := ThreadingPlatforms()
	assert.ElementsMatch(t, []string{"x", "threads"}, got)
}
