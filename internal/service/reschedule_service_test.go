package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/postdeck/calendar-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePersister struct {
	mu    sync.Mutex
	err   error
	calls []time.Time
}

func (f *fakePersister) UpdateScheduledTime(ctx context.Context, postID int64, scheduledAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, scheduledAt)
	return nil
}

type fakeEnqueuer struct {
	enqueued []int64
}

func (f *fakeEnqueuer) EnqueueNow(postID, workspaceID int64) error {
	f.enqueued = append(f.enqueued, postID)
	return nil
}

type fakeRemover struct {
	err     error
	removed []int64
}

func (f *fakeRemover) Remove(ctx context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, id)
	return nil
}

type dropFixture struct {
	cache    *calendarService
	persist  *fakePersister
	enqueue  *fakeEnqueuer
	remove   *fakeRemover
	svc      *rescheduleService
	nowFixed time.Time
}

// newDropFixture seeds the calendar cache with the given posts and sets
// both clocks to 2025-01-11 noon UTC.
func newDropFixture(t *testing.T, posts ...*models.ScheduledPost) *dropFixture {
	t.Helper()

	f := &fakeRangeFetcher{posts: posts}
	cache, _ := newTestCalendar(f)

	_, err := cache.Range(context.Background(), 1, "month", calTestBase, calTestBase.AddDate(0, 1, 0))
	require.NoError(t, err)

	fx := &dropFixture{
		cache:    cache,
		persist:  &fakePersister{},
		enqueue:  &fakeEnqueuer{},
		remove:   &fakeRemover{},
		nowFixed: time.Date(2025, 1, 11, 12, 0, 0, 0, time.UTC),
	}
	fx.svc = NewRescheduleService(cache, fx.persist, fx.remove, fx.enqueue).(*rescheduleService)
	fx.svc.now = func() time.Time { return fx.nowFixed }
	return fx
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDropPreservesTimeOfDay(t *testing.T) {
	fx := newDropFixture(t, calPost(1, time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)))

	res, err := fx.svc.DropOnDay(context.Background(), 1, 1, day(2025, 1, 12))
	require.NoError(t, err)

	want := time.Date(2025, 1, 12, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, DropMoved, res.Outcome)
	assert.Equal(t, want, res.ScheduledAt)

	require.Len(t, fx.persist.calls, 1)
	assert.Equal(t, want, fx.persist.calls[0])

	got, ok := fx.cache.FindPost(1, 1)
	require.True(t, ok)
	assert.Equal(t, want, got.ScheduledAt)
	assert.False(t, fx.cache.IsLocked(1))
}

func TestDropUnscheduledLandsAtNoon(t *testing.T) {
	post := calPost(1, time.Time{})
	post.Status = models.PostStatusDraft
	fx := newDropFixture(t, post)

	res, err := fx.svc.DropOnDay(context.Background(), 1, 1, day(2025, 1, 14))
	require.NoError(t, err)

	want := time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, DropMoved, res.Outcome)
	assert.Equal(t, want, res.ScheduledAt)
	require.Len(t, fx.persist.calls, 1)
	assert.Equal(t, want, fx.persist.calls[0])
}

func TestDropOnSameDayIsNoop(t *testing.T) {
	at := time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)
	fx := newDropFixture(t, calPost(1, at))

	res, err := fx.svc.DropOnDay(context.Background(), 1, 1, day(2025, 1, 10))
	require.NoError(t, err)

	assert.Equal(t, DropNoop, res.Outcome)
	assert.Equal(t, at, res.ScheduledAt)
	assert.Empty(t, fx.persist.calls)
	assert.False(t, fx.cache.IsLocked(1))
}

func TestDropOnSentPost(t *testing.T) {
	post := calPost(1, time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC))
	post.Status = models.PostStatusSent
	fx := newDropFixture(t, post)

	_, err := fx.svc.DropOnDay(context.Background(), 1, 1, day(2025, 1, 12))
	assert.ErrorIs(t, err, ErrPostSent)
	assert.Empty(t, fx.persist.calls)
}

func TestDropUnknownPost(t *testing.T) {
	fx := newDropFixture(t)

	_, err := fx.svc.DropOnDay(context.Background(), 1, 99, day(2025, 1, 12))
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestDropIntoPastNeedsConfirmation(t *testing.T) {
	fx := newDropFixture(t, calPost(1, time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)))

	res, err := fx.svc.DropOnDay(context.Background(), 1, 1, day(2025, 1, 5))
	require.NoError(t, err)

	assert.Equal(t, DropNeedsConfirmation, res.Outcome)
	assert.Equal(t, time.Date(2025, 1, 5, 15, 30, 0, 0, time.UTC), res.ScheduledAt)

	// Nothing moved yet, and the card is locked until the user decides.
	got, _ := fx.cache.FindPost(1, 1)
	assert.Equal(t, time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC), got.ScheduledAt)
	assert.Empty(t, fx.persist.calls)
	assert.True(t, fx.cache.IsLocked(1))

	// A second drag on the same card is refused while pending.
	_, err = fx.svc.DropOnDay(context.Background(), 1, 1, day(2025, 1, 20))
	assert.ErrorIs(t, err, ErrPostLocked)
}

func TestConfirmDropAppliesAndEnqueues(t *testing.T) {
	fx := newDropFixture(t, calPost(1, time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)))

	_, err := fx.svc.DropOnDay(context.Background(), 1, 1, day(2025, 1, 5))
	require.NoError(t, err)

	res, err := fx.svc.ConfirmDrop(context.Background(), 1)
	require.NoError(t, err)

	want := time.Date(2025, 1, 5, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, DropMoved, res.Outcome)
	assert.Equal(t, want, res.ScheduledAt)

	got, _ := fx.cache.FindPost(1, 1)
	assert.Equal(t, want, got.ScheduledAt)
	assert.Equal(t, []int64{1}, fx.enqueue.enqueued)
	assert.False(t, fx.cache.IsLocked(1))
}

func TestCancelDropReleasesLock(t *testing.T) {
	fx := newDropFixture(t, calPost(1, time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)))

	_, err := fx.svc.DropOnDay(context.Background(), 1, 1, day(2025, 1, 5))
	require.NoError(t, err)

	require.NoError(t, fx.svc.CancelDrop(1))

	got, _ := fx.cache.FindPost(1, 1)
	assert.Equal(t, time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC), got.ScheduledAt)
	assert.Empty(t, fx.persist.calls)
	assert.Empty(t, fx.enqueue.enqueued)
	assert.False(t, fx.cache.IsLocked(1))

	assert.ErrorIs(t, fx.svc.CancelDrop(1), ErrNothingPending)
}

func TestConfirmWithoutPending(t *testing.T) {
	fx := newDropFixture(t)

	_, err := fx.svc.ConfirmDrop(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNothingPending)
}

func TestDropRollsBackWhenPersistFails(t *testing.T) {
	orig := time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)
	fx := newDropFixture(t, calPost(1, orig))
	fx.persist.err = errors.New("remote save failed")

	_, err := fx.svc.DropOnDay(context.Background(), 1, 1, day(2025, 1, 12))
	require.Error(t, err)

	// The optimistic move is rolled back verbatim and the card unlocks.
	got, ok := fx.cache.FindPost(1, 1)
	require.True(t, ok)
	assert.Equal(t, orig, got.ScheduledAt)
	assert.False(t, fx.cache.IsLocked(1))
}

func TestRemovePost(t *testing.T) {
	fx := newDropFixture(t, calPost(1, time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)))

	require.NoError(t, fx.svc.Remove(context.Background(), 1, 1))
	assert.Equal(t, []int64{1}, fx.remove.removed)

	_, ok := fx.cache.FindPost(1, 1)
	assert.False(t, ok)
}

func TestRemoveRefusedWhileLocked(t *testing.T) {
	fx := newDropFixture(t, calPost(1, time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)))
	fx.cache.TryLock(1)

	assert.ErrorIs(t, fx.svc.Remove(context.Background(), 1, 1), ErrPostLocked)
	assert.Empty(t, fx.remove.removed)
}

func TestRemoveKeepsCacheWhenDeleteFails(t *testing.T) {
	fx := newDropFixture(t, calPost(1, time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)))
	fx.remove.err = errors.New("remote delete failed")

	require.Error(t, fx.svc.Remove(context.Background(), 1, 1))

	_, ok := fx.cache.FindPost(1, 1)
	assert.True(t, ok)
}
