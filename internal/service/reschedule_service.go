package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/postdeck/calendar-engine/internal/models"
)

var (
	ErrPostNotFound   = errors.New("post not found in calendar cache")
	ErrPostLocked     = errors.New("a mutation is already in flight for this post")
	ErrPostSent       = errors.New("a sent post cannot be rescheduled")
	ErrNothingPending = errors.New("no reschedule is awaiting confirmation")
)

// ReschedulePersister is the remote mutation boundary for drops.
type ReschedulePersister interface {
	UpdateScheduledTime(ctx context.Context, postID int64, scheduledAt time.Time) error
}

// PublishEnqueuer hands a confirmed past-time post to the publish queue.
type PublishEnqueuer interface {
	EnqueueNow(postID, workspaceID int64) error
}

// DropResult tells the calendar surface what happened to a drop.
type DropResult struct {
	Outcome     string    `json:"outcome"` // moved, noop, needs_confirmation
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
}

const (
	DropMoved             = "moved"
	DropNoop              = "noop"
	DropNeedsConfirmation = "needs_confirmation"
)

// pendingReschedule carries a computed past-time payload until the user
// confirms or dismisses it.
type pendingReschedule struct {
	workspaceID int64
	postID      int64
	newTime     time.Time
}

type RescheduleService interface {
	DropOnDay(ctx context.Context, workspaceID, postID int64, newDay time.Time) (*DropResult, error)
	ConfirmDrop(ctx context.Context, postID int64) (*DropResult, error)
	CancelDrop(postID int64) error
	Remove(ctx context.Context, workspaceID, postID int64) error
}

type rescheduleService struct {
	mu       sync.Mutex
	pending  map[int64]*pendingReschedule
	cache    CalendarService
	pr       ReschedulePersister
	remover  PostRemover
	enqueuer PublishEnqueuer
	now      func() time.Time
}

// PostRemover is the remote delete boundary.
type PostRemover interface {
	Remove(ctx context.Context, id int64) error
}

func NewRescheduleService(cache CalendarService, pr ReschedulePersister, remover PostRemover, enqueuer PublishEnqueuer) RescheduleService {
	return &rescheduleService{
		pending:  make(map[int64]*pendingReschedule),
		cache:    cache,
		pr:       pr,
		remover:  remover,
		enqueuer: enqueuer,
		now:      time.Now,
	}
}

func (s *rescheduleService) DropOnDay(ctx context.Context, workspaceID, postID int64, newDay time.Time) (*DropResult, error) {
	post, ok := s.cache.FindPost(workspaceID, postID)
	if !ok {
		return nil, ErrPostNotFound
	}
	if post.Status == models.PostStatusSent {
		return nil, ErrPostSent
	}

	newTime := targetTime(post.ScheduledAt, newDay)

	if !post.ScheduledAt.IsZero() && sameDay(post.ScheduledAt, newDay) {
		return &DropResult{Outcome: DropNoop, ScheduledAt: post.ScheduledAt}, nil
	}

	if !s.cache.TryLock(postID) {
		return nil, ErrPostLocked
	}

	if newTime.Before(s.now()) {
		// Past target: no cache mutation until the user confirms. The
		// lock stays held so the card cannot be dragged again meanwhile.
		s.mu.Lock()
		s.pending[postID] = &pendingReschedule{
			workspaceID: workspaceID,
			postID:      postID,
			newTime:     newTime,
		}
		s.mu.Unlock()
		return &DropResult{Outcome: DropNeedsConfirmation, ScheduledAt: newTime}, nil
	}

	err := s.applyReschedule(ctx, workspaceID, post, newTime)
	s.cache.Unlock(postID)
	if err != nil {
		return nil, err
	}
	return &DropResult{Outcome: DropMoved, ScheduledAt: newTime}, nil
}

// applyReschedule performs the optimistic cache write, then the remote
// call, rolling the cache back verbatim on failure. The caller holds
// the post lock.
func (s *rescheduleService) applyReschedule(ctx context.Context, workspaceID int64, post *models.ScheduledPost, newTime time.Time) error {
	updated := *post
	updated.ScheduledAt = newTime
	snapshots := s.cache.ApplyPostUpdate(workspaceID, &updated)

	if err := s.pr.UpdateScheduledTime(ctx, post.ID, newTime); err != nil {
		for _, snap := range snapshots {
			s.cache.RestorePost(workspaceID, snap)
			break // all replaced slots pointed at the same record
		}
		if len(snapshots) == 0 {
			s.cache.RestorePost(workspaceID, post)
		}
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (s *rescheduleService) ConfirmDrop(ctx context.Context, postID int64) (*DropResult, error) {
	s.mu.Lock()
	p, ok := s.pending[postID]
	if ok {
		delete(s.pending, postID)
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrNothingPending
	}

	defer s.cache.Unlock(postID)

	post, found := s.cache.FindPost(p.workspaceID, postID)
	if !found {
		return nil, ErrPostNotFound
	}

	if err := s.applyReschedule(ctx, p.workspaceID, post, p.newTime); err != nil {
		return nil, err
	}

	// A confirmed past-time move publishes near-immediately.
	if err := s.enqueuer.EnqueueNow(postID, p.workspaceID); err != nil {
		slog.Info(err.Error())
	}

	return &DropResult{Outcome: DropMoved, ScheduledAt: p.newTime}, nil
}

func (s *rescheduleService) CancelDrop(postID int64) error {
	s.mu.Lock()
	_, ok := s.pending[postID]
	if ok {
		delete(s.pending, postID)
	}
	s.mu.Unlock()
	if !ok {
		return ErrNothingPending
	}
	s.cache.Unlock(postID)
	return nil
}

// Remove deletes a post. No optimistic mutation: the cache entry goes
// away only once the remote delete succeeded.
func (s *rescheduleService) Remove(ctx context.Context, workspaceID, postID int64) error {
	if s.cache.IsLocked(postID) {
		return ErrPostLocked
	}
	if err := s.remover.Remove(ctx, postID); err != nil {
		slog.Info(err.Error())
		return err
	}
	s.cache.RemovePost(workspaceID, postID)
	return nil
}

// targetTime preserves the original time-of-day on the new day. A post
// with no destination time yet lands at noon.
func targetTime(scheduledAt, newDay time.Time) time.Time {
	if scheduledAt.IsZero() {
		return time.Date(newDay.Year(), newDay.Month(), newDay.Day(), 12, 0, 0, 0, newDay.Location())
	}

	h, m, sec := scheduledAt.Clock()
	return time.Date(newDay.Year(), newDay.Month(), newDay.Day(), h, m, sec, scheduledAt.Nanosecond(), scheduledAt.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
