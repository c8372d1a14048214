package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/postdeck/calendar-engine/internal/models"
)

// RangeFetcher is the persistence boundary for calendar data.
type RangeFetcher interface {
	GetByDateRange(ctx context.Context, workspaceID int64, start, end time.Time) ([]*models.ScheduledPost, error)
}

// RangeResult is what a calendar surface renders from. Posts may be
// stale while Refreshing is set; LastErr reports a failed refresh whose
// data was kept.
type RangeResult struct {
	Posts      []*models.ScheduledPost `json:"posts"`
	FetchedAt  time.Time               `json:"fetched_at"`
	Refreshing bool                    `json:"refreshing"`
	LastErr    string                  `json:"last_error,omitempty"`
}

type CalendarService interface {
	Range(ctx context.Context, workspaceID int64, view string, start, end time.Time) (*RangeResult, error)
	FindPost(workspaceID, postID int64) (*models.ScheduledPost, bool)
	ApplyPostUpdate(workspaceID int64, post *models.ScheduledPost) []*models.ScheduledPost
	RestorePost(workspaceID int64, post *models.ScheduledPost)
	RemovePost(workspaceID, postID int64)
	Invalidate(workspaceID int64)
	TryLock(postID int64) bool
	Unlock(postID int64)
	IsLocked(postID int64) bool
	Sweep()
}

type rangeKey struct {
	WorkspaceID int64
	View        string
	Start       string
	End         string
}

type rangeEntry struct {
	posts     []*models.ScheduledPost
	fetchedAt time.Time
	lastUsed  time.Time
	fetching  bool
	lastErr   error
}

type calendarService struct {
	mu         sync.Mutex
	entries    map[rangeKey]*rangeEntry
	locks      map[int64]bool
	fetcher    RangeFetcher
	staleAfter time.Duration
	idleAfter  time.Duration
	now        func() time.Time
}

func NewCalendarService(fetcher RangeFetcher, staleAfter, idleAfter time.Duration) CalendarService {
	return &calendarService{
		entries:    make(map[rangeKey]*rangeEntry),
		locks:      make(map[int64]bool),
		fetcher:    fetcher,
		staleAfter: staleAfter,
		idleAfter:  idleAfter,
		now:        time.Now,
	}
}

func makeKey(workspaceID int64, view string, start, end time.Time) rangeKey {
	return rangeKey{
		WorkspaceID: workspaceID,
		View:        view,
		Start:       start.UTC().Format(time.RFC3339),
		End:         end.UTC().Format(time.RFC3339),
	}
}

func (s *calendarService) Range(ctx context.Context, workspaceID int64, view string, start, end time.Time) (*RangeResult, error) {
	key := makeKey(workspaceID, view, start, end)

	s.mu.Lock()
	e, ok := s.entries[key]
	if ok {
		e.lastUsed = s.now()
		fresh := s.now().Sub(e.fetchedAt) < s.staleAfter
		if fresh || e.fetching {
			res := s.resultLocked(e)
			s.mu.Unlock()
			return res, nil
		}
		// Stale entry: keep serving it, refresh in the background.
		e.fetching = true
		res := s.resultLocked(e)
		res.Refreshing = true
		s.mu.Unlock()
		go s.refresh(workspaceID, view, start, end)
		return res, nil
	}

	e = &rangeEntry{fetching: true, lastUsed: s.now()}
	s.entries[key] = e
	s.mu.Unlock()

	// First load for this range blocks the caller; there is nothing older
	// to show.
	posts, err := s.fetcher.GetByDateRange(ctx, workspaceID, start, end)

	s.mu.Lock()
	e.fetching = false
	if err != nil {
		e.lastErr = err
		s.mu.Unlock()
		slog.Info(err.Error())
		return nil, fmt.Errorf("range fetch failed: %w", err)
	}
	e.posts = posts
	e.fetchedAt = s.now()
	e.lastErr = nil
	res := s.resultLocked(e)
	s.mu.Unlock()

	s.prefetchAdjacent(workspaceID, start)
	return res, nil
}

// resultLocked snapshots an entry. Callers render from the copy so
// later cache writes never race a render.
func (s *calendarService) resultLocked(e *rangeEntry) *RangeResult {
	res := &RangeResult{
		Posts:      slices.Clone(e.posts),
		FetchedAt:  e.fetchedAt,
		Refreshing: e.fetching,
	}
	if e.lastErr != nil {
		res.LastErr = e.lastErr.Error()
	}
	return res
}

func (s *calendarService) refresh(workspaceID int64, view string, start, end time.Time) {
	ctx := context.Background()
	posts, err := s.fetcher.GetByDateRange(ctx, workspaceID, start, end)

	key := makeKey(workspaceID, view, start, end)
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	e.fetching = false
	if err != nil {
		// Keep whatever was cached; the caller retries.
		e.lastErr = err
		s.mu.Unlock()
		slog.Info(err.Error())
		return
	}
	e.posts = posts
	e.fetchedAt = s.now()
	e.lastErr = nil
	s.mu.Unlock()

	s.prefetchAdjacent(workspaceID, start)
}

// prefetchAdjacent warms the previous and next month ranges so
// navigation is instant. Prefetches never block the active range and
// skip anything already cached.
func (s *calendarService) prefetchAdjacent(workspaceID int64, start time.Time) {
	monthStart := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	ranges := [][2]time.Time{
		{monthStart.AddDate(0, -1, 0), monthStart},
		{monthStart.AddDate(0, 1, 0), monthStart.AddDate(0, 2, 0)},
	}

	for _, r := range ranges {
		rStart, rEnd := r[0], r[1]
		key := makeKey(workspaceID, "month", rStart, rEnd)

		s.mu.Lock()
		if e, ok := s.entries[key]; ok && (e.fetching || s.now().Sub(e.fetchedAt) < s.staleAfter) {
			s.mu.Unlock()
			continue
		}
		e, ok := s.entries[key]
		if !ok {
			e = &rangeEntry{lastUsed: s.now()}
			s.entries[key] = e
		}
		e.fetching = true
		s.mu.Unlock()

		go func() {
			posts, err := s.fetcher.GetByDateRange(context.Background(), workspaceID, rStart, rEnd)
			s.mu.Lock()
			defer s.mu.Unlock()
			e.fetching = false
			if err != nil {
				e.lastErr = err
				return
			}
			e.posts = posts
			e.fetchedAt = s.now()
			e.lastErr = nil
		}()
	}
}

func (s *calendarService) FindPost(workspaceID, postID int64) (*models.ScheduledPost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if key.WorkspaceID != workspaceID {
			continue
		}
		for _, p := range e.posts {
			if p.ID == postID {
				return p, true
			}
		}
	}
	return nil, false
}

// ApplyPostUpdate replaces the cached record for post.ID in every range
// it appears in and returns the replaced pointers, in no particular
// order, for rollback.
func (s *calendarService) ApplyPostUpdate(workspaceID int64, post *models.ScheduledPost) []*models.ScheduledPost {
	s.mu.Lock()
	defer s.mu.Unlock()

	var replaced []*models.ScheduledPost
	for key, e := range s.entries {
		if key.WorkspaceID != workspaceID {
			continue
		}
		for i, p := range e.posts {
			if p.ID == post.ID {
				replaced = append(replaced, p)
				e.posts[i] = post
			}
		}
	}
	return replaced
}

// RestorePost substitutes a pre-mutation snapshot back verbatim.
func (s *calendarService) RestorePost(workspaceID int64, post *models.ScheduledPost) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if key.WorkspaceID != workspaceID {
			continue
		}
		for i, p := range e.posts {
			if p.ID == post.ID {
				e.posts[i] = post
			}
		}
	}
}

func (s *calendarService) RemovePost(workspaceID, postID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if key.WorkspaceID != workspaceID {
			continue
		}
		e.posts = slices.DeleteFunc(e.posts, func(p *models.ScheduledPost) bool {
			return p.ID == postID
		})
	}
}

// Invalidate drops every cached range for a workspace. Used after save.
func (s *calendarService) Invalidate(workspaceID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		if key.WorkspaceID == workspaceID {
			delete(s.entries, key)
		}
	}
}

func (s *calendarService) TryLock(postID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locks[postID] {
		return false
	}
	s.locks[postID] = true
	return true
}

func (s *calendarService) Unlock(postID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, postID)
}

func (s *calendarService) IsLocked(postID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locks[postID]
}

// Sweep evicts ranges nobody has read for the idle window. Run from
// cron.
func (s *calendarService) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleAfter)
	for key, e := range s.entries {
		if !e.fetching && e.lastUsed.Before(cutoff) {
			delete(s.entries, key)
		}
	}
}

// ApplyFilters is the client-side status/channel/label view predicate.
// It never mutates the cached set.
func ApplyFilters(posts []*models.ScheduledPost, f models.CalendarFilters) []*models.ScheduledPost {
	if len(f.Statuses) == 0 && len(f.Channels) == 0 && len(f.Labels) == 0 {
		return posts
	}

	out := make([]*models.ScheduledPost, 0, len(posts))
	for _, p := range posts {
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, p.Status) {
			continue
		}
		if len(f.Channels) > 0 && !slices.Contains(f.Channels, p.Platform) {
			continue
		}
		if len(f.Labels) > 0 && !hasAnyLabel(p.Labels, f.Labels) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasAnyLabel(labels, wanted []string) bool {
	for _, w := range wanted {
		if slices.Contains(labels, w) {
			return true
		}
	}
	return false
}
