package service

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/postdeck/calendar-engine/internal/models"
)

// DraftStore owns the single in-progress composition for one compose
// session. Handlers and preview surfaces read snapshots; only the
// active session mutates it.
type DraftStore struct {
	mu sync.Mutex
	d  models.Draft
}

func NewDraftStore() *DraftStore {
	s := &DraftStore{}
	s.resetLocked()
	return s
}

func (s *DraftStore) resetLocked() {
	s.d = models.Draft{
		PlatformCaptions: make(map[string]string),
		PlatformTitles:   make(map[string]string),
		PlatformThreads:  make(map[string][]models.ThreadMessage),
		Selections:       make(map[string][]string),
		FirstComments:    make(map[string]string),
	}
}

func (s *DraftStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Snapshot returns a deep copy safe to render from.
func (s *DraftStore) Snapshot() models.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyDraft(s.d)
}

func copyDraft(d models.Draft) models.Draft {
	out := d
	out.PlatformCaptions = maps.Clone(d.PlatformCaptions)
	out.PlatformTitles = maps.Clone(d.PlatformTitles)
	out.FirstComments = maps.Clone(d.FirstComments)
	out.Thread = copyThread(d.Thread)
	out.PlatformThreads = make(map[string][]models.ThreadMessage, len(d.PlatformThreads))
	for p, chain := range d.PlatformThreads {
		out.PlatformThreads[p] = copyThread(chain)
	}
	out.Media = slices.Clone(d.Media)
	out.Selections = make(map[string][]string, len(d.Selections))
	for p, uids := range d.Selections {
		out.Selections[p] = slices.Clone(uids)
	}
	out.UserTags = slices.Clone(d.UserTags)
	out.ProductTags = slices.Clone(d.ProductTags)
	return out
}

func copyThread(chain []models.ThreadMessage) []models.ThreadMessage {
	out := make([]models.ThreadMessage, len(chain))
	for i, seg := range chain {
		out[i] = models.ThreadMessage{Text: seg.Text, MediaUIDs: slices.Clone(seg.MediaUIDs)}
	}
	return out
}

// Update runs fn with exclusive access to the draft.
func (s *DraftStore) Update(fn func(d *models.Draft)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.d)
}

func (s *DraftStore) SetCaption(caption string) {
	s.Update(func(d *models.Draft) { d.Caption = caption })
}

func (s *DraftStore) SetPlatformCaption(platform, caption string) {
	s.Update(func(d *models.Draft) { d.PlatformCaptions[platform] = caption })
}

func (s *DraftStore) SetPlatformTitle(platform, title string) {
	s.Update(func(d *models.Draft) { d.PlatformTitles[platform] = title })
}

func (s *DraftStore) SetSchedule(at time.Time, scheduling bool) {
	s.Update(func(d *models.Draft) {
		d.ScheduledAt = at
		d.IsScheduling = scheduling
	})
}

func (s *DraftStore) SetFirstComment(platform, text string) {
	s.Update(func(d *models.Draft) { d.FirstComments[platform] = text })
}

func (s *DraftStore) AddStagedMedia(item models.MediaItem) {
	s.Update(func(d *models.Draft) { d.Media = append(d.Media, item) })
}
