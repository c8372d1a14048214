package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postdeck/calendar-engine/internal/models"
	"github.com/postdeck/calendar-engine/internal/transfer"
)

var ErrNoSession = errors.New("no compose session")

// FullPostFetcher is the persistence boundary for the authoritative
// post record.
type FullPostFetcher interface {
	GetFullPost(ctx context.Context, postID, workspaceID int64) (*transfer.FullPostDetails, error)
}

// hydration phases for one compose session. The phase always pairs with
// the session's postID: an enrichment result for any other post id is
// discarded.
type hydrationPhase int

const (
	hydrationEmpty hydrationPhase = iota
	hydrationSummary
	hydrationEnriched
)

func (p hydrationPhase) String() string {
	switch p {
	case hydrationSummary:
		return "summary"
	case hydrationEnriched:
		return "enriched"
	default:
		return "empty"
	}
}

// composeSession is the per-user editing session: the draft store plus
// the hydration tracking around it.
type composeSession struct {
	mu          sync.Mutex
	store       *DraftStore
	phase       hydrationPhase
	postID      int64
	workspaceID int64
	summary     *models.ScheduledPost
	enriched    *transfer.FullPostDetails
	notice      string
	blockingErr error
}

// DraftView is the session snapshot the compose form renders from.
type DraftView struct {
	Draft  models.Draft `json:"draft"`
	Phase  string       `json:"phase"`
	Notice string       `json:"notice,omitempty"`
	Error  string       `json:"error,omitempty"`
}

type DraftService interface {
	OpenForEdit(ctx context.Context, userID, workspaceID, postID int64) (*DraftView, error)
	OpenForNew(userID, workspaceID int64, date time.Time) *DraftView
	ReuseAsDraft(userID int64) (*DraftView, error)
	Close(userID int64)
	View(userID int64) (*DraftView, error)
	Store(userID int64) (*DraftStore, error)
}

type draftService struct {
	mu       sync.Mutex
	sessions map[int64]*composeSession
	cache    CalendarService
	fetcher  FullPostFetcher
	accounts AccountService
	spawn    func(fn func())
}

func NewDraftService(cache CalendarService, fetcher FullPostFetcher, accounts AccountService) DraftService {
	return &draftService{
		sessions: make(map[int64]*composeSession),
		cache:    cache,
		fetcher:  fetcher,
		accounts: accounts,
		spawn:    func(fn func()) { go fn() },
	}
}

func (s *draftService) session(userID int64) *composeSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &composeSession{store: NewDraftStore()}
		s.sessions[userID] = sess
	}
	return sess
}

// OpenForEdit hydrates the draft from the cached summary synchronously,
// then enriches from the full record in the background. Switching to a
// different post mid-session fully resets the tracking first.
func (s *draftService) OpenForEdit(ctx context.Context, userID, workspaceID, postID int64) (*DraftView, error) {
	if s.cache.IsLocked(postID) {
		return nil, ErrPostLocked
	}

	sess := s.session(userID)
	sess.mu.Lock()

	sess.store.Reset()
	sess.phase = hydrationEmpty
	sess.postID = postID
	sess.workspaceID = workspaceID
	sess.summary = nil
	sess.enriched = nil
	sess.notice = ""
	sess.blockingErr = nil

	summary, ok := s.cache.FindPost(workspaceID, postID)
	if ok {
		sess.applySummary(summary)
		s.accounts.Seed(summary.IntegrationID, summary.Platform, summary.AccountUsername)
	} else {
		// Deep link: no summary available, the enrichment acts as a
		// full initialization.
		sess.store.Update(func(d *models.Draft) {
			d.PostID = postID
			d.WorkspaceID = workspaceID
		})
	}

	view := sess.viewLocked()
	sess.mu.Unlock()

	s.spawn(func() { s.enrich(sess, postID, workspaceID) })

	return view, nil
}

// enrich fetches the authoritative record and merges it in, unless the
// session has moved on to a different post.
func (s *draftService) enrich(sess *composeSession, postID, workspaceID int64) {
	full, err := s.fetcher.GetFullPost(context.Background(), postID, workspaceID)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.postID != postID {
		// The editor already belongs to another post; discard.
		return
	}

	if err != nil {
		if sess.phase == hydrationEmpty {
			sess.blockingErr = fmt.Errorf("could not load post: %w", err)
		} else {
			sess.notice = "Some details could not be loaded. The editor shows summary data."
		}
		slog.Info(err.Error())
		return
	}
	if full == nil {
		if sess.phase == hydrationEmpty {
			sess.blockingErr = fmt.Errorf("post %d not found", postID)
		}
		return
	}

	sess.applyEnrichment(full)
}

// applySummary is the fast path: populate from calendar-card data only.
// The caller holds sess.mu.
func (sess *composeSession) applySummary(post *models.ScheduledPost) {
	sess.summary = post
	sess.phase = hydrationSummary

	sess.store.Update(func(d *models.Draft) {
		d.PostID = post.ID
		d.WorkspaceID = post.WorkspaceID
		d.Caption = post.Caption
		d.Platform = post.Platform
		d.IntegrationID = post.IntegrationID
		d.PostType = post.PostType

		uids := make([]string, 0, len(post.Media))
		for _, m := range post.Media {
			item := m
			if item.UID == "" {
				item.UID = gonanoid.Must()
			}
			d.Media = append(d.Media, item)
			uids = append(uids, item.UID)
		}
		if len(uids) > 0 {
			d.Selections[post.Platform] = uids
		}

		if post.Status == models.PostStatusScheduled && !post.ScheduledAt.IsZero() {
			d.ScheduledAt = post.ScheduledAt
			d.IsScheduling = true
		}
	})
}

// applyEnrichment merges the full record. When the session was already
// summary-hydrated, the caption, primary media selection, post type and
// selected account are left alone: they are already correct and may
// carry user edits. The caller holds sess.mu.
func (sess *composeSession) applyEnrichment(full *transfer.FullPostDetails) {
	wasSummary := sess.phase == hydrationSummary
	sess.enriched = full
	sess.phase = hydrationEnriched

	sess.store.Update(func(d *models.Draft) {
		if !wasSummary {
			d.PostID = full.ID
			d.WorkspaceID = full.WorkspaceID
			d.Caption = full.Caption
			d.Platform = full.Platform
			d.IntegrationID = full.IntegrationID
			d.PostType = full.PostType

			uids := make([]string, 0, len(full.Media))
			for _, m := range full.Media {
				item := m
				if item.UID == "" {
					item.UID = gonanoid.Must()
				}
				d.Media = append(d.Media, item)
				uids = append(uids, item.UID)
			}
			if len(uids) > 0 {
				d.Selections[full.Platform] = uids
			}

			if full.Status == models.PostStatusScheduled && !full.ScheduledAt.IsZero() {
				d.ScheduledAt = full.ScheduledAt
				d.IsScheduling = true
			}
		}

		// Data the summary never had is always fair to add.
		uidByAsset := make(map[int64]string, len(d.Media))
		for _, m := range d.Media {
			if m.AssetID != 0 {
				uidByAsset[m.AssetID] = m.UID
			}
		}
		for platform, chain := range full.Threads {
			if _, edited := d.PlatformThreads[platform]; edited {
				continue
			}
			msgs := make([]models.ThreadMessage, 0, len(chain))
			for idx, seg := range chain {
				msg := models.ThreadMessage{Text: seg.Text}
				for _, assetID := range seg.AssetIDs {
					uid, ok := uidByAsset[assetID]
					if !ok {
						item := mediaByAsset(full.Media, assetID)
						item.UID = gonanoid.Must()
						threadIdx := idx
						item.ThreadIndex = &threadIdx
						d.Media = append(d.Media, item)
						uidByAsset[assetID] = item.UID
						uid = item.UID
					}
					msg.MediaUIDs = append(msg.MediaUIDs, uid)
				}
				msgs = append(msgs, msg)
			}
			d.PlatformThreads[platform] = msgs
		}

		for platform, caption := range full.PlatformCaptions {
			if _, edited := d.PlatformCaptions[platform]; !edited {
				d.PlatformCaptions[platform] = caption
			}
		}
		for platform, title := range full.PlatformTitles {
			if _, edited := d.PlatformTitles[platform]; !edited {
				d.PlatformTitles[platform] = title
			}
		}
		for platform, text := range full.FirstComments {
			if _, edited := d.FirstComments[platform]; !edited {
				d.FirstComments[platform] = text
			}
		}
		if d.LinkURL == "" {
			d.LinkURL = full.LinkURL
		}
		if d.BoardID == "" {
			d.BoardID = full.BoardID
		}
		if d.LocationID == "" {
			d.LocationID = full.LocationID
			d.LocationName = full.LocationName
		}
		if len(d.UserTags) == 0 {
			d.UserTags = append([]string(nil), full.UserTags...)
		}
		if len(d.ProductTags) == 0 {
			d.ProductTags = append([]string(nil), full.ProductTags...)
		}
		if d.RecycleDays == 0 {
			d.RecycleDays = full.RecycleDays
		}
	})
}

func mediaByAsset(media []models.MediaItem, assetID int64) models.MediaItem {
	for _, m := range media {
		if m.AssetID == assetID {
			return m
		}
	}
	return models.MediaItem{AssetID: assetID, Type: models.MediaTypeImage}
}

func (s *draftService) OpenForNew(userID, workspaceID int64, date time.Time) *DraftView {
	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.store.Reset()
	sess.phase = hydrationEmpty
	sess.postID = 0
	sess.workspaceID = workspaceID
	sess.summary = nil
	sess.enriched = nil
	sess.notice = ""
	sess.blockingErr = nil

	sess.store.Update(func(d *models.Draft) {
		d.WorkspaceID = workspaceID
		if !date.IsZero() {
			d.ScheduledAt = time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, date.Location())
			d.IsScheduling = true
		}
	})

	return sess.viewLocked()
}

// ReuseAsDraft re-applies the richest record available but detaches it
// from the original post: scheduling resets to "unscheduled, now" and
// further edits create a new post.
func (s *draftService) ReuseAsDraft(userID int64) (*DraftView, error) {
	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.summary == nil && sess.enriched == nil {
		return nil, fmt.Errorf("nothing to reuse")
	}

	enriched := sess.enriched
	summary := sess.summary
	postID := sess.postID

	sess.store.Reset()
	sess.phase = hydrationEmpty
	sess.notice = ""
	sess.blockingErr = nil

	if enriched != nil && enriched.ID == postID {
		sess.applyEnrichment(enriched)
	} else if summary != nil {
		sess.applySummary(summary)
	}

	sess.postID = 0
	sess.store.Update(func(d *models.Draft) {
		d.PostID = 0
		d.ScheduledAt = time.Time{}
		d.IsScheduling = false
	})

	return sess.viewLocked(), nil
}

func (s *draftService) Close(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *draftService) View(userID int64) (*DraftView, error) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNoSession
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.viewLocked(), nil
}

func (s *draftService) Store(userID int64) (*DraftStore, error) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNoSession
	}
	return sess.store, nil
}

// viewLocked builds the render snapshot. The caller holds sess.mu.
func (sess *composeSession) viewLocked() *DraftView {
	view := &DraftView{
		Draft:  sess.store.Snapshot(),
		Phase:  sess.phase.String(),
		Notice: sess.notice,
	}
	if sess.blockingErr != nil {
		view.Error = sess.blockingErr.Error()
	}
	return view
}
