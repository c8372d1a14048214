package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/postdeck/calendar-engine/internal/models"
	"github.com/postdeck/calendar-engine/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFullPostFetcher struct {
	mu    sync.Mutex
	byID  map[int64]*transfer.FullPostDetails
	err   error
	calls int
}

func (f *fakeFullPostFetcher) GetFullPost(ctx context.Context, postID, workspaceID int64) (*transfer.FullPostDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byID[postID], nil
}

type fakeAccounts struct {
	seeded []int64
}

func (f *fakeAccounts) List(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error) {
	return nil, nil
}
func (f *fakeAccounts) Get(integrationID int64) (*models.SocialAccount, bool) { return nil, false }
func (f *fakeAccounts) Seed(integrationID int64, platform, username string) {
	f.seeded = append(f.seeded, integrationID)
}
func (f *fakeAccounts) Put(account *models.SocialAccount) {}

type draftFixture struct {
	cache    *calendarService
	fetcher  *fakeFullPostFetcher
	accounts *fakeAccounts
	svc      *draftService
	pending  []func()
}

// newDraftFixture defers enrichment: tests run the captured funcs when
// the scenario calls for it.
func newDraftFixture(t *testing.T, cached []*models.ScheduledPost, full map[int64]*transfer.FullPostDetails) *draftFixture {
	t.Helper()

	f := &fakeRangeFetcher{posts: cached}
	cache, _ := newTestCalendar(f)
	if len(cached) > 0 {
		_, err := cache.Range(context.Background(), 1, "month", calTestBase, calTestBase.AddDate(0, 1, 0))
		require.NoError(t, err)
	}

	fx := &draftFixture{
		cache:    cache,
		fetcher:  &fakeFullPostFetcher{byID: full},
		accounts: &fakeAccounts{},
	}
	fx.svc = NewDraftService(cache, fx.fetcher, fx.accounts).(*draftService)
	fx.svc.spawn = func(fn func()) { fx.pending = append(fx.pending, fn) }
	return fx
}

func (fx *draftFixture) runEnrichments() {
	for _, fn := range fx.pending {
		fn()
	}
	fx.pending = nil
}

func summaryPost() *models.ScheduledPost {
	return &models.ScheduledPost{
		ID:            10,
		WorkspaceID:   1,
		Caption:       "summary caption",
		ScheduledAt:   time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC),
		Status:        models.PostStatusScheduled,
		Platform:      "instagram",
		IntegrationID: 5,
		PostType:      models.PostTypeSingle,
		Media: []models.MediaItem{
			{UID: "m-1", AssetID: 100, Type: models.MediaTypeImage, PreviewURL: "https://cdn/m1.jpg"},
		},
	}
}

func fullDetails() *transfer.FullPostDetails {
	return &transfer.FullPostDetails{
		ID:            10,
		WorkspaceID:   1,
		Caption:       "summary caption",
		ScheduledAt:   time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC),
		Status:        models.PostStatusScheduled,
		Platform:      "instagram",
		IntegrationID: 5,
		PostType:      models.PostTypeSingle,
		Media: []models.MediaItem{
			{UID: "m-1", AssetID: 100, Type: models.MediaTypeImage, PreviewURL: "https://cdn/m1.jpg"},
		},
		PlatformCaptions: map[string]string{"x": "short version"},
		FirstComments:    map[string]string{"instagram": "link in bio"},
		LinkURL:          "https://example.com/launch",
	}
}

func TestOpenForEditHydratesFromSummaryFirst(t *testing.T) {
	fx := newDraftFixture(t, []*models.ScheduledPost{summaryPost()},
		map[int64]*transfer.FullPostDetails{10: fullDetails()})

	view, err := fx.svc.OpenForEdit(context.Background(), 42, 1, 10)
	require.NoError(t, err)

	// The summary pass is synchronous: the form is editable right away.
	assert.Equal(t, "summary", view.Phase)
	assert.Equal(t, "summary caption", view.Draft.Caption)
	assert.Equal(t, []string{"m-1"}, view.Draft.Selections["instagram"])
	assert.True(t, view.Draft.IsScheduling)
	assert.Equal(t, []int64{5}, fx.accounts.seeded)

	fx.runEnrichments()

	view, err = fx.svc.View(42)
	require.NoError(t, err)
	assert.Equal(t, "enriched", view.Phase)
	assert.Equal(t, "short version", view.Draft.PlatformCaptions["x"])
	assert.Equal(t, "link in bio", view.Draft.FirstComments["instagram"])
	assert.Equal(t, "https://example.com/launch", view.Draft.LinkURL)
}

func TestOpenForEditIsIdempotent(t *testing.T) {
	fx := newDraftFixture(t, []*models.ScheduledPost{summaryPost()},
		map[int64]*transfer.FullPostDetails{10: fullDetails()})

	first, err := fx.svc.OpenForEdit(context.Background(), 42, 1, 10)
	require.NoError(t, err)
	fx.runEnrichments()

	second, err := fx.svc.OpenForEdit(context.Background(), 42, 1, 10)
	require.NoError(t, err)

	assert.Equal(t, first.Draft, second.Draft)
	assert.Equal(t, "summary", second.Phase)
}

func TestEnrichmentNeverClobbersUserEdits(t *testing.T) {
	fx := newDraftFixture(t, []*models.ScheduledPost{summaryPost()},
		map[int64]*transfer.FullPostDetails{10: fullDetails()})

	_, err := fx.svc.OpenForEdit(context.Background(), 42, 1, 10)
	require.NoError(t, err)

	store, err := fx.svc.Store(42)
	require.NoError(t, err)
	store.SetCaption("user rewrote this")
	store.SetPlatformCaption("x", "user x caption")

	fx.runEnrichments()

	view, err := fx.svc.View(42)
	require.NoError(t, err)
	assert.Equal(t, "enriched", view.Phase)
	assert.Equal(t, "user rewrote this", view.Draft.Caption)
	assert.Equal(t, "user x caption", view.Draft.PlatformCaptions["x"])
	// Fields the user never touched still arrive from the full record.
	assert.Equal(t, "https://example.com/launch", view.Draft.LinkURL)
}

func TestStaleEnrichmentIsDiscarded(t *testing.T) {
	postB := summaryPost()
	postB.ID = 11
	postB.Caption = "second post"
	postB.Media = nil
	fullB := fullDetails()
	fullB.ID = 11
	fullB.Caption = "second post"

	fx := newDraftFixture(t, []*models.ScheduledPost{summaryPost(), postB},
		map[int64]*transfer.FullPostDetails{10: fullDetails(), 11: fullB})

	_, err := fx.svc.OpenForEdit(context.Background(), 42, 1, 10)
	require.NoError(t, err)
	enrichA := fx.pending[0]
	fx.pending = nil

	_, err = fx.svc.OpenForEdit(context.Background(), 42, 1, 11)
	require.NoError(t, err)

	// Post A's fetch finishes after the switch; its payload is dropped.
	enrichA()

	view, err := fx.svc.View(42)
	require.NoError(t, err)
	assert.Equal(t, "summary", view.Phase)
	assert.Equal(t, "second post", view.Draft.Caption)
	assert.Empty(t, view.Draft.LinkURL)
}

func TestOpenForEditDeepLink(t *testing.T) {
	// Nothing cached: the enrichment acts as the full initialization.
	fx := newDraftFixture(t, nil, map[int64]*transfer.FullPostDetails{10: fullDetails()})

	view, err := fx.svc.OpenForEdit(context.Background(), 42, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "empty", view.Phase)
	assert.Empty(t, view.Draft.Caption)

	fx.runEnrichments()

	view, err = fx.svc.View(42)
	require.NoError(t, err)
	assert.Equal(t, "enriched", view.Phase)
	assert.Equal(t, "summary caption", view.Draft.Caption)
	assert.Equal(t, []string{"m-1"}, view.Draft.Selections["instagram"])
	assert.True(t, view.Draft.IsScheduling)
}

func TestEnrichmentThreadsGetSessionUIDs(t *testing.T) {
	full := fullDetails()
	full.Media = append(full.Media, models.MediaItem{AssetID: 200, Type: models.MediaTypeImage})
	full.Threads = map[string][]transfer.ThreadMessageDetails{
		"x": {
			{Text: "lead", AssetIDs: []int64{100}},
			{Text: "follow-up", AssetIDs: []int64{200}},
		},
	}

	fx := newDraftFixture(t, []*models.ScheduledPost{summaryPost()},
		map[int64]*transfer.FullPostDetails{10: full})

	_, err := fx.svc.OpenForEdit(context.Background(), 42, 1, 10)
	require.NoError(t, err)
	fx.runEnrichments()

	view, err := fx.svc.View(42)
	require.NoError(t, err)

	chain := view.Draft.PlatformThreads["x"]
	require.Len(t, chain, 2)
	// Asset 100 was already staged from the summary; its uid is reused.
	assert.Equal(t, []string{"m-1"}, chain[0].MediaUIDs)
	// Asset 200 is new: it gets a fresh uid and joins the staged pool.
	require.Len(t, chain[1].MediaUIDs, 1)
	uid := chain[1].MediaUIDs[0]
	assert.NotEmpty(t, uid)

	var found bool
	for _, m := range view.Draft.Media {
		if m.UID == uid {
			found = true
			assert.Equal(t, int64(200), m.AssetID)
		}
	}
	assert.True(t, found)
}

func TestEnrichmentKeepsUserTypedThreads(t *testing.T) {
	full := fullDetails()
	full.Threads = map[string][]transfer.ThreadMessageDetails{
		"x":       {{Text: "server lead"}},
		"threads": {{Text: "server intro"}, {Text: "server follow-up"}},
	}

	fx := newDraftFixture(t, []*models.ScheduledPost{summaryPost()},
		map[int64]*transfer.FullPostDetails{10: full})

	_, err := fx.svc.OpenForEdit(context.Background(), 42, 1, 10)
	require.NoError(t, err)

	// The user starts typing a thread before the full record arrives.
	store, err := fx.svc.Store(42)
	require.NoError(t, err)
	threads := NewThreadService(NewMediaSelectionService())
	require.NoError(t, threads.AddSegment(store, "x"))
	require.NoError(t, threads.UpdateSegmentText(store, "x", 0, "user typed this"))

	fx.runEnrichments()

	view, err := fx.svc.View(42)
	require.NoError(t, err)

	edited := view.Draft.PlatformThreads["x"]
	require.Len(t, edited, 1)
	assert.Equal(t, "user typed this", edited[0].Text)

	// A platform the user never touched still receives the stored chain.
	untouched := view.Draft.PlatformThreads["threads"]
	require.Len(t, untouched, 2)
	assert.Equal(t, "server intro", untouched[0].Text)
}

func TestEnrichmentFailureAfterSummaryIsNonBlocking(t *testing.T) {
	fx := newDraftFixture(t, []*models.ScheduledPost{summaryPost()}, nil)
	fx.fetcher.err = errors.New("db down")

	_, err := fx.svc.OpenForEdit(context.Background(), 42, 1, 10)
	require.NoError(t, err)
	fx.runEnrichments()

	view, err := fx.svc.View(42)
	require.NoError(t, err)
	assert.Equal(t, "summary", view.Phase)
	assert.NotEmpty(t, view.Notice)
	assert.Empty(t, view.Error)
	// The summary data stays editable.
	assert.Equal(t, "summary caption", view.Draft.Caption)
}

func TestEnrichmentFailureOnDeepLinkBlocks(t *testing.T) {
	fx := newDraftFixture(t, nil, nil)
	fx.fetcher.err = errors.New("db down")

	_, err := fx.svc.OpenForEdit(context.Background(), 42, 1, 10)
	require.NoError(t, err)
	fx.runEnrichments()

	view, err := fx.svc.View(42)
	require.NoError(t, err)
	assert.Equal(t, "empty", view.Phase)
	assert.NotEmpty(t, view.Error)
}

func TestOpenForEditRefusedWhileLocked(t *testing.T) {
	fx := newDraftFixture(t, []*models.ScheduledPost{summaryPost()}, nil)
	fx.cache.TryLock(10)

	_, err := fx.svc.OpenForEdit(context.Background(), 42, 1, 10)
	assert.ErrorIs(t, err, ErrPostLocked)
}

func TestOpenForNew(t *testing.T) {
	fx := newDraftFixture(t, nil, nil)

	view := fx.svc.OpenForNew(42, 1, day(2025, 1, 20))
	assert.Equal(t, "empty", view.Phase)
	assert.Equal(t, time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC), view.Draft.ScheduledAt)
	assert.True(t, view.Draft.IsScheduling)
	assert.Equal(t, int64(1), view.Draft.WorkspaceID)

	// No enrichment for a blank draft.
	assert.Empty(t, fx.pending)
}

func TestReuseAsDraftDetachesFromOriginal(t *testing.T) {
	fx := newDraftFixture(t, []*models.ScheduledPost{summaryPost()},
		map[int64]*transfer.FullPostDetails{10: fullDetails()})

	_, err := fx.svc.OpenForEdit(context.Background(), 42, 1, 10)
	require.NoError(t, err)
	fx.runEnrichments()

	view, err := fx.svc.ReuseAsDraft(42)
	require.NoError(t, err)

	assert.Equal(t, int64(0), view.Draft.PostID)
	assert.True(t, view.Draft.ScheduledAt.IsZero())
	assert.False(t, view.Draft.IsScheduling)
	// Content survives the detach.
	assert.Equal(t, "summary caption", view.Draft.Caption)
	assert.Equal(t, "https://example.com/launch", view.Draft.LinkURL)
}

func TestReuseWithNothingOpen(t *testing.T) {
	fx := newDraftFixture(t, nil, nil)

	_, err := fx.svc.ReuseAsDraft(42)
	assert.Error(t, err)
}

func TestCloseDropsSession(t *testing.T) {
	fx := newDraftFixture(t, []*models.ScheduledPost{summaryPost()}, nil)

	_, err := fx.svc.OpenForEdit(context.Background(), 42, 1, 10)
	require.NoError(t, err)

	fx.svc.Close(42)

	_, err = fx.svc.View(42)
	assert.Error(t, err)
}
