package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/postdeck/calendar-engine/internal/models"
	"github.com/postdeck/calendar-engine/internal/repository"
	"github.com/postdeck/calendar-engine/internal/transfer"
)

// PostService serializes a draft back through the persistence boundary
// and keeps the calendar cache honest afterwards.
type PostService interface {
	SaveDraft(ctx context.Context, workspaceID int64, draft models.Draft) (postID int64, delay time.Duration, scheduled bool, err error)
	Remove(ctx context.Context, workspaceID, postID int64) error
}

type postService struct {
	db    *sql.DB
	pr    repository.PostRepository
	pm    repository.PostMediaRepository
	ac    repository.SocialAccountRepository
	cache CalendarService
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	pm repository.PostMediaRepository,
	ac repository.SocialAccountRepository,
	cache CalendarService) PostService {
	return &postService{
		db:    db,
		pr:    pr,
		pm:    pm,
		ac:    ac,
		cache: cache,
	}
}

func (s *postService) SaveDraft(ctx context.Context, workspaceID int64, draft models.Draft) (int64, time.Duration, bool, error) {
	if draft.Caption == "" {
		err := errors.New("caption cannot be empty")
		slog.Info(err.Error())
		return 0, 0, false, err
	}
	if draft.IntegrationID == 0 {
		err := errors.New("no social account selected")
		slog.Info(err.Error())
		return 0, 0, false, err
	}

	exists, err := s.ac.CheckByWorkspaceID(ctx, draft.IntegrationID, workspaceID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("error checking social account %d: %w", draft.IntegrationID, err)
	}
	if !exists {
		return 0, 0, false, fmt.Errorf("social account %d does not exist", draft.IntegrationID)
	}

	post, settings := serializeDraft(workspaceID, draft)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	postID := draft.PostID
	if postID == 0 {
		postID, err = s.pr.Create(ctx, tx, post, settings)
		if err != nil {
			return 0, 0, false, fmt.Errorf("error creating post: %w", err)
		}
	} else {
		post.ID = postID
		if err = s.pr.Update(ctx, tx, post, settings); err != nil {
			return 0, 0, false, fmt.Errorf("error updating post: %w", err)
		}
		if err = s.pm.RemoveByPostID(ctx, tx, postID); err != nil {
			return 0, 0, false, fmt.Errorf("error clearing media rows: %w", err)
		}
	}

	if err = s.saveMediaRows(ctx, tx, postID, draft); err != nil {
		return 0, 0, false, fmt.Errorf("error saving media rows: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// The cached ranges no longer reflect the saved record.
	s.cache.Invalidate(workspaceID)

	if post.Status != models.PostStatusScheduled {
		return postID, 0, false, nil
	}

	delay := time.Until(post.ScheduledAt)
	if delay < 0 {
		delay = 0
	}
	return postID, delay, true, nil
}

func serializeDraft(workspaceID int64, draft models.Draft) (*models.ScheduledPost, *transfer.PostSettings) {
	status := models.PostStatusDraft
	scheduledAt := time.Time{}
	if draft.IsScheduling && !draft.ScheduledAt.IsZero() {
		status = models.PostStatusScheduled
		scheduledAt = draft.ScheduledAt
	}

	postType := draft.PostType
	if postType == "" {
		postType = models.PostTypeSingle
		if len(draft.Selections[draft.Platform]) > 1 {
			postType = models.PostTypeCarousel
		}
	}

	threads := make(map[string][]transfer.ThreadMessageDetails)
	threadSize := 0
	assetByUID := make(map[string]int64, len(draft.Media))
	for _, m := range draft.Media {
		assetByUID[m.UID] = m.AssetID
	}
	for platform, chain := range draft.PlatformThreads {
		var out []transfer.ThreadMessageDetails
		for _, seg := range chain {
			detail := transfer.ThreadMessageDetails{Text: seg.Text}
			for _, uid := range seg.MediaUIDs {
				if assetID := assetByUID[uid]; assetID != 0 {
					detail.AssetIDs = append(detail.AssetIDs, assetID)
				}
			}
			out = append(out, detail)
		}
		threads[platform] = out
		if len(out) > threadSize {
			threadSize = len(out)
		}
	}

	post := &models.ScheduledPost{
		ID:            draft.PostID,
		WorkspaceID:   workspaceID,
		Caption:       draft.Caption,
		ScheduledAt:   scheduledAt,
		Status:        status,
		Platform:      draft.Platform,
		IntegrationID: draft.IntegrationID,
		PostType:      postType,
		ThreadSize:    threadSize,
	}

	settings := &transfer.PostSettings{
		PlatformCaptions: draft.PlatformCaptions,
		PlatformTitles:   draft.PlatformTitles,
		Threads:          threads,
		FirstComments:    draft.FirstComments,
		LinkURL:          draft.LinkURL,
		BoardID:          draft.BoardID,
		LocationID:       draft.LocationID,
		LocationName:     draft.LocationName,
		UserTags:         draft.UserTags,
		ProductTags:      draft.ProductTags,
		RecycleDays:      draft.RecycleDays,
	}

	return post, settings
}

// saveMediaRows writes the primary platform selection in carousel
// order. Items still waiting on their upload round trip have no asset
// id yet and are skipped.
func (s *postService) saveMediaRows(ctx context.Context, tx *sql.Tx, postID int64, draft models.Draft) error {
	itemByUID := make(map[string]models.MediaItem, len(draft.Media))
	for _, m := range draft.Media {
		itemByUID[m.UID] = m
	}

	order := 0
	for _, uid := range draft.Selections[draft.Platform] {
		item, ok := itemByUID[uid]
		if !ok || item.AssetID == 0 {
			continue
		}
		pm := models.PostMedia{
			PostID:       postID,
			AssetID:      item.AssetID,
			MediaType:    item.Type,
			DisplayOrder: order,
			ThreadIndex:  item.ThreadIndex,
		}
		if err := s.pm.Create(ctx, tx, &pm); err != nil {
			return err
		}
		order++
	}
	return nil
}

func (s *postService) Remove(ctx context.Context, workspaceID, postID int64) error {
	if workspaceID == 0 || postID == 0 {
		err := errors.New("post_id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByWorkspace(ctx, postID, workspaceID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return err
	}

	if err = s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}

	s.cache.RemovePost(workspaceID, postID)
	return nil
}
