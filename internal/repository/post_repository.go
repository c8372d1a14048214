package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/postdeck/calendar-engine/internal/models"
	"github.com/postdeck/calendar-engine/internal/transfer"
)

type PostRepository interface {
	GetByDateRange(ctx context.Context, workspaceID int64, start, end time.Time) ([]*models.ScheduledPost, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error)
	GetFullPost(ctx context.Context, postID, workspaceID int64) (*transfer.FullPostDetails, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost, settings *transfer.PostSettings) (int64, error)
	Update(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost, settings *transfer.PostSettings) error
	UpdateScheduledTime(ctx context.Context, postID int64, scheduledAt time.Time) error
	UpdateStatus(ctx context.Context, status string, postID int64) error
	CheckByWorkspace(ctx context.Context, postID, workspaceID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, workspace_id, caption, scheduled_at, status, platform, account_username, integration_id, post_type, labels, thread_size, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	var scheduledAt sql.NullTime
	err := row.Scan(
		&post.ID,
		&post.WorkspaceID,
		&post.Caption,
		&scheduledAt,
		&post.Status,
		&post.Platform,
		&post.AccountUsername,
		&post.IntegrationID,
		&post.PostType,
		pq.Array(&post.Labels),
		&post.ThreadSize,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if scheduledAt.Valid {
		post.ScheduledAt = scheduledAt.Time
	}
	return &post, nil
}

func (r *postRepository) GetByDateRange(ctx context.Context, workspaceID int64, start, end time.Time) ([]*models.ScheduledPost, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE workspace_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at
	`

	rows, err := r.db.QueryContext(ctx, query, workspaceID, start, end)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	for _, post := range posts {
		media, err := r.mediaForPost(ctx, post.ID)
		if err != nil {
			return nil, err
		}
		post.Media = media
	}

	return posts, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	media, err := r.mediaForPost(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Media = media

	return post, nil
}

func (r *postRepository) GetFullPost(ctx context.Context, postID, workspaceID int64) (*transfer.FullPostDetails, error) {
	query := `
		SELECT ` + postColumns + `, settings
		FROM posts
		WHERE id = $1 AND workspace_id = $2
	`

	var post models.ScheduledPost
	var scheduledAt sql.NullTime
	var settingsRaw []byte
	err := r.db.QueryRowContext(ctx, query, postID, workspaceID).Scan(
		&post.ID,
		&post.WorkspaceID,
		&post.Caption,
		&scheduledAt,
		&post.Status,
		&post.Platform,
		&post.AccountUsername,
		&post.IntegrationID,
		&post.PostType,
		pq.Array(&post.Labels),
		&post.ThreadSize,
		&post.CreatedAt,
		&post.UpdatedAt,
		&settingsRaw,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	if scheduledAt.Valid {
		post.ScheduledAt = scheduledAt.Time
	}

	var settings transfer.PostSettings
	if len(settingsRaw) > 0 {
		if err := json.Unmarshal(settingsRaw, &settings); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
	}

	media, err := r.mediaForPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	allMedia := make(map[string]models.MediaItem, len(media))
	for _, m := range media {
		allMedia[m.SourceURL] = m
	}

	return &transfer.FullPostDetails{
		ID:               post.ID,
		WorkspaceID:      post.WorkspaceID,
		Caption:          post.Caption,
		ScheduledAt:      post.ScheduledAt,
		Status:           post.Status,
		Platform:         post.Platform,
		AccountUsername:  post.AccountUsername,
		IntegrationID:    post.IntegrationID,
		PostType:         post.PostType,
		Media:            media,
		AllMedia:         allMedia,
		PlatformCaptions: settings.PlatformCaptions,
		PlatformTitles:   settings.PlatformTitles,
		Threads:          settings.Threads,
		FirstComments:    settings.FirstComments,
		LinkURL:          settings.LinkURL,
		BoardID:          settings.BoardID,
		LocationID:       settings.LocationID,
		LocationName:     settings.LocationName,
		UserTags:         settings.UserTags,
		ProductTags:      settings.ProductTags,
		RecycleDays:      settings.RecycleDays,
	}, nil
}

func (r *postRepository) mediaForPost(ctx context.Context, postID int64) ([]models.MediaItem, error) {
	query := `
		SELECT ma.id, pm.media_type, ma.file_url, ma.thumbnail_url, pm.thread_index
		FROM post_media pm
		JOIN media_assets ma ON ma.id = pm.asset_id
		WHERE pm.post_id = $1
		ORDER BY pm.display_order
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var media []models.MediaItem
	for rows.Next() {
		var m models.MediaItem
		var thumbnail sql.NullString
		var threadIndex sql.NullInt64
		if err := rows.Scan(&m.AssetID, &m.Type, &m.SourceURL, &thumbnail, &threadIndex); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		m.PreviewURL = m.SourceURL
		if thumbnail.Valid && thumbnail.String != "" {
			m.PreviewURL = thumbnail.String
		}
		if threadIndex.Valid {
			idx := int(threadIndex.Int64)
			m.ThreadIndex = &idx
		}
		media = append(media, m)
	}
	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return media, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost, settings *transfer.PostSettings) (int64, error) {
	settingsRaw, err := json.Marshal(settings)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	query := `
		INSERT INTO posts (workspace_id, caption, scheduled_at, status, platform, account_username, integration_id, post_type, labels, thread_size, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	var scheduledAt any
	if !post.ScheduledAt.IsZero() {
		scheduledAt = post.ScheduledAt
	}

	var id int64
	args := []any{post.WorkspaceID, post.Caption, scheduledAt, post.Status, post.Platform, post.AccountUsername, post.IntegrationID, post.PostType, pq.Array(post.Labels), post.ThreadSize, settingsRaw}
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) Update(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost, settings *transfer.PostSettings) error {
	settingsRaw, err := json.Marshal(settings)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		UPDATE posts
		SET caption = $1,
			scheduled_at = $2,
			status = $3,
			platform = $4,
			integration_id = $5,
			post_type = $6,
			labels = $7,
			thread_size = $8,
			settings = $9,
			updated_at = $10
		WHERE id = $11 AND workspace_id = $12
	`

	var scheduledAt any
	if !post.ScheduledAt.IsZero() {
		scheduledAt = post.ScheduledAt
	}

	args := []any{post.Caption, scheduledAt, post.Status, post.Platform, post.IntegrationID, post.PostType, pq.Array(post.Labels), post.ThreadSize, settingsRaw, time.Now(), post.ID, post.WorkspaceID}
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *postRepository) UpdateScheduledTime(ctx context.Context, postID int64, scheduledAt time.Time) error {
	query := `
		UPDATE posts
		SET scheduled_at = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, scheduledAt, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, status string, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CheckByWorkspace(ctx context.Context, postID, workspaceID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND workspace_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, workspaceID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)

	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
