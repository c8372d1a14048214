package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postdeck/calendar-engine/internal/models"
)

type PostMediaRepository interface {
	Create(ctx context.Context, tx *sql.Tx, pm *models.PostMedia) error
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostMedia, error)
	RemoveByPostID(ctx context.Context, tx *sql.Tx, postID int64) error
}

type postMediaRepository struct {
	db *sql.DB
}

func NewPostMediaRepository(db *sql.DB) PostMediaRepository {
	return &postMediaRepository{db: db}
}

func (r *postMediaRepository) Create(ctx context.Context, tx *sql.Tx, pm *models.PostMedia) error {
	var err error

	query := `
		INSERT INTO post_media (post_id, asset_id, media_type, display_order, thread_index)
		VALUES ($1, $2, $3, $4, $5)
	`
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, pm.PostID, pm.AssetID, pm.MediaType, pm.DisplayOrder, pm.ThreadIndex)
	} else {
		_, err = r.db.ExecContext(ctx, query, pm.PostID, pm.AssetID, pm.MediaType, pm.DisplayOrder, pm.ThreadIndex)
	}

	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *postMediaRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostMedia, error) {
	query := `
		SELECT post_id, asset_id, media_type, display_order, thread_index
		FROM post_media
		WHERE post_id = $1
		ORDER BY display_order
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var postMedias []*models.PostMedia
	for rows.Next() {
		var pm models.PostMedia
		var threadIndex sql.NullInt64
		if err := rows.Scan(&pm.PostID, &pm.AssetID, &pm.MediaType, &pm.DisplayOrder, &threadIndex); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if threadIndex.Valid {
			idx := int(threadIndex.Int64)
			pm.ThreadIndex = &idx
		}
		postMedias = append(postMedias, &pm)
	}

	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return postMedias, nil
}

func (r *postMediaRepository) RemoveByPostID(ctx context.Context, tx *sql.Tx, postID int64) error {
	var err error

	query := `
		DELETE FROM post_media
		WHERE post_id = $1
	`
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, postID)
	} else {
		_, err = r.db.ExecContext(ctx, query, postID)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}
