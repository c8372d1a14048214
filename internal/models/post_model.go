package models

import "time"

type ScheduledPost struct {
	ID              int64       `db:"id" json:"id"`
	WorkspaceID     int64       `db:"workspace_id" json:"workspace_id"`
	Caption         string      `db:"caption" json:"caption"`
	ScheduledAt     time.Time   `db:"scheduled_at" json:"scheduled_at"` // zero when the post has no destination time yet
	Status          string      `db:"status" json:"status"`
	Platform        string      `db:"platform" json:"platform"`
	AccountUsername string      `db:"account_username" json:"account_username"`
	IntegrationID   int64       `db:"integration_id" json:"integration_id"`
	PostType        string      `db:"post_type" json:"post_type"`
	Labels          []string    `json:"labels,omitempty"`
	ApproverIDs     []int64     `json:"approver_ids,omitempty"`
	ApprovalID      int64       `json:"approval_id,omitempty"`
	Media           []MediaItem `json:"media"`
	ThreadSize      int         `db:"thread_size" json:"thread_size"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// MediaItem carries a compose-session-local uid alongside the asset id.
// AssetID stays 0 until the upload round trip completes.
type MediaItem struct {
	UID             string               `json:"uid"`
	AssetID         int64                `json:"asset_id,omitempty"`
	Type            string               `json:"type"` // image, video
	PreviewURL      string               `json:"preview_url"`
	SourceURL       string               `json:"source_url,omitempty"`
	Crops           map[string]MediaCrop `json:"crops,omitempty"`
	CroppedPreviews map[string]string    `json:"cropped_previews,omitempty"`
	ThreadIndex     *int                 `json:"thread_index,omitempty"`
}

type MediaCrop struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type MediaAsset struct {
	ID           int64     `db:"id"`
	WorkspaceID  int64     `db:"workspace_id"`
	FileName     string    `db:"file_name"`
	FileType     string    `db:"file_type"`
	FileSize     int64     `db:"file_size"`
	FileURL      string    `db:"file_url"`
	ThumbnailURL string    `db:"thumbnail_url"`
	CreatedAt    time.Time `db:"created_at"`
}

type PostMedia struct {
	PostID       int64     `db:"post_id"`
	AssetID      int64     `db:"asset_id"`
	MediaType    string    `db:"media_type"`
	DisplayOrder int       `db:"display_order"`
	ThreadIndex  *int      `db:"thread_index"`
	CreatedAt    time.Time `db:"created_at"`
}

// CalendarFilters is a pure view predicate over cached posts.
type CalendarFilters struct {
	Statuses []string `json:"statuses,omitempty"`
	Channels []string `json:"channels,omitempty"`
	Labels   []string `json:"labels,omitempty"`
}

const (
	PostStatusDraft           = "draft"
	PostStatusScheduled       = "scheduled"
	PostStatusSent            = "sent"
	PostStatusFailed          = "failed"
	PostStatusCancelled       = "cancelled"
	PostStatusPendingApproval = "pending_approval"
	PostStatusRejected        = "rejected"
)

const (
	PostTypeSingle   = "single"
	PostTypeCarousel = "carousel"
	PostTypeThread   = "thread"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)
