package transfer

import (
	"time"

	"github.com/postdeck/calendar-engine/internal/models"
)

// FullPostDetails is the authoritative server record for one post: a
// superset of the calendar summary, carrying everything the compose form
// can edit.
type FullPostDetails struct {
	ID               int64                             `json:"id"`
	WorkspaceID      int64                             `json:"workspace_id"`
	Caption          string                            `json:"caption"`
	ScheduledAt      time.Time                         `json:"scheduled_at"`
	Status           string                            `json:"status"`
	Platform         string                            `json:"platform"`
	AccountUsername  string                            `json:"account_username"`
	IntegrationID    int64                             `json:"integration_id"`
	PostType         string                            `json:"post_type"`
	Media            []models.MediaItem                `json:"media"`
	AllMedia         map[string]models.MediaItem       `json:"all_media"` // keyed by source url
	PlatformCaptions map[string]string                 `json:"platform_captions"`
	PlatformTitles   map[string]string                 `json:"platform_titles"`
	Threads          map[string][]ThreadMessageDetails `json:"threads"`
	FirstComments    map[string]string                 `json:"first_comments"`
	LinkURL          string                            `json:"link_url"`
	BoardID          string                            `json:"board_id"`
	LocationID       string                            `json:"location_id"`
	LocationName     string                            `json:"location_name"`
	UserTags         []string                          `json:"user_tags"`
	ProductTags      []string                          `json:"product_tags"`
	RecycleDays      int                               `json:"recycle_days"`
}

// ThreadMessageDetails references media by asset id; the enrichment merge
// maps these onto compose-session uids.
type ThreadMessageDetails struct {
	Text     string  `json:"text"`
	AssetIDs []int64 `json:"asset_ids"`
}

// PostSettings is the JSONB blob persisted next to the post row. It holds
// everything the summary columns do not.
type PostSettings struct {
	PlatformCaptions map[string]string                 `json:"platform_captions,omitempty"`
	PlatformTitles   map[string]string                 `json:"platform_titles,omitempty"`
	Threads          map[string][]ThreadMessageDetails `json:"threads,omitempty"`
	FirstComments    map[string]string                 `json:"first_comments,omitempty"`
	LinkURL          string                            `json:"link_url,omitempty"`
	BoardID          string                            `json:"board_id,omitempty"`
	LocationID       string                            `json:"location_id,omitempty"`
	LocationName     string                            `json:"location_name,omitempty"`
	UserTags         []string                          `json:"user_tags,omitempty"`
	ProductTags      []string                          `json:"product_tags,omitempty"`
	RecycleDays      int                               `json:"recycle_days,omitempty"`
}
