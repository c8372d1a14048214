package models

import "time"

// Draft is the single in-progress composition for a compose session.
type Draft struct {
	PostID           int64                      `json:"post_id"` // 0 while composing a new post
	WorkspaceID      int64                      `json:"workspace_id"`
	Caption          string                     `json:"caption"`
	PlatformCaptions map[string]string          `json:"platform_captions"`
	PlatformTitles   map[string]string          `json:"platform_titles"`
	Thread           []ThreadMessage            `json:"thread"` // generic chain, pre-platform-specific default
	PlatformThreads  map[string][]ThreadMessage `json:"platform_threads"`
	Media            []MediaItem                `json:"media"`      // shared staged pool
	Selections       map[string][]string        `json:"selections"` // platform to ordered media uids
	ScheduledAt      time.Time                  `json:"scheduled_at"`
	IsScheduling     bool                       `json:"is_scheduling"`
	FirstComments    map[string]string          `json:"first_comments"`
	LinkURL          string                     `json:"link_url"`
	BoardID          string                     `json:"board_id"`
	LocationID       string                     `json:"location_id"`
	LocationName     string                     `json:"location_name"`
	PostType         string                     `json:"post_type"`
	Platform         string                     `json:"platform"`
	IntegrationID    int64                      `json:"integration_id"`
	UserTags         []string                   `json:"user_tags,omitempty"`
	ProductTags      []string                   `json:"product_tags,omitempty"`
	RecycleDays      int                        `json:"recycle_days"`
}

// ThreadMessage is one segment of a chained post. Position is positional
// in the containing slice; no explicit order field is stored.
type ThreadMessage struct {
	Text      string   `json:"text"`
	MediaUIDs []string `json:"media_uids"`
}

const MaxThreadLength = 20

type Location struct {
	ID      string  `db:"id" json:"id"`
	Name    string  `db:"name" json:"name"`
	Address string  `db:"address" json:"address"`
	Lat     float64 `db:"lat" json:"lat"`
	Lng     float64 `db:"lng" json:"lng"`
}
