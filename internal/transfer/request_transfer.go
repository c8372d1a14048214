package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type DropRequest struct {
	WorkspaceID int64  `json:"workspace_id"`
	PostID      int64  `json:"post_id"`
	Day         string `json:"day"` // 2006-01-02
}

type ConfirmDropRequest struct {
	PostID int64 `json:"post_id"`
}

type RemovePostRequest struct {
	WorkspaceID int64 `json:"workspace_id"`
	PostID      int64 `json:"post_id"`
}

type OpenDraftRequest struct {
	WorkspaceID int64 `json:"workspace_id"`
	PostID      int64 `json:"post_id"`
}

type NewDraftRequest struct {
	WorkspaceID int64  `json:"workspace_id"`
	Date        string `json:"date"` // 2006-01-02, optional
}

type CaptionRequest struct {
	Platform string `json:"platform,omitempty"` // empty for the main caption
	Caption  string `json:"caption"`
}

type ScheduleRequest struct {
	ScheduledAt  string `json:"scheduled_at"` // RFC 3339, empty to unschedule
	IsScheduling bool   `json:"is_scheduling"`
}

type ToggleMediaRequest struct {
	Platform    string `json:"platform"`
	UID         string `json:"uid"`
	ThreadIndex *int   `json:"thread_index,omitempty"`
}

type ThreadSegmentRequest struct {
	Platform string `json:"platform"`
	Index    int    `json:"index"`
	Text     string `json:"text"`
}
