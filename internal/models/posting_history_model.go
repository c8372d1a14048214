package models

import "time"

type PostingHistory struct {
	ID           int64     `db:"id"`
	WorkspaceID  int64     `db:"workspace_id"`
	PostID       int64     `db:"post_id"`
	AccountID    int64     `db:"account_id"`
	ErrorMessage string    `db:"error_message"`
	CreatedAt    time.Time `db:"created_at"`
}
