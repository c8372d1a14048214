package queue

import (
	"github.com/postdeck/calendar-engine/internal/repository"
	"github.com/postdeck/calendar-engine/internal/service"
)

type Queue struct {
	pr    repository.PostRepository
	ac    repository.SocialAccountRepository
	ph    repository.PostingHistoryRepository
	cache service.CalendarService
}

func NewQueue(
	pr repository.PostRepository,
	ac repository.SocialAccountRepository,
	ph repository.PostingHistoryRepository,
	cache service.CalendarService) *Queue {
	return &Queue{
		pr:    pr,
		ac:    ac,
		ph:    ph,
		cache: cache,
	}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID      int64 `json:"post_id"`
	WorkspaceID int64 `json:"workspace_id"`
}
