package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
	"github.com/postdeck/calendar-engine/internal/models"
)

func (j *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return j.PublishPost(payload.PostID, payload.WorkspaceID)
}

// PublishPost drives the status transition for a due post. The actual
// per-platform API call happens behind the publishing boundary; this
// worker records the handoff and keeps the calendar cache honest.
func (j *Queue) PublishPost(postID, workspaceID int64) error {
	ctx := context.Background()

	post, err := j.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		log.Printf("PostID %d no longer exists, skipping publish", postID)
		return nil
	}
	if post.Status != models.PostStatusScheduled {
		log.Printf("PostID %d is %s, skipping publish", postID, post.Status)
		return nil
	}

	account, err := j.ac.GetByID(ctx, post.IntegrationID)
	if err != nil {
		log.Printf("Error retrieving social account for PostID %d: %v", postID, err)
	}

	status := models.PostStatusSent
	errorMessage := ""
	if account == nil {
		status = models.PostStatusFailed
		errorMessage = "social account is no longer connected"
	}

	if err := j.pr.UpdateStatus(ctx, status, postID); err != nil {
		return err
	}

	history := models.PostingHistory{
		WorkspaceID:  workspaceID,
		PostID:       postID,
		AccountID:    post.IntegrationID,
		ErrorMessage: errorMessage,
	}
	if _, err := j.ph.Create(ctx, &history); err != nil {
		log.Printf("Error saving posting history for PostID %d: %v", postID, err)
	}

	j.cache.Invalidate(workspaceID)
	return nil
}
