package queue

import (
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

func EnqueuePost(asynqClient *asynq.Client, payload PublishPostPayload, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)

	_, err = asynqClient.Enqueue(task, asynq.ProcessIn(delay))
	if err != nil {
		return err
	}

	log.Printf("Task scheduled: %+v", payload)
	return nil
}

// Enqueuer adapts the asynq client to the reschedule engine's
// publish-now handoff.
type Enqueuer struct {
	Client *asynq.Client
}

func (e *Enqueuer) EnqueueNow(postID, workspaceID int64) error {
	return EnqueuePost(e.Client, PublishPostPayload{PostID: postID, WorkspaceID: workspaceID}, 0)
}
