package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/storytailer/api/internal/model"
)

const (
	TaskTypeGenerateStory = "story:generate"
	QueueStories          = "stories"
)

// StoryTaskPayload is the typed envelope handed across the process boundary
// between job creation and the worker. The request travels with the story id
// because the worker runs in a separate context from the request handler.
type StoryTaskPayload struct {
	StoryID string                       `json:"storyId"`
	Request model.StoryGenerationRequest `json:"request"`
}

// Dispatcher hands finalized creation requests to the background queue.
type Dispatcher interface {
	Dispatch(ctx context.Context, storyID string, req *model.StoryGenerationRequest) error
}

// AsynqDispatcher enqueues story generation tasks over Redis.
type AsynqDispatcher struct {
	client *asynq.Client
}

func NewAsynqDispatcher(asynqClient *asynq.Client) *AsynqDispatcher {
	return &AsynqDispatcher{client: asynqClient}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, storyID string, req *model.StoryGenerationRequest) error {
	payload, err := json.Marshal(StoryTaskPayload{StoryID: storyID, Request: *req})
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TaskTypeGenerateStory, payload)

	// A failed job stays failed: there are no automatic retries in this
	// pipeline, the story record carries the outcome instead.
	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueStories),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}
