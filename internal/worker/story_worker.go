package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/storytailer/api/internal/model"
	"github.com/storytailer/api/internal/service"
)

// StoryExecutor runs the generation pipeline for an already-created story.
type StoryExecutor interface {
	Execute(ctx context.Context, storyID string, req *model.StoryGenerationRequest) error
}

// StoryWorker consumes story generation tasks from the queue.
type StoryWorker struct {
	executor StoryExecutor
}

func NewStoryWorker(executor StoryExecutor) *StoryWorker {
	return &StoryWorker{executor: executor}
}

// ProcessTask decodes the task envelope and hands it to the executor. A bad
// payload is returned with SkipRetry so asynq archives it instead of
// redelivering garbage.
func (w *StoryWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload service.StoryTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid task payload: %w: %v", asynq.SkipRetry, err)
	}

	log.Info().Str("storyId", payload.StoryID).Str("flavor", string(payload.Request.Flavor)).
		Msg("Processing story generation task")

	if err := w.executor.Execute(ctx, payload.StoryID, &payload.Request); err != nil {
		log.Error().Err(err).Str("storyId", payload.StoryID).Msg("Story generation task failed")
		return err
	}
	return nil
}
