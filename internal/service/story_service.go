package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/storytailer/api/internal/client"
	"github.com/storytailer/api/internal/model"
	"github.com/storytailer/api/internal/repository"
)

// Fixed client-facing strings.
const (
	placeholderTitle = "Story generation in progress..."
	placeholderText  = "Your story is generating, please wait a moment..."
	failedTitle      = "Failed to generate story :("
	restrictedTitle  = "Restricted content detected"
	restrictedBody   = "This request was flagged as restricted for under-18 viewers. " +
		"Enable mature content or provide a different image/context."
)

// StatusNotifier receives a story snapshot after every persisted transition.
type StatusNotifier interface {
	StoryUpdated(story *model.Story)
}

// StoryService is the pipeline orchestrator: it owns job creation, the
// background execution entry point and all status transitions.
type StoryService struct {
	repo        repository.StoryRepository
	blobs       client.BlobStore
	generator   *Generator
	synthesizer *Synthesizer
	dispatcher  Dispatcher
	notifier    StatusNotifier
}

func NewStoryService(
	repo repository.StoryRepository,
	blobs client.BlobStore,
	generator *Generator,
	synthesizer *Synthesizer,
	dispatcher Dispatcher,
	notifier StatusNotifier,
) *StoryService {
	return &StoryService{
		repo:        repo,
		blobs:       blobs,
		generator:   generator,
		synthesizer: synthesizer,
		dispatcher:  dispatcher,
		notifier:    notifier,
	}
}

// Create stores the image, persists a just_created story with placeholder
// content and enqueues the generation job. Enqueue failures are logged, not
// surfaced: the caller still gets the persisted story (at-least-one-attempt,
// not guaranteed delivery).
func (s *StoryService) Create(ctx context.Context, req *model.StoryGenerationRequest, imageBytes []byte) (*model.Story, error) {
	key := fmt.Sprintf("images/%s.jpg", uuid.New().String())
	locator, err := s.blobs.Put(ctx, key, bytes.NewReader(imageBytes), "image/jpeg")
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	story := &model.Story{
		ID:        uuid.New().String(),
		Flavor:    req.Flavor,
		Title:     placeholderTitle,
		StoryText: placeholderText,
		CreatedAt: time.Now().UTC(),
		Status:    model.StatusJustCreated,
		ImageURL:  locator,
	}

	if err := s.persist(ctx, story); err != nil {
		return nil, err
	}

	if err := s.dispatcher.Dispatch(ctx, story.ID, req); err != nil {
		log.Error().Err(err).Str("storyId", story.ID).Msg("Failed to enqueue generation task")
	}

	return story, nil
}

// Execute is the background entry point. It is safe to invoke more than once
// for the same story id: the story is fully reloaded and terminal stories
// are left untouched. Any stage failure is routed into the failure sink
// instead of propagating.
func (s *StoryService) Execute(ctx context.Context, storyID string, req *model.StoryGenerationRequest) error {
	start := time.Now()

	story, err := s.GetByID(ctx, storyID)
	if err != nil {
		return err
	}

	if story.Status.Terminal() {
		log.Info().Str("storyId", storyID).Str("status", string(story.Status)).
			Msg("Story already terminal, skipping execution")
		return nil
	}

	if err := s.runPipeline(ctx, story, req, start); err != nil {
		s.failStory(ctx, story, err)
	}
	return nil
}

func (s *StoryService) runPipeline(ctx context.Context, story *model.Story, req *model.StoryGenerationRequest, start time.Time) error {
	if err := story.TransitionTo(model.StatusGeneratingStory); err != nil {
		return err
	}
	if err := s.persist(ctx, story); err != nil {
		return err
	}

	imageBytes, err := s.readBlob(ctx, story.ImageURL)
	if err != nil {
		return &model.EngineError{Stage: "image load", Err: err}
	}

	generated, err := s.generator.Generate(ctx, req, imageBytes)
	if err != nil {
		return err
	}

	story.Title = generated.Title
	story.StoryText = generated.Text
	if err := story.TransitionTo(model.StatusGeneratingAudio); err != nil {
		return err
	}
	if err := s.persist(ctx, story); err != nil {
		return err
	}

	if err := s.synthesizer.Synthesize(ctx, story); err != nil {
		return err
	}

	// Wall time is stamped only on full success; the audio_too_long
	// variant keeps its artifact but no timing.
	if story.Status == model.StatusCompleted {
		elapsed := time.Since(start).Seconds()
		story.GenerationTimeSeconds = &elapsed
	}

	return s.persist(ctx, story)
}

// failStory is the pipeline's last-resort sink: it classifies the cause,
// moves the story to the matching terminal state and persists. It never
// returns an error and never mutates an already-terminal story.
func (s *StoryService) failStory(ctx context.Context, story *model.Story, cause error) {
	if story.Status.Terminal() {
		log.Warn().Str("storyId", story.ID).Err(cause).Msg("Failure after terminal state, ignoring")
		return
	}

	var restricted *model.RestrictedContentError
	if errors.As(cause, &restricted) {
		log.Warn().Str("storyId", story.ID).Str("summary", restricted.Summary).Msg("Restricted content detected")
		story.Title = restrictedTitle
		story.StoryText = restrictedBody + "\n\n" + restricted.Summary
		_ = story.TransitionTo(model.StatusRestrictedContent)
	} else {
		log.Error().Str("storyId", story.ID).Err(cause).Msg("Failed to generate story")
		story.Title = failedTitle
		story.StoryText = cause.Error()
		_ = story.TransitionTo(model.StatusFailed)
	}

	msg := cause.Error()
	story.ErrorMessage = &msg

	if err := s.persist(ctx, story); err != nil {
		log.Error().Err(err).Str("storyId", story.ID).Msg("Failed to persist failure state")
	}
}

func (s *StoryService) GetByID(ctx context.Context, id string) (*model.Story, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *StoryService) List(ctx context.Context, page, pageSize int) ([]*model.Story, int64, error) {
	return s.repo.List(ctx, page, pageSize)
}

// Delete removes the story record and best-effort cleans up its blobs.
// Record deletion succeeds even when the blobs are gone or the record never
// existed.
func (s *StoryService) Delete(ctx context.Context, id string) error {
	story, err := s.repo.GetByID(ctx, id)
	if err == nil {
		if story.ImageURL != "" {
			s.blobs.DeleteBestEffort(ctx, story.ImageURL)
		}
		if story.AudioURL != "" {
			s.blobs.DeleteBestEffort(ctx, story.AudioURL)
		}
	} else if !errors.Is(err, model.ErrStoryNotFound) {
		log.Warn().Err(err).Str("storyId", id).Msg("Could not load story for blob cleanup")
	}

	return s.repo.Delete(ctx, id)
}

func (s *StoryService) persist(ctx context.Context, story *model.Story) error {
	if err := s.repo.Upsert(ctx, story); err != nil {
		return fmt.Errorf("failed to save story %s: %w", story.ID, err)
	}
	if s.notifier != nil {
		s.notifier.StoryUpdated(story)
	}
	return nil
}

func (s *StoryService) readBlob(ctx context.Context, locator string) ([]byte, error) {
	rc, err := s.blobs.Open(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
