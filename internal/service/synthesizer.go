package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/storytailer/api/internal/audio"
	"github.com/storytailer/api/internal/client"
	"github.com/storytailer/api/internal/model"
)

// MaxAudioDurationSeconds is the hard ceiling on narrated audio length.
const MaxAudioDurationSeconds = 4 * 60

// paramsForFlavor holds one fixed synthesis profile per flavor, tuned for
// narrative pacing (sharper for thriller, warmer for fairy tale).
var paramsForFlavor = map[model.StoryFlavor]client.SynthesisParams{
	model.FlavorFairyTale:      {LengthScale: 1.10, NoiseScale: 0.70, NoiseWScale: 0.8, Volume: 1.00},
	model.FlavorRomance:        {LengthScale: 1.05, NoiseScale: 0.68, NoiseWScale: 0.8, Volume: 0.95},
	model.FlavorScienceFiction: {LengthScale: 0.98, NoiseScale: 0.62, NoiseWScale: 0.7, Volume: 1.00},
	model.FlavorThriller:       {LengthScale: 0.92, NoiseScale: 0.66, NoiseWScale: 0.7, Volume: 1.05},
}

// SynthesisEngine renders text to a self-describing WAV container.
type SynthesisEngine interface {
	Synthesize(ctx context.Context, text string, params client.SynthesisParams) ([]byte, error)
}

// Synthesizer renders story text to audio, stores it and validates the
// duration ceiling.
type Synthesizer struct {
	engine SynthesisEngine
	blobs  client.BlobStore
}

func NewSynthesizer(engine SynthesisEngine, blobs client.BlobStore) *Synthesizer {
	return &Synthesizer{engine: engine, blobs: blobs}
}

// Synthesize produces audio for the story, sets audioUrl and
// audioDurationSeconds together, and moves the story to completed or
// audio_too_long. The audio artifact is kept even when the ceiling is
// exceeded so the client can still inspect it.
func (s *Synthesizer) Synthesize(ctx context.Context, story *model.Story) error {
	log.Info().Str("storyId", story.ID).Str("title", story.Title).Msg("Synthesizing audio")

	params, ok := paramsForFlavor[story.Flavor]
	if !ok {
		return &model.EngineError{Stage: "speech synthesis", Err: fmt.Errorf("no synthesis profile for flavor %q", story.Flavor)}
	}

	wav, err := s.engine.Synthesize(ctx, story.StoryText, params)
	if err != nil {
		return &model.EngineError{Stage: "speech synthesis", Err: err}
	}

	duration, err := audio.DurationSeconds(wav)
	if err != nil {
		return &model.EngineError{Stage: "audio decoding", Err: err}
	}

	key := fmt.Sprintf("audio/%s.wav", uuid.New().String())
	locator, err := s.blobs.Put(ctx, key, bytes.NewReader(wav), "audio/wav")
	if err != nil {
		return &model.EngineError{Stage: "audio storage", Err: err}
	}

	story.AudioURL = locator
	story.AudioDurationSeconds = &duration

	if int(duration) > MaxAudioDurationSeconds {
		if err := story.TransitionTo(model.StatusAudioTooLong); err != nil {
			return err
		}
		msg := fmt.Sprintf("Audio duration is too long. Maximum duration is %d seconds", MaxAudioDurationSeconds)
		story.ErrorMessage = &msg
		return nil
	}

	return story.TransitionTo(model.StatusCompleted)
}
