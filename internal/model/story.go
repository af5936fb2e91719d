package model

import "time"

// Story flavors
type StoryFlavor string

const (
	FlavorFairyTale      StoryFlavor = "fairy_tale"
	FlavorThriller       StoryFlavor = "thriller"
	FlavorRomance        StoryFlavor = "romance"
	FlavorScienceFiction StoryFlavor = "science_fiction"
)

var ValidFlavors = []StoryFlavor{
	FlavorFairyTale, FlavorThriller, FlavorRomance, FlavorScienceFiction,
}

// Story status
type StoryStatus string

const (
	StatusJustCreated       StoryStatus = "just_created"
	StatusGeneratingStory   StoryStatus = "generating_story"
	StatusGeneratingAudio   StoryStatus = "generating_audio"
	StatusCompleted         StoryStatus = "completed"
	StatusAudioTooLong      StoryStatus = "audio_too_long"
	StatusFailed            StoryStatus = "failed"
	StatusRestrictedContent StoryStatus = "restricted_content_detected"
)

// statusTransitions holds the legal forward edges of the lifecycle.
// Failure sinks (failed, restricted_content_detected) are reachable from
// every non-terminal state and are handled in CanTransitionTo.
var statusTransitions = map[StoryStatus][]StoryStatus{
	StatusJustCreated:     {StatusGeneratingStory},
	StatusGeneratingStory: {StatusGeneratingAudio},
	StatusGeneratingAudio: {StatusCompleted, StatusAudioTooLong},
}

// Terminal reports whether the pipeline performs no further transitions
// from this status.
func (s StoryStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusAudioTooLong, StatusFailed, StatusRestrictedContent:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next follows a legal edge.
func (s StoryStatus) CanTransitionTo(next StoryStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed || next == StatusRestrictedContent {
		return true
	}
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Story is the unit of work and the unit of client-visible progress.
type Story struct {
	ID                    string      `json:"id"`
	Flavor                StoryFlavor `json:"flavor"`
	Title                 string      `json:"title"`
	StoryText             string      `json:"storyText"`
	CreatedAt             time.Time   `json:"createdAt"`
	Status                StoryStatus `json:"status"`
	ImageURL              string      `json:"imageUrl,omitempty"`
	AudioURL              string      `json:"audioUrl,omitempty"`
	AudioDurationSeconds  *float64    `json:"audioDurationSeconds,omitempty"`
	GenerationTimeSeconds *float64    `json:"generationTimeSeconds,omitempty"`
	ErrorMessage          *string     `json:"errorMessage,omitempty"`
}

// TransitionTo advances the story status along a legal edge.
func (st *Story) TransitionTo(next StoryStatus) error {
	if !st.Status.CanTransitionTo(next) {
		return &IllegalTransitionError{From: st.Status, To: next}
	}
	st.Status = next
	return nil
}
