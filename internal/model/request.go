package model

import "time"

// StoryGenerationRequest carries everything the worker needs to run a job.
// It is embedded in the dispatch message, never persisted on its own.
type StoryGenerationRequest struct {
	Flavor               StoryFlavor `json:"flavor" validate:"required,oneof=fairy_tale thriller romance science_fiction"`
	AdditionalContext    string      `json:"additionalContext" validate:"omitempty,max=2000"`
	MatureContentEnabled bool        `json:"matureContentEnabled"`
}

// StoryResponse is the full client view of a story.
type StoryResponse struct {
	ID                    string      `json:"id"`
	Flavor                StoryFlavor `json:"flavor"`
	Title                 string      `json:"title"`
	StoryText             string      `json:"storyText"`
	ImageURL              string      `json:"imageUrl,omitempty"`
	AudioURL              string      `json:"audioUrl,omitempty"`
	AudioDurationSeconds  *float64    `json:"audioDurationSeconds,omitempty"`
	GenerationTimeSeconds *float64    `json:"generationTimeSeconds,omitempty"`
	CreatedAt             time.Time   `json:"createdAt"`
	Status                StoryStatus `json:"status"`
	ErrorMessage          *string     `json:"errorMessage,omitempty"`
}

func NewStoryResponse(story *Story) *StoryResponse {
	return &StoryResponse{
		ID:                    story.ID,
		Flavor:                story.Flavor,
		Title:                 story.Title,
		StoryText:             story.StoryText,
		ImageURL:              story.ImageURL,
		AudioURL:              story.AudioURL,
		AudioDurationSeconds:  story.AudioDurationSeconds,
		GenerationTimeSeconds: story.GenerationTimeSeconds,
		CreatedAt:             story.CreatedAt,
		Status:                story.Status,
		ErrorMessage:          story.ErrorMessage,
	}
}

const previewLength = 100

// StoryListItem is the compact listing view: the story text is cut down to a
// short preview.
type StoryListItem struct {
	ID           string      `json:"id"`
	Flavor       StoryFlavor `json:"flavor"`
	Title        string      `json:"title"`
	StoryPreview string      `json:"storyPreview"`
	AudioURL     string      `json:"audioUrl,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	Status       StoryStatus `json:"status"`
}

func NewStoryListItem(story *Story) StoryListItem {
	preview := story.StoryText
	if len(preview) > previewLength {
		preview = preview[:previewLength] + "..."
	}
	return StoryListItem{
		ID:           story.ID,
		Flavor:       story.Flavor,
		Title:        story.Title,
		StoryPreview: preview,
		AudioURL:     story.AudioURL,
		CreatedAt:    story.CreatedAt,
		Status:       story.Status,
	}
}

type StoryListResponse struct {
	Stories  []StoryListItem `json:"stories"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

func NewStoryListResponse(stories []*Story, total int64, page, pageSize int) *StoryListResponse {
	items := make([]StoryListItem, 0, len(stories))
	for _, story := range stories {
		items = append(items, NewStoryListItem(story))
	}
	return &StoryListResponse{
		Stories:  items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
}
