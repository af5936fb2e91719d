package model

// WebSocket message types
const (
	WSMessageTypeStatus = "status"
	WSMessageTypePing   = "ping"
	WSMessageTypePong   = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStatusMessage is a status snapshot pushed whenever the pipeline persists
// a transition for the story.
type WSStatusMessage struct {
	Type         string      `json:"type"`
	StoryID      string      `json:"storyId"`
	Status       StoryStatus `json:"status"`
	Title        string      `json:"title,omitempty"`
	AudioURL     string      `json:"audioUrl,omitempty"`
	ErrorMessage *string     `json:"errorMessage,omitempty"`
}
