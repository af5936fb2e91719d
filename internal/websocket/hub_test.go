package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/storytailer/api/internal/model"
)

func TestHub_StoryUpdatedReachesSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	subscribed := &Client{StoryID: "story-1", Send: make(chan []byte, 4)}
	other := &Client{StoryID: "story-2", Send: make(chan []byte, 4)}
	hub.Register(subscribed)
	hub.Register(other)

	errMsg := "synthesis failed"
	hub.StoryUpdated(&model.Story{
		ID:           "story-1",
		Status:       model.StatusFailed,
		Title:        "Failed to generate story :(",
		ErrorMessage: &errMsg,
	})

	select {
	case raw := <-subscribed.Send:
		var msg model.WSStatusMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != model.WSMessageTypeStatus || msg.StoryID != "story-1" {
			t.Errorf("message = %+v", msg)
		}
		if msg.Status != model.StatusFailed {
			t.Errorf("status = %s", msg.Status)
		}
		if msg.ErrorMessage == nil || *msg.ErrorMessage != errMsg {
			t.Errorf("error message = %v", msg.ErrorMessage)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive status update")
	}

	select {
	case raw := <-other.Send:
		t.Fatalf("unrelated subscriber received %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{StoryID: "story-1", Send: make(chan []byte, 1)}
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, ok := <-client.Send:
		if ok {
			t.Fatal("expected send channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed after unregister")
	}
}
