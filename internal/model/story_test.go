package model

import "testing"

func TestStatusTransitions_LegalEdges(t *testing.T) {
	legal := []struct {
		from StoryStatus
		to   StoryStatus
	}{
		{StatusJustCreated, StatusGeneratingStory},
		{StatusGeneratingStory, StatusGeneratingAudio},
		{StatusGeneratingAudio, StatusCompleted},
		{StatusGeneratingAudio, StatusAudioTooLong},
		{StatusJustCreated, StatusFailed},
		{StatusJustCreated, StatusRestrictedContent},
		{StatusGeneratingStory, StatusFailed},
		{StatusGeneratingStory, StatusRestrictedContent},
		{StatusGeneratingAudio, StatusFailed},
		{StatusGeneratingAudio, StatusRestrictedContent},
	}

	for _, tc := range legal {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}
}

func TestStatusTransitions_IllegalEdges(t *testing.T) {
	illegal := []struct {
		from StoryStatus
		to   StoryStatus
	}{
		{StatusJustCreated, StatusGeneratingAudio},
		{StatusJustCreated, StatusCompleted},
		{StatusGeneratingStory, StatusJustCreated},
		{StatusGeneratingStory, StatusCompleted},
		{StatusGeneratingAudio, StatusJustCreated},
		{StatusGeneratingAudio, StatusGeneratingStory},
	}

	for _, tc := range illegal {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be illegal", tc.from, tc.to)
		}
	}
}

func TestStatusTransitions_TerminalStatesAreFinal(t *testing.T) {
	terminals := []StoryStatus{
		StatusCompleted, StatusAudioTooLong, StatusFailed, StatusRestrictedContent,
	}
	all := []StoryStatus{
		StatusJustCreated, StatusGeneratingStory, StatusGeneratingAudio,
		StatusCompleted, StatusAudioTooLong, StatusFailed, StatusRestrictedContent,
	}

	for _, from := range terminals {
		if !from.Terminal() {
			t.Errorf("expected %s to be terminal", from)
		}
		for _, to := range all {
			if from.CanTransitionTo(to) {
				t.Errorf("terminal state %s must not transition to %s", from, to)
			}
		}
	}
}

func TestStoryTransitionTo(t *testing.T) {
	story := &Story{Status: StatusJustCreated}

	if err := story.TransitionTo(StatusGeneratingStory); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if story.Status != StatusGeneratingStory {
		t.Fatalf("expected status %s, got %s", StatusGeneratingStory, story.Status)
	}

	err := story.TransitionTo(StatusCompleted)
	if err == nil {
		t.Fatal("expected illegal transition error")
	}
	if story.Status != StatusGeneratingStory {
		t.Errorf("status must not change on illegal transition, got %s", story.Status)
	}
}
