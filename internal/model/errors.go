package model

import (
	"errors"
	"fmt"
)

// ErrStoryNotFound signals that a referenced story does not exist. Fatal to
// the operation that raised it; surfaced to clients as a 404.
var ErrStoryNotFound = errors.New("story not found")

// RestrictedContentError is the moderation gate's veto. The pipeline recovers
// it into the restricted_content_detected terminal state.
type RestrictedContentError struct {
	Summary string
}

func (e *RestrictedContentError) Error() string {
	return e.Summary
}

// EngineError wraps any failure coming from an external engine call or its
// surrounding decode/store work. Recovered into the failed terminal state.
type EngineError struct {
	Stage string
	Err   error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// IllegalTransitionError reports an attempted edge outside the status graph.
type IllegalTransitionError struct {
	From StoryStatus
	To   StoryStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}
