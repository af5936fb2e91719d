// Package repository provides the durable keyed store of Story records.
package repository

import (
	"context"

	"github.com/storytailer/api/internal/model"
)

// StoryRepository is the persistence contract for stories. Writes are full
// document replaces keyed by id; interleaved writers cannot corrupt a record.
type StoryRepository interface {
	// Upsert replaces the story by id, creating it if absent.
	Upsert(ctx context.Context, story *model.Story) error
	// GetByID returns the story or model.ErrStoryNotFound.
	GetByID(ctx context.Context, id string) (*model.Story, error)
	// List returns one page ordered by creation time descending, plus the
	// total count. Pages are 1-based.
	List(ctx context.Context, page, pageSize int) ([]*model.Story, int64, error)
	// Delete removes the story; deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error
}
