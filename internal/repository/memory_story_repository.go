package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/storytailer/api/internal/model"
)

// MemoryStoryRepository is a mutex-guarded in-process repository, used as a
// startup fallback when Redis is unavailable and by tests.
type MemoryStoryRepository struct {
	mu      sync.RWMutex
	stories map[string]model.Story
}

func NewMemoryStoryRepository() *MemoryStoryRepository {
	return &MemoryStoryRepository{stories: make(map[string]model.Story)}
}

func (r *MemoryStoryRepository) Upsert(ctx context.Context, story *model.Story) error {
	r.mu.Lock()
	r.stories[story.ID] = *story
	r.mu.Unlock()
	return nil
}

func (r *MemoryStoryRepository) GetByID(ctx context.Context, id string) (*model.Story, error) {
	r.mu.RLock()
	story, ok := r.stories[id]
	r.mu.RUnlock()

	if !ok {
		return nil, model.ErrStoryNotFound
	}
	return &story, nil
}

func (r *MemoryStoryRepository) List(ctx context.Context, page, pageSize int) ([]*model.Story, int64, error) {
	r.mu.RLock()
	all := make([]model.Story, 0, len(r.stories))
	for _, story := range r.stories {
		all = append(all, story)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []*model.Story{}, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}

	stories := make([]*model.Story, 0, end-start)
	for i := start; i < end; i++ {
		story := all[i]
		stories = append(stories, &story)
	}
	return stories, total, nil
}

func (r *MemoryStoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.stories, id)
	r.mu.Unlock()
	return nil
}
