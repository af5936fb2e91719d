package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/storytailer/api/internal/model"
)

const storyIndexKey = "stories:index"

// RedisStoryRepository stores each story as a JSON document under
// story:{id} and keeps a ZSET index scored by creation time for ordered
// listing.
type RedisStoryRepository struct {
	redis *redis.Client
}

func NewRedisStoryRepository(redisClient *redis.Client) *RedisStoryRepository {
	return &RedisStoryRepository{redis: redisClient}
}

func storyKey(id string) string {
	return fmt.Sprintf("story:%s", id)
}

func (r *RedisStoryRepository) Upsert(ctx context.Context, story *model.Story) error {
	data, err := json.Marshal(story)
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}

	pipe := r.redis.TxPipeline()
	pipe.Set(ctx, storyKey(story.ID), data, 0)
	pipe.ZAdd(ctx, storyIndexKey, redis.Z{
		Score:  float64(story.CreatedAt.UnixNano()),
		Member: story.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save story %s: %w", story.ID, err)
	}
	return nil
}

func (r *RedisStoryRepository) GetByID(ctx context.Context, id string) (*model.Story, error) {
	data, err := r.redis.Get(ctx, storyKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrStoryNotFound
		}
		return nil, fmt.Errorf("failed to load story %s: %w", id, err)
	}

	var story model.Story
	if err := json.Unmarshal(data, &story); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story %s: %w", id, err)
	}
	return &story, nil
}

func (r *RedisStoryRepository) List(ctx context.Context, page, pageSize int) ([]*model.Story, int64, error) {
	start := int64(page-1) * int64(pageSize)
	stop := start + int64(pageSize) - 1

	ids, err := r.redis.ZRevRange(ctx, storyIndexKey, start, stop).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read story index: %w", err)
	}

	total, err := r.redis.ZCard(ctx, storyIndexKey).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count stories: %w", err)
	}

	stories := make([]*model.Story, 0, len(ids))
	for _, id := range ids {
		story, err := r.GetByID(ctx, id)
		if errors.Is(err, model.ErrStoryNotFound) {
			// Index entry outlived the document (concurrent delete); skip.
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		stories = append(stories, story)
	}

	return stories, total, nil
}

func (r *RedisStoryRepository) Delete(ctx context.Context, id string) error {
	pipe := r.redis.TxPipeline()
	pipe.Del(ctx, storyKey(id))
	pipe.ZRem(ctx, storyIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete story %s: %w", id, err)
	}
	return nil
}
