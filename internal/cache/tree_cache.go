package cache

import (
	"context"
	"encoding/json"
	"time"

	"elevatecore/internal/model"

	"github.com/redis/go-redis/v9"
)

// TreeCache holds the flattened stage list consumed by pickers. It is
// invalidated on every catalog mutation, so a hit is always a faithful
// view of the current tree.
type TreeCache interface {
	SetFlatStages(ctx context.Context, stages []model.FlatStage) error
	GetFlatStages(ctx context.Context) ([]model.FlatStage, error)
	Invalidate(ctx context.Context) error
}

type treeCache struct {
	client *redis.Client
}

const flatStagesKey = "catalog:flat_stages"

func NewTreeCache(client *redis.Client) TreeCache {
	return &treeCache{client: client}
}

func (c *treeCache) SetFlatStages(ctx context.Context, stages []model.FlatStage) error {
	data, err := json.Marshal(stages)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flatStagesKey, data, 10*time.Minute).Err()
}

// GetFlatStages returns (nil, nil) on a cache miss
func (c *treeCache) GetFlatStages(ctx context.Context) ([]model.FlatStage, error) {
	data, err := c.client.Get(ctx, flatStagesKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stages []model.FlatStage
	if err := json.Unmarshal([]byte(data), &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

func (c *treeCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, flatStagesKey).Err()
}
