package cache

import (
	"context"
	"encoding/json"
	"time"

	"elevatecore/internal/model"

	"github.com/redis/go-redis/v9"
)

// RuleCache keeps per-questionnaire stage rule lists. Every rule
// mutation flushes the whole cache: a scoped rule edit also changes the
// candidate set of the global key, so partial invalidation is not safe.
type RuleCache interface {
	Set(ctx context.Context, questionnaireID string, rules []model.StageRule) error
	Get(ctx context.Context, questionnaireID string) ([]model.StageRule, bool, error)
	InvalidateAll(ctx context.Context) error
}

type ruleCache struct {
	client *redis.Client
}

const rulePrefix = "stagerules:"

func NewRuleCache(client *redis.Client) RuleCache {
	return &ruleCache{client: client}
}

func (c *ruleCache) key(questionnaireID string) string {
	if questionnaireID == "" {
		return rulePrefix + "global"
	}
	return rulePrefix + "q:" + questionnaireID
}

func (c *ruleCache) Set(ctx context.Context, questionnaireID string, rules []model.StageRule) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(questionnaireID), data, 5*time.Minute).Err()
}

// Get reports a miss through the second return value so an empty rule
// list can be cached too
func (c *ruleCache) Get(ctx context.Context, questionnaireID string) ([]model.StageRule, bool, error) {
	data, err := c.client.Get(ctx, c.key(questionnaireID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rules []model.StageRule
	if err := json.Unmarshal([]byte(data), &rules); err != nil {
		return nil, false, err
	}
	return rules, true, nil
}

func (c *ruleCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, rulePrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
