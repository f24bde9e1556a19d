package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/go-redis/redis/v8"
)

const templatesKey = "templates"

type TemplateRedisCache struct {
	rdb        *redis.Client
	dataExpiry time.Duration
}

// GetAll returns redis.Nil when the list is not cached.
func (c *TemplateRedisCache) GetAll(ctx context.Context) ([]domain.Template, error) {
	data, err := c.rdb.Get(ctx, templatesKey).Bytes()
	if err != nil {
		return nil, err
	}
	var templates []domain.Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, ErrRedisBadValue
	}
	return templates, nil
}

func (c *TemplateRedisCache) Update(ctx context.Context, templates []domain.Template) error {
	data, err := json.Marshal(templates)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, templatesKey, data, c.dataExpiry).Err()
}

func (c *TemplateRedisCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, templatesKey).Err()
}

func NewTemplateRedisCache(rdb *redis.Client, dataExpiry time.Duration) *TemplateRedisCache {
	return &TemplateRedisCache{
		rdb:        rdb,
		dataExpiry: dataExpiry,
	}
}
