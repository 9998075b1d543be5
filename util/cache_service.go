// api/util/cache_service.go

package util

import (
	"context"

	"github.com/warden-labs/warden/api/db"
	"github.com/warden-labs/warden/api/model"
)

type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetTemplate(ctx context.Context, templateID string) (*model.Template, error) {
	return db.GetCachedTemplate(ctx, templateID)
}

func (c *CacheService) SetTemplate(ctx context.Context, template model.Template) error {
	return db.CacheTemplate(ctx, &template)
}

func (c *CacheService) DeleteTemplate(ctx context.Context, templateID string) error {
	return db.DeleteCachedTemplate(ctx, templateID)
}
