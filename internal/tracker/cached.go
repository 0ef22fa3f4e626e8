// Package tracker holds work-item sources shared by every tracker backend.
package tracker

import (
	"context"
	"fmt"

	"github.com/thomas-vilte/shipsheet/internal/cache"
	"github.com/thomas-vilte/shipsheet/internal/enrich"
	"github.com/thomas-vilte/shipsheet/internal/logger"
	"github.com/thomas-vilte/shipsheet/internal/models"
)

// CachedSource serves work items from the disk cache and falls back to the
// wrapped source. Only found items are cached, so a ticket created after a
// miss is picked up on the next run. Cache failures never fail a lookup.
type CachedSource struct {
	next      enrich.WorkItemSource
	cache     *cache.Cache
	namespace string
}

// NewCachedSource caches the answers of next under namespace, which keeps
// entries of different projects apart.
func NewCachedSource(next enrich.WorkItemSource, c *cache.Cache, namespace string) *CachedSource {
	return &CachedSource{
		next:      next,
		cache:     c,
		namespace: namespace,
	}
}

func (s *CachedSource) GetWorkItem(ctx context.Context, id int) (*models.WorkItem, error) {
	key := fmt.Sprintf("workitem:%s:%d", s.namespace, id)

	var cached models.WorkItem
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		logger.Debug(ctx, "ignoring unreadable cache entry", "key", key, "error", err)
	}
	if found {
		logger.Debug(ctx, "work item served from cache", "id", id)
		return &cached, nil
	}

	item, err := s.next.GetWorkItem(ctx, id)
	if err != nil || item == nil {
		return item, err
	}

	if err := s.cache.Set(key, item); err != nil {
		logger.Debug(ctx, "could not cache work item", "id", id, "error", err)
	}
	return item, nil
}
