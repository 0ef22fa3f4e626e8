// Package enrich attaches work items to change-requests.
package enrich

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/logger"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/resolver"
)

// WorkItemSource fetches a work item by identifier. A nil item with a nil
// error means the tracker has no such item.
type WorkItemSource interface {
	GetWorkItem(ctx context.Context, id int) (*models.WorkItem, error)
}

// Stats counts what happened to each record of a batch.
type Stats struct {
	Total       int
	Resolved    int
	Placeholder int
	Unresolved  int
	Dropped     int
}

type Coordinator struct {
	resolver *resolver.Resolver
	items    WorkItemSource
}

// NewCoordinator builds a coordinator. With a nil resolver every record is
// kept without a work item.
func NewCoordinator(res *resolver.Resolver, items WorkItemSource) *Coordinator {
	return &Coordinator{
		resolver: res,
		items:    items,
	}
}

type lookup struct {
	item *models.WorkItem
	err  error
}

// Enrich returns the records to keep, with work items attached where one was
// found. A record whose identifier resolves but whose work item cannot be
// fetched is dropped. Under the fail policy the unresolved records are
// reported together once the whole batch has been examined.
func (c *Coordinator) Enrich(ctx context.Context, records []models.ChangeRequest) ([]models.ChangeRequest, Stats, error) {
	stats := Stats{Total: len(records)}
	kept := make([]models.ChangeRequest, 0, len(records))

	if c.resolver == nil {
		for _, rec := range records {
			rec.WorkItem = nil
			kept = append(kept, rec)
		}
		stats.Unresolved = len(records)
		logger.Debug(ctx, "no resolver configured, skipping enrichment", "count", len(records))
		return kept, stats, nil
	}

	cache := make(map[int]lookup)
	var failures []error

	for _, rec := range records {
		rec.WorkItem = nil
		log := logger.FromContext(ctx).With(
			"repository", rec.Repository,
			"platform", rec.Platform,
			"number", rec.Number,
		)

		id, ok, err := c.resolver.Resolve(ctx, rec.SourceBranch, rec.Title)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s#%d: %w", rec.Repository, rec.Number, err))
			continue
		}
		if !ok {
			stats.Unresolved++
			kept = append(kept, rec)
			continue
		}

		if id == models.PlaceholderID {
			stats.Placeholder++
			kept = append(kept, rec)
			continue
		}

		res, seen := cache[id]
		if !seen {
			res.item, res.err = c.fetch(ctx, id)
			cache[id] = res
		}

		switch {
		case res.err != nil:
			stats.Dropped++
			log.Warn("dropping change-request, work item lookup failed", "work_item", id, "error", res.err)
		case res.item == nil:
			stats.Dropped++
			log.Warn("dropping change-request, work item not found", "work_item", id)
		case res.item.IsPlaceholder():
			stats.Placeholder++
			kept = append(kept, rec)
		default:
			item := *res.item
			rec.WorkItem = &item
			stats.Resolved++
			kept = append(kept, rec)
		}
	}

	if len(failures) > 0 {
		return nil, stats, errors.Join(failures...)
	}

	logger.Info(ctx, "enrichment finished",
		"total", stats.Total,
		"resolved", stats.Resolved,
		"placeholder", stats.Placeholder,
		"unresolved", stats.Unresolved,
		"dropped", stats.Dropped)

	return kept, stats, nil
}

func (c *Coordinator) fetch(ctx context.Context, id int) (*models.WorkItem, error) {
	if c.items == nil {
		return nil, apperrors.ErrWorkItemLookup.WithContext("detail", "no work item source configured")
	}

	item, err := c.items.GetWorkItem(ctx, id)
	if err != nil {
		return nil, apperrors.ErrWorkItemLookup.WithError(err).WithContext("work_item", id)
	}
	return item, nil
}
