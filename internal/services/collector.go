package services

import (
	"context"
	"errors"

	"github.com/thomas-vilte/shipsheet/internal/config"
	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/logger"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/vcs"
	"golang.org/x/sync/errgroup"
)

type (
	// CollectRequest selects what is fetched from each repository. When Base
	// and Head are set the window is ignored and the repositories are compared.
	CollectRequest struct {
		Repositories []config.Repository
		Window       vcs.Window
		Base         string
		Head         string
	}

	RepositoryFailure struct {
		Repository config.Repository
		Err        error
	}

	Collection struct {
		Records  []models.ChangeRequest
		Failures []RepositoryFailure
	}
)

// Collector fetches merged change-requests from several repositories at once.
type Collector struct {
	sources     *vcs.Registry
	concurrency int
}

func NewCollector(sources *vcs.Registry, concurrency int) *Collector {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Collector{
		sources:     sources,
		concurrency: concurrency,
	}
}

// Collect queries every repository with at most c.concurrency requests in
// flight. A failing repository is logged and reported in the result without
// stopping the others; records keep the order of req.Repositories. It fails
// when no repository could be read, and stops with the context error once ctx
// is done.
func (c *Collector) Collect(ctx context.Context, req CollectRequest) (*Collection, error) {
	log := logger.FromContext(ctx)

	results := make([][]models.ChangeRequest, len(req.Repositories))
	errs := make([]error, len(req.Repositories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, repo := range req.Repositories {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			records, err := c.collectOne(gctx, repo, req)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn("repository skipped",
					"repository", repo.String(),
					"error", err)
				errs[i] = err
				return nil
			}

			log.Info("repository collected",
				"repository", repo.String(),
				"records", len(records))
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	collection := &Collection{}
	for i, records := range results {
		if errs[i] != nil {
			collection.Failures = append(collection.Failures, RepositoryFailure{
				Repository: req.Repositories[i],
				Err:        errs[i],
			})
			continue
		}
		collection.Records = append(collection.Records, records...)
	}

	if len(req.Repositories) > 0 && len(collection.Failures) == len(req.Repositories) {
		return collection, apperrors.ErrNothingCollected.WithError(errors.Join(errs...))
	}
	return collection, nil
}

func (c *Collector) collectOne(ctx context.Context, repo config.Repository, req CollectRequest) ([]models.ChangeRequest, error) {
	src, err := c.sources.Get(repo.Platform)
	if err != nil {
		return nil, err
	}

	if req.Base != "" && req.Head != "" {
		return src.ListMergedBetween(ctx, repo.Name, req.Base, req.Head)
	}
	return src.ListMerged(ctx, repo.Name, req.Window)
}
