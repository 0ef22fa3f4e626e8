package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/thomas-vilte/shipsheet/internal/config"
	"github.com/thomas-vilte/shipsheet/internal/enrich"
	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/jsonio"
	"github.com/thomas-vilte/shipsheet/internal/logger"
	"github.com/thomas-vilte/shipsheet/internal/mapper"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/reconcile"
	"github.com/thomas-vilte/shipsheet/internal/resolver"
	"github.com/thomas-vilte/shipsheet/internal/sheets"
	"github.com/thomas-vilte/shipsheet/internal/vcs"
)

type (
	SyncOptions struct {
		Window vcs.Window
		Base   string
		Head   string
		// FromJSON replaces collection with the records stored in this file.
		FromJSON string
		DryRun   bool
	}

	// Report is what a run computed before touching the sheet.
	Report struct {
		RunID      string
		Collected  int
		Records    []models.ChangeRequest
		Failures   []RepositoryFailure
		Enrichment enrich.Stats
		Rows       []models.ReportRow
	}

	SyncResult struct {
		*Report
		Plan    *reconcile.Plan
		Applied bool
	}
)

// SyncService runs collect, enrich, map and reconcile, in that order.
type SyncService struct {
	repositories []config.Repository
	collector    *Collector
	resolver     *resolver.Resolver
	items        enrich.WorkItemSource
	store        sheets.Store
	newRunID     func() string
}

// NewSyncService wires a run. items may be nil, in which case records are
// kept without work items and rows are labelled from the resolved
// identifiers. store may be nil for services that only build reports.
func NewSyncService(repositories []config.Repository, collector *Collector, res *resolver.Resolver, items enrich.WorkItemSource, store sheets.Store) *SyncService {
	return &SyncService{
		repositories: repositories,
		collector:    collector,
		resolver:     res,
		items:        items,
		store:        store,
		newRunID:     uuid.NewString,
	}
}

// BuildReport collects (or loads) the records, enriches them and maps them to
// report rows.
func (s *SyncService) BuildReport(ctx context.Context, opts SyncOptions) (*Report, error) {
	runID := s.newRunID()
	ctx = logger.With(ctx, "run_id", runID)
	return s.buildReport(ctx, runID, opts)
}

// Run builds the report and reconciles it into the sheet. With DryRun the
// plan is returned without being applied. Any error aborts before the sheet
// is written.
func (s *SyncService) Run(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	if s.store == nil {
		return nil, apperrors.ErrNoDestination
	}

	runID := s.newRunID()
	ctx = logger.With(ctx, "run_id", runID)
	log := logger.FromContext(ctx)

	report, err := s.buildReport(ctx, runID, opts)
	if err != nil {
		return nil, err
	}
	result := &SyncResult{Report: report}

	existing, err := s.store.Snapshot(ctx)
	if err != nil {
		return result, err
	}
	log.Debug("sheet snapshot read", "rows", len(existing))

	plan, err := reconcile.Reconcile(report.Rows, existing)
	if err != nil {
		return result, err
	}
	result.Plan = plan

	log.Info("reconciliation planned",
		"updated", plan.Stats.Updated,
		"inserted", plan.Stats.Inserted,
		"unchanged", plan.Stats.Unchanged,
		"frozen", plan.Stats.Frozen,
		"reordered", plan.Stats.Reordered)

	if opts.DryRun || plan.Empty() {
		return result, nil
	}

	if err := s.store.Apply(ctx, plan); err != nil {
		return result, err
	}
	result.Applied = true
	log.Info("sheet updated")

	return result, nil
}

func (s *SyncService) buildReport(ctx context.Context, runID string, opts SyncOptions) (*Report, error) {
	log := logger.FromContext(ctx)
	report := &Report{RunID: runID}

	records, err := s.records(ctx, opts, report)
	if err != nil {
		return nil, err
	}
	report.Collected = len(records)
	log.Info("change-requests collected", "count", len(records), "failed_repositories", len(report.Failures))

	coordinator := enrich.NewCoordinator(s.enrichResolver(), s.items)
	enriched, stats, err := coordinator.Enrich(ctx, records)
	report.Enrichment = stats
	if err != nil {
		return nil, err
	}
	report.Records = enriched

	report.Rows = mapper.New(s.resolver).Map(enriched)
	log.Info("report rows mapped", "rows", len(report.Rows))

	return report, nil
}

func (s *SyncService) records(ctx context.Context, opts SyncOptions, report *Report) ([]models.ChangeRequest, error) {
	if opts.FromJSON != "" {
		logger.Debug(ctx, "reading records from file", "path", opts.FromJSON)
		return jsonio.ReadRecordsFile(opts.FromJSON)
	}

	collection, err := s.collector.Collect(ctx, CollectRequest{
		Repositories: s.repositories,
		Window:       opts.Window,
		Base:         opts.Base,
		Head:         opts.Head,
	})
	if collection != nil {
		report.Failures = collection.Failures
	}
	if err != nil {
		return nil, err
	}
	return collection.Records, nil
}

// enrichResolver is nil without a work item source, so records are kept
// instead of dropped for a failed lookup.
func (s *SyncService) enrichResolver() *resolver.Resolver {
	if s.items == nil {
		return nil
	}
	return s.resolver
}
