package di

import (
	"context"
	"time"

	"github.com/thomas-vilte/shipsheet/internal/cache"
	"github.com/thomas-vilte/shipsheet/internal/config"
	"github.com/thomas-vilte/shipsheet/internal/enrich"
	"github.com/thomas-vilte/shipsheet/internal/httpclient"
	"github.com/thomas-vilte/shipsheet/internal/i18n"
	"github.com/thomas-vilte/shipsheet/internal/logger"
	"github.com/thomas-vilte/shipsheet/internal/resolver"
	"github.com/thomas-vilte/shipsheet/internal/services"
	"github.com/thomas-vilte/shipsheet/internal/sheets"
	"github.com/thomas-vilte/shipsheet/internal/tracker"
	"github.com/thomas-vilte/shipsheet/internal/tracker/jira"
	"github.com/thomas-vilte/shipsheet/internal/vcs"
	"github.com/thomas-vilte/shipsheet/internal/vcs/github"
	"github.com/thomas-vilte/shipsheet/internal/vcs/gitlab"
)

// Container builds the application's collaborators from the configuration.
type Container struct {
	config       *config.Config
	translations *i18n.Translations
	httpClient   httpclient.HTTPClient
	cacheDir     string

	// lazy initialized
	vcsRegistry *vcs.Registry
	resolver    *resolver.Resolver
	items       enrich.WorkItemSource
	itemsReady  bool
}

func NewContainer(cfg *config.Config, trans *i18n.Translations) *Container {
	return &Container{
		config:       cfg,
		translations: trans,
		httpClient:   httpclient.New(httpclient.DefaultTimeout),
	}
}

// SetHTTPClient replaces the client used for GitLab and Jira.
func (c *Container) SetHTTPClient(client httpclient.HTTPClient) {
	c.httpClient = client
}

// SetCacheDir overrides the work item cache location.
func (c *Container) SetCacheDir(dir string) {
	c.cacheDir = dir
}

// SetVCSRegistry replaces the platform sources.
func (c *Container) SetVCSRegistry(registry *vcs.Registry) {
	c.vcsRegistry = registry
}

func (c *Container) GetConfig() *config.Config {
	return c.config
}

func (c *Container) GetTranslations() *i18n.Translations {
	return c.translations
}

// GetVCSRegistry returns the GitHub and GitLab sources.
func (c *Container) GetVCSRegistry() *vcs.Registry {
	if c.vcsRegistry != nil {
		return c.vcsRegistry
	}

	registry := vcs.NewRegistry()
	registry.Register(github.NewGitHubClient(c.config.GitHub.Token))
	registry.Register(gitlab.NewGitLabClient(c.config.GitLab.BaseURL, c.config.GitLab.Token, c.httpClient))
	c.vcsRegistry = registry
	return registry
}

func (c *Container) GetResolver(ctx context.Context) (*resolver.Resolver, error) {
	if c.resolver != nil {
		return c.resolver, nil
	}

	res, err := resolver.New(c.config.Extraction.Rules, c.config.Extraction.OnFailure, resolver.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	c.resolver = res
	return res, nil
}

// GetWorkItemSource returns the Jira source, cached on disk when
// cache_ttl_hours is positive. It is nil when Jira is not configured.
func (c *Container) GetWorkItemSource(ctx context.Context) (enrich.WorkItemSource, error) {
	if c.itemsReady {
		return c.items, nil
	}

	if !c.config.JiraEnabled() {
		logger.Info(ctx, "jira not configured, work items will not be looked up")
		c.itemsReady = true
		return nil, nil
	}

	var items enrich.WorkItemSource = jira.NewJiraService(jira.Options{
		BaseURL:    c.config.Jira.BaseURL,
		Email:      c.config.Jira.Email,
		APIToken:   c.config.Jira.APIToken,
		ProjectKey: c.config.Jira.ProjectKey,
		TeamField:  c.config.Jira.TeamField,
	}, c.httpClient)

	if c.config.CacheTTLHours > 0 {
		dir := c.cacheDir
		if dir == "" {
			var err error
			if dir, err = cache.DefaultDir(); err != nil {
				return nil, err
			}
		}
		store, err := cache.NewCache(dir, time.Duration(c.config.CacheTTLHours)*time.Hour)
		if err != nil {
			return nil, err
		}
		if err := store.CleanExpired(); err != nil {
			logger.Debug(ctx, "could not clean expired cache entries", "error", err)
		}
		items = tracker.NewCachedSource(items, store, c.config.Jira.BaseURL+"/"+c.config.Jira.ProjectKey)
	}

	c.items = items
	c.itemsReady = true
	return items, nil
}

// GetStore returns the report destination. sheetFile, or sheet.file in the
// config, selects a local JSON sheet; otherwise the Google spreadsheet is
// used.
func (c *Container) GetStore(ctx context.Context, sheetFile string) (sheets.Store, error) {
	if sheetFile == "" {
		sheetFile = c.config.Sheet.File
	}
	if sheetFile != "" {
		logger.Debug(ctx, "using local sheet file", "path", sheetFile)
		return sheets.NewFileStore(sheetFile), nil
	}

	codec, err := sheets.NewCodec(c.config.Sheet.Columns)
	if err != nil {
		return nil, err
	}
	api, err := sheets.NewGoogleService(ctx, c.config.Sheet.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return sheets.NewGoogleStore(api, c.config.Sheet.SpreadsheetID, c.config.Sheet.SheetName, codec), nil
}

// GetSyncService wires a sync that writes to the store chosen by GetStore.
func (c *Container) GetSyncService(ctx context.Context, sheetFile string) (*services.SyncService, error) {
	store, err := c.GetStore(ctx, sheetFile)
	if err != nil {
		return nil, err
	}
	return c.newSyncService(ctx, store)
}

// GetReportService wires a sync service without a destination, for building
// reports only.
func (c *Container) GetReportService(ctx context.Context) (*services.SyncService, error) {
	return c.newSyncService(ctx, nil)
}

func (c *Container) newSyncService(ctx context.Context, store sheets.Store) (*services.SyncService, error) {
	res, err := c.GetResolver(ctx)
	if err != nil {
		return nil, err
	}
	items, err := c.GetWorkItemSource(ctx)
	if err != nil {
		return nil, err
	}

	collector := services.NewCollector(c.GetVCSRegistry(), c.config.Concurrency)
	return services.NewSyncService(c.config.Repositories, collector, res, items, store), nil
}
