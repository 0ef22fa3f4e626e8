package sync

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/thomas-vilte/shipsheet/internal/cli/flags"
	"github.com/thomas-vilte/shipsheet/internal/config"
	"github.com/thomas-vilte/shipsheet/internal/i18n"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/services"
	"github.com/thomas-vilte/shipsheet/internal/ui"
	"github.com/urfave/cli/v3"
)

type Runner interface {
	Run(ctx context.Context, opts services.SyncOptions) (*services.SyncResult, error)
}

// RunnerProvider builds the sync for a destination; sheetFile overrides the
// configured one when set.
type RunnerProvider func(ctx context.Context, sheetFile string) (Runner, error)

type SyncCommandFactory struct {
	provider RunnerProvider
	now      func() time.Time
}

func NewSyncCommandFactory(provider RunnerProvider) *SyncCommandFactory {
	return &SyncCommandFactory{
		provider: provider,
		now:      time.Now,
	}
}

func (f *SyncCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: t.GetMessage("sync.usage", 0, nil),
		Flags: append(flags.Collection(t),
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   t.GetMessage("sync.dry_run_flag", 0, nil),
			},
			&cli.StringFlag{
				Name:  "sheet-file",
				Usage: t.GetMessage("sync.sheet_file_flag", 0, nil),
			},
		),
		Action: f.syncAction(t, cfg),
	}
}

func (f *SyncCommandFactory) syncAction(t *i18n.Translations, cfg *config.Config) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		opts, err := flags.SyncOptions(cmd, t, f.now())
		if err != nil {
			return err
		}
		opts.DryRun = cmd.Bool("dry-run")
		sheetFile := cmd.String("sheet-file")

		if opts.FromJSON == "" {
			check := *cfg
			if sheetFile != "" {
				check.Sheet.File = sheetFile
			}
			if err := check.ValidateForSync(); err != nil {
				return err
			}
		}

		runner, err := f.provider(ctx, sheetFile)
		if err != nil {
			return err
		}

		var result *services.SyncResult
		err = ui.WithSpinner(t.GetMessage("sync.usage", 0, nil), func() error {
			var runErr error
			result, runErr = runner.Run(ctx, opts)
			return runErr
		})
		if err != nil {
			return err
		}

		printResult(flags.Output(cmd), t, result, opts.DryRun)
		return nil
	}
}

func printResult(w io.Writer, t *i18n.Translations, result *services.SyncResult, dryRun bool) {
	ui.PrintSectionBanner(w, t.GetMessage("sync.header", 0, nil))
	_, _ = fmt.Fprintln(w, ui.Dim.Sprint(t.GetMessage("sync.run_id", 0, map[string]interface{}{"RunID": result.RunID})))

	for _, failure := range result.Failures {
		ui.PrintWarning(w, t.GetMessage("sync.repository_failed", 0, map[string]interface{}{
			"Repository": failure.Repository.String(),
			"Error":      failure.Err.Error(),
		}))
	}

	_, _ = fmt.Fprintln(w, t.GetMessage("sync.records", 0, map[string]interface{}{"Count": result.Collected}))
	_, _ = fmt.Fprintln(w, t.GetMessage("sync.enrichment", 0, map[string]interface{}{
		"Resolved":    result.Enrichment.Resolved,
		"Placeholder": result.Enrichment.Placeholder,
		"Unresolved":  result.Enrichment.Unresolved,
		"Dropped":     result.Enrichment.Dropped,
	}))
	_, _ = fmt.Fprintln(w, t.GetMessage("sync.rows", 0, map[string]interface{}{"Count": len(result.Rows)}))

	if result.Plan == nil {
		return
	}
	stats := result.Plan.Stats
	_, _ = fmt.Fprintln(w, t.GetMessage("sync.plan", 0, map[string]interface{}{
		"Updated":   stats.Updated,
		"Inserted":  stats.Inserted,
		"Unchanged": stats.Unchanged,
		"Frozen":    stats.Frozen,
		"Reordered": stats.Reordered,
	}))
	_, _ = fmt.Fprintln(w)

	switch {
	case result.Plan.Empty():
		ui.PrintSuccess(w, t.GetMessage("sync.up_to_date", 0, nil))
	case dryRun:
		printPlan(w, t, result)
		ui.PrintInfo(w, t.GetMessage("sync.dry_run", 0, nil))
	case result.Applied:
		ui.PrintSuccess(w, t.GetMessage("sync.applied", 0, nil))
	}
}

func printPlan(w io.Writer, t *i18n.Translations, result *services.SyncResult) {
	for _, op := range result.Plan.Operations {
		id := "sync.op_update"
		if op.Kind == models.OperationInsert {
			id = "sync.op_insert"
		}
		_, _ = fmt.Fprintf(w, "  %s\n", t.GetMessage(id, 0, map[string]interface{}{
			"Row":     op.TargetRowNumber,
			"Feature": op.Row.Feature,
			"Key":     op.Row.UniqueKey,
		}))
	}
	for _, reorder := range result.Plan.Reorders {
		_, _ = fmt.Fprintf(w, "  %s\n", t.GetMessage("sync.op_reorder", 0, map[string]interface{}{
			"Start":      reorder.StartRow,
			"End":        reorder.EndRow,
			"Repository": reorder.Repository,
		}))
	}
	_, _ = fmt.Fprintln(w)
}
