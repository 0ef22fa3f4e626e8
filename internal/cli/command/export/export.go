package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/thomas-vilte/shipsheet/internal/cli/flags"
	"github.com/thomas-vilte/shipsheet/internal/config"
	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/i18n"
	"github.com/thomas-vilte/shipsheet/internal/jsonio"
	"github.com/thomas-vilte/shipsheet/internal/services"
	"github.com/thomas-vilte/shipsheet/internal/ui"
	"github.com/urfave/cli/v3"
)

type ReportBuilder interface {
	BuildReport(ctx context.Context, opts services.SyncOptions) (*services.Report, error)
}

type ReportBuilderProvider func(ctx context.Context) (ReportBuilder, error)

type ExportCommandFactory struct {
	provider ReportBuilderProvider
	now      func() time.Time
}

func NewExportCommandFactory(provider ReportBuilderProvider) *ExportCommandFactory {
	return &ExportCommandFactory{
		provider: provider,
		now:      time.Now,
	}
}

func (f *ExportCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: t.GetMessage("export.usage", 0, nil),
		Flags: append(flags.Collection(t),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   t.GetMessage("export.output_flag", 0, nil),
			},
			&cli.StringFlag{
				Name:  "kind",
				Value: jsonio.KindRows,
				Usage: t.GetMessage("export.kind_flag", 0, nil),
			},
		),
		Action: f.exportAction(t, cfg),
	}
}

func (f *ExportCommandFactory) exportAction(t *i18n.Translations, cfg *config.Config) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		kind := cmd.String("kind")
		if kind != jsonio.KindRows && kind != jsonio.KindRecords {
			return fmt.Errorf("%s", t.GetMessage("export.invalid_kind", 0, map[string]interface{}{"Kind": kind}))
		}

		opts, err := flags.SyncOptions(cmd, t, f.now())
		if err != nil {
			return err
		}
		if opts.FromJSON == "" && len(cfg.Repositories) == 0 {
			return apperrors.ErrNoRepositories
		}

		builder, err := f.provider(ctx)
		if err != nil {
			return err
		}

		var report *services.Report
		err = ui.WithSpinner(t.GetMessage("export.usage", 0, nil), func() error {
			var buildErr error
			report, buildErr = builder.BuildReport(ctx, opts)
			return buildErr
		})
		if err != nil {
			return err
		}

		output := cmd.String("output")
		if output == "" {
			return write(flags.Output(cmd), kind, report, f.now())
		}

		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("error creating %s: %w", output, err)
		}
		if err := write(file, kind, report, f.now()); err != nil {
			_ = file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("error closing %s: %w", output, err)
		}

		count := len(report.Rows)
		if kind == jsonio.KindRecords {
			count = len(report.Records)
		}
		ui.PrintSuccess(os.Stderr, t.GetMessage("export.written", 0, map[string]interface{}{
			"Count": count,
			"Kind":  kind,
			"Path":  output,
		}))
		return nil
	}
}

func write(w io.Writer, kind string, report *services.Report, now time.Time) error {
	if kind == jsonio.KindRecords {
		return jsonio.WriteRecords(w, report.Records, now)
	}
	return jsonio.WriteRows(w, report.Rows, now)
}
