package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/thomas-vilte/shipsheet/internal/cli/command/config"
	"github.com/thomas-vilte/shipsheet/internal/cli/command/export"
	"github.com/thomas-vilte/shipsheet/internal/cli/command/rules"
	"github.com/thomas-vilte/shipsheet/internal/cli/command/sync"
	"github.com/thomas-vilte/shipsheet/internal/cli/registry"
	cfg "github.com/thomas-vilte/shipsheet/internal/config"
	"github.com/thomas-vilte/shipsheet/internal/di"
	"github.com/thomas-vilte/shipsheet/internal/i18n"
	"github.com/thomas-vilte/shipsheet/internal/logger"
	"github.com/thomas-vilte/shipsheet/internal/ui"
	"github.com/thomas-vilte/shipsheet/internal/version"
	"github.com/urfave/cli/v3"
)

const configEnv = "SHIPSHEET_CONFIG"

func main() {
	app, translations, err := initializeApp()
	if err != nil {
		log.Fatalf("Error starting the cli: %v", err)
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		ui.HandleAppError(os.Stderr, err, translations)
		os.Exit(1)
	}
}

func initializeApp() (*cli.Command, *i18n.Translations, error) {
	cfgApp, err := cfg.LoadConfig(os.Getenv(configEnv))
	if err != nil {
		return nil, nil, err
	}
	cfg.ApplyEnv(cfgApp)

	translations, err := i18n.NewTranslations(cfgApp.Language, "")
	if err != nil {
		return nil, nil, fmt.Errorf("error loading translations: %w", err)
	}

	container := di.NewContainer(cfgApp, translations)

	syncProvider := func(ctx context.Context, sheetFile string) (sync.Runner, error) {
		return container.GetSyncService(ctx, sheetFile)
	}
	reportProvider := func(ctx context.Context) (export.ReportBuilder, error) {
		return container.GetReportService(ctx)
	}

	registerCommand := registry.NewRegistry(cfgApp, translations)

	if err := registerCommand.Register("sync", sync.NewSyncCommandFactory(syncProvider)); err != nil {
		log.Fatalf("Error registering the 'sync' command: %v", err)
	}

	if err := registerCommand.Register("export", export.NewExportCommandFactory(reportProvider)); err != nil {
		log.Fatalf("Error registering the 'export' command: %v", err)
	}

	if err := registerCommand.Register("config", config.NewConfigCommandFactory()); err != nil {
		log.Fatalf("Error registering the 'config' command: %v", err)
	}

	if err := registerCommand.Register("rules", rules.NewRulesCommandFactory()); err != nil {
		log.Fatalf("Error registering the 'rules' command: %v", err)
	}

	commands := registerCommand.CreateCommands()

	helpCommand := &cli.Command{
		Name:    "help",
		Aliases: []string{"h"},
		Usage:   translations.GetMessage("app.help_usage", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
	}
	commands = append(commands, helpCommand)

	return &cli.Command{
		Name:                  "shipsheet",
		Usage:                 translations.GetMessage("app.usage", 0, nil),
		Version:               version.Version,
		Description:           translations.GetMessage("app.about", 0, nil),
		Commands:              commands,
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: translations.GetMessage("app.debug_flag", 0, nil),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: translations.GetMessage("app.verbose_flag", 0, nil),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logger.Initialize(cmd.Bool("debug"), cmd.Bool("verbose"))
			return ctx, nil
		},
	}, translations, nil
}
