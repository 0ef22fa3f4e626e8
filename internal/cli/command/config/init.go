package config

import (
	"context"
	"os"

	"github.com/thomas-vilte/shipsheet/internal/cli/flags"
	"github.com/thomas-vilte/shipsheet/internal/config"
	"github.com/thomas-vilte/shipsheet/internal/i18n"
	"github.com/thomas-vilte/shipsheet/internal/ui"
	"github.com/urfave/cli/v3"
)

func (c *ConfigCommandFactory) newInitCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: t.GetMessage("config.init.usage", 0, nil),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   t.GetMessage("config.init.force_flag", 0, nil),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			w := flags.Output(command)
			data := map[string]interface{}{"Path": cfg.PathFile}

			if _, err := os.Stat(cfg.PathFile); err == nil && !command.Bool("force") {
				ui.PrintInfo(w, t.GetMessage("config.init.exists", 0, data))
				return nil
			}

			fresh := config.Default()
			fresh.PathFile = cfg.PathFile
			fresh.Language = cfg.Language
			if err := config.SaveConfig(fresh); err != nil {
				return err
			}
			*cfg = *fresh

			ui.PrintSuccess(w, t.GetMessage("config.init.created", 0, data))
			return nil
		},
	}
}
