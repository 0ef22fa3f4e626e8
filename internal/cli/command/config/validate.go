package config

import (
	"context"

	"github.com/thomas-vilte/shipsheet/internal/cli/flags"
	"github.com/thomas-vilte/shipsheet/internal/config"
	"github.com/thomas-vilte/shipsheet/internal/i18n"
	"github.com/thomas-vilte/shipsheet/internal/ui"
	"github.com/urfave/cli/v3"
)

func (c *ConfigCommandFactory) newValidateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: t.GetMessage("config.validate.usage", 0, nil),
		Action: func(ctx context.Context, command *cli.Command) error {
			if err := cfg.ValidateForSync(); err != nil {
				return err
			}
			ui.PrintSuccess(flags.Output(command), t.GetMessage("config.validate.ok", 0, nil))
			return nil
		},
	}
}
