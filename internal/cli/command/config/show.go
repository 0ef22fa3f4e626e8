package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/thomas-vilte/shipsheet/internal/cli/flags"
	"github.com/thomas-vilte/shipsheet/internal/config"
	"github.com/thomas-vilte/shipsheet/internal/i18n"
	"github.com/thomas-vilte/shipsheet/internal/ui"
	"github.com/urfave/cli/v3"
)

const secretMask = "********"

func (c *ConfigCommandFactory) newShowCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: t.GetMessage("config.show.usage", 0, nil),
		Action: func(ctx context.Context, command *cli.Command) error {
			w := flags.Output(command)

			data, err := json.MarshalIndent(masked(cfg), "", "  ")
			if err != nil {
				return fmt.Errorf("error encoding config: %w", err)
			}

			ui.PrintSectionBanner(w, t.GetMessage("config.show.header", 0, nil))
			_, _ = fmt.Fprintln(w, t.GetMessage("config.path", 0, map[string]interface{}{"Path": cfg.PathFile}))
			_, _ = fmt.Fprintln(w, string(data))
			return nil
		},
	}
}

// masked returns a copy of cfg whose secrets only tell whether they are set.
func masked(cfg *config.Config) config.Config {
	out := *cfg
	mask := func(s *string) {
		if *s != "" {
			*s = secretMask
		}
	}
	mask(&out.GitHub.Token)
	mask(&out.GitLab.Token)
	mask(&out.Jira.APIToken)
	return out
}
