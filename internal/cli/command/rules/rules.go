package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/thomas-vilte/shipsheet/internal/cli/flags"
	"github.com/thomas-vilte/shipsheet/internal/config"
	"github.com/thomas-vilte/shipsheet/internal/i18n"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/resolver"
	"github.com/thomas-vilte/shipsheet/internal/ui"
	"github.com/urfave/cli/v3"
)

type RulesCommandFactory struct{}

func NewRulesCommandFactory() *RulesCommandFactory {
	return &RulesCommandFactory{}
}

func (f *RulesCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: t.GetMessage("rules.usage", 0, nil),
		Commands: []*cli.Command{
			f.newListCommand(t, cfg),
			f.newTestCommand(t, cfg),
		},
	}
}

func (f *RulesCommandFactory) newListCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: t.GetMessage("rules.list.usage", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w := flags.Output(cmd)
			for i, rule := range cfg.Extraction.Rules {
				_, _ = fmt.Fprintln(w, t.GetMessage("rules.list.rule", 0, map[string]interface{}{
					"Index":         i + 1,
					"Name":          rule.Name,
					"Pattern":       rule.Pattern,
					"Group":         rule.CaptureGroup,
					"CaseSensitive": rule.CaseSensitive,
				}))
			}
			policy := cfg.Extraction.OnFailure
			if policy == "" {
				policy = models.PolicyWarn
			}
			_, _ = fmt.Fprintln(w, ui.Dim.Sprint(t.GetMessage("rules.list.policy", 0, map[string]interface{}{"Policy": policy})))
			return nil
		},
	}
}

// newTestCommand resolves each argument on its own, the way a branch name or
// a title is tried during a sync.
func (f *RulesCommandFactory) newTestCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "test",
		Usage:     t.GetMessage("rules.test.usage", 0, nil),
		ArgsUsage: t.GetMessage("rules.test.args_usage", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			texts := cmd.Args().Slice()
			if len(texts) == 0 {
				return fmt.Errorf("%s", t.GetMessage("rules.test.text_required", 0, nil))
			}

			res, err := resolver.New(cfg.Extraction.Rules, cfg.Extraction.OnFailure, resolver.WithContext(ctx))
			if err != nil {
				return err
			}

			w := flags.Output(cmd)
			for _, text := range texts {
				text = strings.TrimSpace(text)
				id, rule, ok := res.Match(text)
				data := map[string]interface{}{"Text": text, "ID": id, "Rule": rule}
				switch {
				case !ok:
					ui.PrintWarning(w, t.GetMessage("rules.test.no_match", 0, data))
				case id == models.PlaceholderID:
					ui.PrintInfo(w, t.GetMessage("rules.test.placeholder", 0, data))
				default:
					ui.PrintSuccess(w, t.GetMessage("rules.test.matched", 0, data))
				}
			}
			return nil
		},
	}
}
