// Package flags holds the flags shared by the commands that collect
// change-requests.
package flags

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/thomas-vilte/shipsheet/internal/i18n"
	"github.com/thomas-vilte/shipsheet/internal/services"
	"github.com/thomas-vilte/shipsheet/internal/vcs"
	"github.com/urfave/cli/v3"
)

const (
	Since    = "since"
	Until    = "until"
	Days     = "days"
	Base     = "base"
	Head     = "head"
	FromJSON = "from-json"

	DefaultDays = 7
)

const dateLayout = "2006-01-02"

// Collection returns the flags selecting which change-requests are read.
func Collection(t *i18n.Translations) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  Since,
			Usage: t.GetMessage("flags.since", 0, nil),
		},
		&cli.StringFlag{
			Name:  Until,
			Usage: t.GetMessage("flags.until", 0, nil),
		},
		&cli.IntFlag{
			Name:  Days,
			Value: DefaultDays,
			Usage: t.GetMessage("flags.days", 0, nil),
		},
		&cli.StringFlag{
			Name:  Base,
			Usage: t.GetMessage("flags.base", 0, nil),
		},
		&cli.StringFlag{
			Name:  Head,
			Usage: t.GetMessage("flags.head", 0, nil),
		},
		&cli.StringFlag{
			Name:  FromJSON,
			Usage: t.GetMessage("flags.from_json", 0, nil),
		},
	}
}

// SyncOptions reads the collection flags. Without --since the window starts
// --days days before now, at midnight UTC.
func SyncOptions(cmd *cli.Command, t *i18n.Translations, now time.Time) (services.SyncOptions, error) {
	opts := services.SyncOptions{
		Base:     cmd.String(Base),
		Head:     cmd.String(Head),
		FromJSON: cmd.String(FromJSON),
	}

	if (opts.Base == "") != (opts.Head == "") {
		return opts, fmt.Errorf("%s", t.GetMessage("flags.base_head_pair", 0, nil))
	}

	since, err := parseDate(t, Since, cmd.String(Since))
	if err != nil {
		return opts, err
	}
	until, err := parseDate(t, Until, cmd.String(Until))
	if err != nil {
		return opts, err
	}
	if since.IsZero() {
		days := int(cmd.Int(Days))
		if days <= 0 {
			days = DefaultDays
		}
		midnight := now.UTC().Truncate(24 * time.Hour)
		since = midnight.AddDate(0, 0, -days)
	}
	if !until.IsZero() && !since.Before(until) {
		return opts, fmt.Errorf("%s", t.GetMessage("flags.window_order", 0, nil))
	}

	opts.Window = vcs.Window{Since: since, Until: until}
	return opts, nil
}

func parseDate(t *i18n.Translations, flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s", t.GetMessage("flags.invalid_date", 0, map[string]interface{}{
		"Value": value,
		"Flag":  flag,
	}))
}

// Output is where a command prints, stdout unless the root command says
// otherwise.
func Output(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}
