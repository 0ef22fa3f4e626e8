package flags

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomas-vilte/shipsheet/internal/i18n"
	"github.com/thomas-vilte/shipsheet/internal/services"
	"github.com/urfave/cli/v3"
)

func parse(t *testing.T, now time.Time, args ...string) (services.SyncOptions, error) {
	t.Helper()
	trans, err := i18n.NewTranslations("en", "")
	require.NoError(t, err)

	var (
		opts     services.SyncOptions
		parseErr error
	)
	cmd := &cli.Command{
		Name:  "test",
		Flags: Collection(trans),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, parseErr = SyncOptions(cmd, trans, now)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...)))
	return opts, parseErr
}

func TestSyncOptions(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)

	t.Run("should default to the last seven days", func(t *testing.T) {
		// act
		opts, err := parse(t, now)

		// assert
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), opts.Window.Since)
		assert.True(t, opts.Window.Until.IsZero())
	})

	t.Run("should honour --days", func(t *testing.T) {
		// act
		opts, err := parse(t, now, "--days", "1")

		// assert
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), opts.Window.Since)
	})

	t.Run("should parse dates and timestamps", func(t *testing.T) {
		// act
		opts, err := parse(t, now, "--since", "2024-04-01", "--until", "2024-04-30T12:00:00-03:00")

		// assert
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), opts.Window.Since)
		assert.Equal(t, time.Date(2024, 4, 30, 15, 0, 0, 0, time.UTC), opts.Window.Until)
	})

	t.Run("should reject a malformed date", func(t *testing.T) {
		// act
		_, err := parse(t, now, "--since", "01/04/2024")

		// assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--since")
	})

	t.Run("should reject an empty window", func(t *testing.T) {
		// act
		_, err := parse(t, now, "--since", "2024-04-02", "--until", "2024-04-01")

		// assert
		assert.Error(t, err)
	})

	t.Run("should require base and head together", func(t *testing.T) {
		// act
		_, err := parse(t, now, "--base", "v1.0.0")

		// assert
		assert.Error(t, err)
	})

	t.Run("should read comparison and file flags", func(t *testing.T) {
		// act
		opts, err := parse(t, now, "--base", "v1.0.0", "--head", "main", "--from-json", "records.json")

		// assert
		require.NoError(t, err)
		assert.Equal(t, "v1.0.0", opts.Base)
		assert.Equal(t, "main", opts.Head)
		assert.Equal(t, "records.json", opts.FromJSON)
	})
}
