package sheets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/foldset"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/reconcile"
)

func computedRow(key, repo, team string, day int) models.ReportRow {
	merged := time.Date(2024, 6, day, 8, 0, 0, 0, time.UTC)
	return models.ReportRow{
		UniqueKey:  key,
		Repository: repo,
		Feature:    "F " + key,
		Team:       team,
		Authors:    foldset.New("Ann"),
		Links:      foldset.New("https://x/" + key),
		MergedAt:   &merged,
		AutoSync:   true,
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file is an empty sheet", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "report.json"))

		rows, err := store.Snapshot(ctx)

		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("applied plans converge", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "out", "report.json"))
		computed := []models.ReportRow{
			computedRow("1|acme/api", "acme/api", "Core", 1),
			computedRow("2|acme/api", "acme/api", "Web", 2),
			computedRow("3|acme/web", "acme/web", "", 3),
		}

		existing, err := store.Snapshot(ctx)
		require.NoError(t, err)
		plan, err := reconcile.Reconcile(computed, existing)
		require.NoError(t, err)
		require.NoError(t, store.Apply(ctx, plan))

		rows, err := store.Snapshot(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, 2, rows[0].RowNumber)
		assert.Equal(t, "1|acme/api", rows[0].UniqueKey)
		assert.Equal(t, []string{"Ann"}, rows[0].Authors.Values())

		again, err := reconcile.Reconcile(computed, rows)
		require.NoError(t, err)
		assert.True(t, again.Empty())
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.json")
		require.NoError(t, os.WriteFile(path, []byte("[oops"), 0644))

		_, err := NewFileStore(path).Snapshot(ctx)

		assert.True(t, errors.Is(err, apperrors.ErrSheetRead))
	})
}
