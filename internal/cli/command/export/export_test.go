package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thomas-vilte/shipsheet/internal/config"
	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/i18n"
	"github.com/thomas-vilte/shipsheet/internal/jsonio"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/services"
	"github.com/urfave/cli/v3"
)

type mockBuilder struct {
	mock.Mock
}

func (m *mockBuilder) BuildReport(ctx context.Context, opts services.SyncOptions) (*services.Report, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Report), args.Error(1)
}

func newApp(t *testing.T, cfg *config.Config, builder *mockBuilder, out *bytes.Buffer) *cli.Command {
	t.Helper()
	trans, err := i18n.NewTranslations("en", "")
	require.NoError(t, err)

	factory := NewExportCommandFactory(func(ctx context.Context) (ReportBuilder, error) {
		return builder, nil
	})
	factory.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }

	return &cli.Command{
		Name:     "shipsheet",
		Writer:   out,
		Commands: []*cli.Command{factory.CreateCommand(trans, cfg)},
	}
}

func exportConfig() *config.Config {
	cfg := config.Default()
	cfg.Repositories = []config.Repository{{Platform: models.PlatformGitHub, Name: "acme/api"}}
	return cfg
}

func sampleReport() *services.Report {
	return &services.Report{
		RunID:   "run-1",
		Records: []models.ChangeRequest{{Repository: "acme/api", Number: 1}, {Repository: "acme/api", Number: 2}},
		Rows:    []models.ReportRow{{UniqueKey: "101|acme/api", Repository: "acme/api", Feature: "ID101 - Login"}},
	}
}

func TestExportCommand(t *testing.T) {
	t.Run("should write rows to stdout by default", func(t *testing.T) {
		// arrange
		var out bytes.Buffer
		builder := &mockBuilder{}
		builder.On("BuildReport", mock.Anything, mock.Anything).Return(sampleReport(), nil)
		app := newApp(t, exportConfig(), builder, &out)

		// act
		err := app.Run(context.Background(), []string{"shipsheet", "export"})

		// assert
		require.NoError(t, err)
		var doc jsonio.Document
		require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
		assert.Equal(t, jsonio.KindRows, doc.Kind)
		require.Len(t, doc.Rows, 1)
		assert.Equal(t, "101|acme/api", doc.Rows[0].UniqueKey)
	})

	t.Run("should write records to a file that sync can read back", func(t *testing.T) {
		// arrange
		var out bytes.Buffer
		path := filepath.Join(t.TempDir(), "records.json")
		builder := &mockBuilder{}
		builder.On("BuildReport", mock.Anything, mock.MatchedBy(func(opts services.SyncOptions) bool {
			return opts.Base == "v1.0.0" && opts.Head == "main"
		})).Return(sampleReport(), nil)
		app := newApp(t, exportConfig(), builder, &out)

		// act
		err := app.Run(context.Background(), []string{"shipsheet", "export", "--kind", "records", "-o", path, "--base", "v1.0.0", "--head", "main"})

		// assert
		require.NoError(t, err)
		assert.Empty(t, out.String())
		records, err := jsonio.ReadRecordsFile(path)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("should reject an unknown kind", func(t *testing.T) {
		// arrange
		var out bytes.Buffer
		builder := &mockBuilder{}
		app := newApp(t, exportConfig(), builder, &out)

		// act
		err := app.Run(context.Background(), []string{"shipsheet", "export", "--kind", "csv"})

		// assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "csv")
		builder.AssertNotCalled(t, "BuildReport", mock.Anything, mock.Anything)
	})

	t.Run("should need repositories unless records come from a file", func(t *testing.T) {
		// arrange
		var out bytes.Buffer
		builder := &mockBuilder{}
		app := newApp(t, config.Default(), builder, &out)

		// act
		err := app.Run(context.Background(), []string{"shipsheet", "export"})

		// assert
		assert.True(t, errors.Is(err, apperrors.ErrNoRepositories))
	})

	t.Run("should not create the output file when the report fails", func(t *testing.T) {
		// arrange
		var out bytes.Buffer
		path := filepath.Join(t.TempDir(), "rows.json")
		builder := &mockBuilder{}
		builder.On("BuildReport", mock.Anything, mock.Anything).Return(nil, apperrors.ErrNothingCollected)
		app := newApp(t, exportConfig(), builder, &out)

		// act
		err := app.Run(context.Background(), []string{"shipsheet", "export", "-o", path})

		// assert
		assert.True(t, errors.Is(err, apperrors.ErrNothingCollected))
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})
}
