package jsonio

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/foldset"
	"github.com/thomas-vilte/shipsheet/internal/models"
)

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func TestRecords(t *testing.T) {
	merged := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
	records := []models.ChangeRequest{{
		Platform:     models.PlatformGitHub,
		Number:       7,
		Title:        "Login",
		SourceBranch: "feature/12-login",
		Repository:   "acme/api",
		Author:       "ann",
		MergedAt:     &merged,
		CreatedAt:    merged.Add(-time.Hour),
	}}

	t.Run("should read back an exported document", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteRecords(&buf, records, now))
		assert.Contains(t, buf.String(), `"kind": "records"`)

		got, err := ReadRecords(&buf)

		require.NoError(t, err)
		assert.Equal(t, records, got)
	})

	t.Run("should accept a bare array", func(t *testing.T) {
		got, err := ReadRecords(strings.NewReader(`[{"platform": "gitlab", "number": 3, "repository": "acme/shop"}]`))

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "acme/shop", got[0].Repository)
	})

	t.Run("should refuse a rows document", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteRows(&buf, []models.ReportRow{{UniqueKey: "1|a", Authors: foldset.New("x")}}, now))

		_, err := ReadRecords(&buf)

		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("should refuse garbage", func(t *testing.T) {
		_, err := ReadRecords(strings.NewReader("nope"))

		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	})
}
