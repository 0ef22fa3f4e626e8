package ui

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/i18n"
)

func init() {
	color.NoColor = true
}

func TestHandleAppError(t *testing.T) {
	trans, err := i18n.NewTranslations("en", "")
	require.NoError(t, err)

	t.Run("should print type, cause and suggestion of an AppError", func(t *testing.T) {
		// arrange
		var buf bytes.Buffer
		appErr := apperrors.ErrSheetWrite.
			WithError(fmt.Errorf("403 forbidden")).
			WithContext("detail", "range 'Report'!A2:H")

		// act
		HandleAppError(&buf, fmt.Errorf("sync: %w", appErr), trans)

		// assert
		out := buf.String()
		assert.Contains(t, out, "SHEETS: Failed to write spreadsheet")
		assert.Contains(t, out, "range 'Report'!A2:H")
		assert.Contains(t, out, "403 forbidden")
		assert.Contains(t, out, "Suggestion: Share the spreadsheet")
	})

	t.Run("should print plain errors", func(t *testing.T) {
		// arrange
		var buf bytes.Buffer

		// act
		HandleAppError(&buf, fmt.Errorf("boom"), nil)

		// assert
		assert.Contains(t, buf.String(), "Error: boom")
	})

	t.Run("should ignore nil", func(t *testing.T) {
		// arrange
		var buf bytes.Buffer

		// act
		HandleAppError(&buf, nil, trans)

		// assert
		assert.Empty(t, buf.String())
	})
}

func TestWithSpinner(t *testing.T) {
	t.Run("should return the error of the wrapped function", func(t *testing.T) {
		// act
		err := WithSpinner("working", func() error { return fmt.Errorf("failed") })

		// assert
		assert.EqualError(t, err, "failed")
	})
}

func TestPrinters(t *testing.T) {
	t.Run("should write to the given writer", func(t *testing.T) {
		// arrange
		var buf bytes.Buffer

		// act
		PrintSuccess(&buf, "done")
		PrintWarning(&buf, "careful")
		PrintKeyValue(&buf, "Rows", "3")

		// assert
		out := buf.String()
		assert.Contains(t, out, "done")
		assert.Contains(t, out, "careful")
		assert.Contains(t, out, "Rows: 3")
	})
}
