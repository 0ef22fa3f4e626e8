package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/foldset"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/reconcile"
	"github.com/thomas-vilte/shipsheet/internal/schema"
	gsheets "google.golang.org/api/sheets/v4"
)

const spreadsheet = "sheet-id"

func newGoogleStore(t *testing.T, api SpreadsheetAPI) *GoogleStore {
	return NewGoogleStore(api, spreadsheet, "Q2 report", newCodec(t, schema.DefaultMapping()))
}

func ranges(data []*gsheets.ValueRange) []string {
	out := make([]string, len(data))
	for i, d := range data {
		out[i] = d.Range
	}
	return out
}

func TestGoogleStore_Snapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("should decode keyed rows with their row numbers", func(t *testing.T) {
		api := new(MockSpreadsheetAPI)
		store := newGoogleStore(t, api)
		api.On("SheetID", ctx, spreadsheet, "Q2 report").Return(int64(0), nil).Once()
		api.On("Read", ctx, spreadsheet, "'Q2 report'!A1:H").Return([][]interface{}{
			{"Repository", "Feature"},
			{"acme/api", `=HYPERLINK("https://j/ABC-1","ID1 - Login")`, "Core", "Ann", "u1", 45446.5, "1|acme/api", true},
			{},
			{"acme/api", "feature/x", "", "Bo", "u2", "", "0|acme/api|github|abc", "FALSE"},
		}, nil).Once()

		rows, err := store.Snapshot(ctx)

		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 2, rows[0].RowNumber)
		assert.Equal(t, "ID1 - Login", rows[0].Feature)
		assert.Equal(t, "https://j/ABC-1", rows[0].FeatureURL)
		assert.Equal(t, 4, rows[1].RowNumber)
		assert.False(t, rows[1].AutoSync)
		assert.False(t, store.needsHeader)
	})

	t.Run("should fail on a missing tab", func(t *testing.T) {
		api := new(MockSpreadsheetAPI)
		store := newGoogleStore(t, api)
		api.On("SheetID", ctx, spreadsheet, "Q2 report").
			Return(int64(0), apperrors.ErrSheetNotFound.WithContext("sheet", "Q2 report")).Once()

		_, err := store.Snapshot(ctx)

		assert.True(t, errors.Is(err, apperrors.ErrSheetNotFound))
	})

	t.Run("should reject undecodable rows", func(t *testing.T) {
		api := new(MockSpreadsheetAPI)
		store := newGoogleStore(t, api)
		api.On("SheetID", ctx, spreadsheet, "Q2 report").Return(int64(0), nil).Once()
		api.On("Read", ctx, spreadsheet, mock.Anything).Return([][]interface{}{
			{"Repository"},
			{"acme/api", "f", "", "", "", "someday", "k"},
		}, nil).Once()

		_, err := store.Snapshot(ctx)

		assert.True(t, errors.Is(err, apperrors.ErrSheetRead))
	})
}

func TestGoogleStore_Apply(t *testing.T) {
	ctx := context.Background()
	row := func(key string) models.ReportRow {
		return models.ReportRow{UniqueKey: key, Repository: "acme/api", Feature: key, Authors: foldset.New("Ann"), AutoSync: true}
	}

	t.Run("should write updates, inserts and reorders in order", func(t *testing.T) {
		api := new(MockSpreadsheetAPI)
		store := newGoogleStore(t, api)
		plan := &reconcile.Plan{
			Operations: []models.SyncOperation{
				{Kind: models.OperationUpdate, TargetRowNumber: 3, Row: row("u")},
				{Kind: models.OperationInsert, TargetRowNumber: 3, Row: row("a")},
				{Kind: models.OperationInsert, TargetRowNumber: 1, Row: row("b")},
				{Kind: models.OperationInsert, TargetRowNumber: 1, Row: row("c")},
			},
			Reorders: []models.BlockReorder{
				{StartRow: 7, EndRow: 8, Repository: "acme/web", SortedOriginalRowNumbers: []int{8, 7}},
			},
		}

		var calls []string
		api.On("WriteValues", ctx, spreadsheet, mock.MatchedBy(func(data []*gsheets.ValueRange) bool {
			return len(data) == 1 && data[0].Range == "'Q2 report'!A3:H3"
		})).Run(func(mock.Arguments) { calls = append(calls, "update") }).Return(nil).Once()

		api.On("SheetID", ctx, spreadsheet, "Q2 report").Return(int64(0), nil).Once()
		api.On("BatchUpdate", ctx, spreadsheet, mock.MatchedBy(func(reqs []*gsheets.Request) bool {
			if len(reqs) != 2 {
				return false
			}
			first, second := reqs[0].InsertDimension, reqs[1].InsertDimension
			return first.Range.StartIndex == 3 && first.Range.EndIndex == 4 && first.InheritFromBefore &&
				second.Range.StartIndex == 1 && second.Range.EndIndex == 3 && !second.InheritFromBefore &&
				first.Range.Dimension == "ROWS" && first.Range.ForceSendFields[0] == "SheetId"
		})).Run(func(mock.Arguments) { calls = append(calls, "insert rows") }).Return(nil).Once()

		api.On("WriteValues", ctx, spreadsheet, mock.MatchedBy(func(data []*gsheets.ValueRange) bool {
			got := ranges(data)
			return len(got) == 2 && got[0] == "'Q2 report'!A6:H6" && got[1] == "'Q2 report'!A2:H3" &&
				len(data[1].Values) == 2 && data[1].Values[0][6] == "b" && data[1].Values[1][6] == "c"
		})).Run(func(mock.Arguments) { calls = append(calls, "insert values") }).Return(nil).Once()

		api.On("Read", ctx, spreadsheet, "'Q2 report'!A7:H8").Return([][]interface{}{
			{"acme/web", "first", "Web", "", "", "", "k7", true},
			{"acme/web", "second"},
		}, nil).Once()
		api.On("WriteValues", ctx, spreadsheet, mock.MatchedBy(func(data []*gsheets.ValueRange) bool {
			if len(data) != 1 || data[0].Range != "'Q2 report'!A7:H8" {
				return false
			}
			v := data[0].Values
			return v[0][1] == "second" && v[0][6] == "" && len(v[0]) == 8 && v[1][6] == "k7"
		})).Run(func(mock.Arguments) { calls = append(calls, "reorder") }).Return(nil).Once()

		err := store.Apply(ctx, plan)

		require.NoError(t, err)
		assert.Equal(t, []string{"update", "insert rows", "insert values", "reorder"}, calls)
		api.AssertExpectations(t)
	})

	t.Run("should write the header on an empty tab", func(t *testing.T) {
		api := new(MockSpreadsheetAPI)
		store := newGoogleStore(t, api)
		api.On("SheetID", ctx, spreadsheet, "Q2 report").Return(int64(0), nil).Once()
		api.On("Read", ctx, spreadsheet, mock.Anything).Return(nil, nil).Once()
		api.On("WriteValues", ctx, spreadsheet, mock.MatchedBy(func(data []*gsheets.ValueRange) bool {
			return data[0].Range == "'Q2 report'!A1:H1" && data[0].Values[0][0] == "Repository"
		})).Return(nil).Once()

		_, err := store.Snapshot(ctx)
		require.NoError(t, err)
		require.NoError(t, store.Apply(ctx, &reconcile.Plan{}))

		api.AssertExpectations(t)
	})

	t.Run("should stop at the first failing write", func(t *testing.T) {
		api := new(MockSpreadsheetAPI)
		store := newGoogleStore(t, api)
		api.On("WriteValues", ctx, spreadsheet, mock.Anything).Return(apperrors.ErrSheetWrite).Once()

		err := store.Apply(ctx, &reconcile.Plan{Operations: []models.SyncOperation{
			{Kind: models.OperationUpdate, TargetRowNumber: 2, Row: row("u")},
			{Kind: models.OperationInsert, TargetRowNumber: 2, Row: row("v")},
		}})

		assert.True(t, errors.Is(err, apperrors.ErrSheetWrite))
		api.AssertNotCalled(t, "BatchUpdate", mock.Anything, mock.Anything, mock.Anything)
	})
}
