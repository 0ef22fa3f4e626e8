package reconcile

import (
	"fmt"
	"sort"

	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/models"
)

// Apply plays a plan against an in-memory snapshot and returns the resulting
// rows with their new row numbers. Row numbers missing from the snapshot are
// treated as blank sheet rows.
func Apply(existing []models.ReportRow, plan *Plan) ([]models.ReportRow, error) {
	maxRow := models.HeaderRow
	for _, row := range existing {
		if row.RowNumber <= models.HeaderRow {
			return nil, apperrors.ErrInvalidInput.WithContext("detail",
				fmt.Sprintf("row %q has row number %d", row.UniqueKey, row.RowNumber))
		}
		if row.RowNumber > maxRow {
			maxRow = row.RowNumber
		}
	}

	// grid[n] is sheet row n; nil entries are blank rows and the header
	grid := make([]*models.ReportRow, maxRow+1)
	for _, row := range existing {
		r := row.Clone()
		grid[row.RowNumber] = &r
	}

	for _, op := range plan.Operations {
		if op.Kind != models.OperationUpdate {
			continue
		}
		if op.TargetRowNumber >= len(grid) || grid[op.TargetRowNumber] == nil {
			return nil, apperrors.ErrInvalidInput.WithContext("detail",
				fmt.Sprintf("update targets empty row %d", op.TargetRowNumber))
		}
		r := op.Row.Clone()
		grid[op.TargetRowNumber] = &r
	}

	for _, batch := range InsertBatches(plan.Operations) {
		if batch.Anchor < models.HeaderRow || batch.Anchor >= len(grid) {
			return nil, apperrors.ErrInvalidInput.WithContext("detail",
				fmt.Sprintf("insert anchored at row %d outside the sheet", batch.Anchor))
		}
		added := make([]*models.ReportRow, len(batch.Rows))
		for i, row := range batch.Rows {
			r := row.Clone()
			added[i] = &r
		}
		tail := append(added, grid[batch.Anchor+1:]...)
		grid = append(grid[:batch.Anchor+1], tail...)
	}

	for _, reorder := range plan.Reorders {
		if err := reorder.Validate(); err != nil {
			return nil, apperrors.ErrInvalidReorder.WithError(err)
		}
		if reorder.EndRow >= len(grid) {
			return nil, apperrors.ErrInvalidInput.WithContext("detail",
				fmt.Sprintf("reorder range %d..%d outside the sheet", reorder.StartRow, reorder.EndRow))
		}
		original := make([]*models.ReportRow, reorder.EndRow-reorder.StartRow+1)
		copy(original, grid[reorder.StartRow:reorder.EndRow+1])
		for i, from := range reorder.SortedOriginalRowNumbers {
			grid[reorder.StartRow+i] = original[from-reorder.StartRow]
		}
	}

	out := make([]models.ReportRow, 0, len(grid))
	for n, row := range grid {
		if row == nil {
			continue
		}
		r := *row
		r.RowNumber = n
		out = append(out, r)
	}
	return out, nil
}

// InsertBatch is every inserted row sharing one anchor, in plan order.
type InsertBatch struct {
	Anchor int
	Rows   []models.ReportRow
}

// InsertBatches groups the inserts of a plan by anchor, bottom-most anchor
// first, which is the order in which they must be applied.
func InsertBatches(ops []models.SyncOperation) []InsertBatch {
	idx := make(map[int]int)
	var batches []InsertBatch
	for _, op := range ops {
		if op.Kind != models.OperationInsert {
			continue
		}
		i, ok := idx[op.TargetRowNumber]
		if !ok {
			i = len(batches)
			idx[op.TargetRowNumber] = i
			batches = append(batches, InsertBatch{Anchor: op.TargetRowNumber})
		}
		batches[i].Rows = append(batches[i].Rows, op.Row)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].Anchor > batches[j].Anchor })
	return batches
}
