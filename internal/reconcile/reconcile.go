// Package reconcile compares freshly mapped rows with a sheet snapshot and
// plans the writes that bring the sheet up to date.
//
// A plan is applied in three phases: updates (addressed by snapshot row
// numbers), inserts (each placed after its anchor row, applied bottom-up so
// anchors stay valid) and block reorders (addressed by row numbers after the
// inserts). A reorder covers the rows inserted at the end of its block, so one
// applied plan leaves every block sorted.
package reconcile

import (
	"fmt"
	"sort"

	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/mapper"
	"github.com/thomas-vilte/shipsheet/internal/models"
)

type Stats struct {
	Updated   int `json:"updated"`
	Inserted  int `json:"inserted"`
	Unchanged int `json:"unchanged"`
	Frozen    int `json:"frozen"`
	Reordered int `json:"reordered"`
}

type Plan struct {
	Operations []models.SyncOperation `json:"operations"`
	Reorders   []models.BlockReorder  `json:"reorders"`
	Stats      Stats                  `json:"stats"`
}

// Empty reports whether applying the plan would change nothing.
func (p *Plan) Empty() bool {
	return len(p.Operations) == 0 && len(p.Reorders) == 0
}

// run is a maximal range of consecutive snapshot rows of one repository.
type run struct {
	repository string
	start, end int
}

// Reconcile plans the operations turning existing into a sheet that holds
// every computed row. Existing rows are matched by UniqueKey only.
func Reconcile(computed, existing []models.ReportRow) (*Plan, error) {
	if err := validateExisting(existing); err != nil {
		return nil, err
	}
	if err := validateComputed(computed); err != nil {
		return nil, err
	}

	snapshot := make([]models.ReportRow, len(existing))
	copy(snapshot, existing)
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].RowNumber < snapshot[j].RowNumber })

	byKey := make(map[string]models.ReportRow, len(snapshot))
	current := make(map[int]models.ReportRow, len(snapshot))
	for _, row := range snapshot {
		byKey[row.UniqueKey] = row
		current[row.RowNumber] = row
	}

	runs := splitRuns(snapshot)
	anchorFor := make(map[string]int)
	for _, r := range runs {
		anchorFor[r.repository] = r.end
	}

	plan := &Plan{}
	var anchors []int
	insertedAt := make(map[int][]models.ReportRow)

	for _, row := range computed {
		ex, ok := byKey[row.UniqueKey]
		if !ok {
			anchor, found := anchorFor[row.Repository]
			if !found {
				anchor = models.HeaderRow
			}
			ins := row.Clone()
			ins.RowNumber = 0
			plan.Operations = append(plan.Operations, models.SyncOperation{
				Kind:            models.OperationInsert,
				TargetRowNumber: anchor,
				Row:             ins,
			})
			anchors = append(anchors, anchor)
			insertedAt[anchor] = append(insertedAt[anchor], ins)
			plan.Stats.Inserted++
			continue
		}

		if !ex.AutoSync {
			plan.Stats.Frozen++
			continue
		}

		merged := Merge(ex, row)
		if merged.SameContent(ex) {
			plan.Stats.Unchanged++
			continue
		}
		merged.RowNumber = ex.RowNumber
		current[ex.RowNumber] = merged
		plan.Operations = append(plan.Operations, models.SyncOperation{
			Kind:            models.OperationUpdate,
			TargetRowNumber: ex.RowNumber,
			Row:             merged,
		})
		plan.Stats.Updated++
	}

	for _, r := range runs {
		reorder, ok := planReorder(r, current, anchors, insertedAt[r.end])
		if !ok {
			continue
		}
		if err := reorder.Validate(); err != nil {
			return nil, apperrors.ErrInvalidReorder.WithError(err).WithContext("repository", r.repository)
		}
		plan.Reorders = append(plan.Reorders, reorder)
		plan.Stats.Reordered++
	}

	return plan, nil
}

// Merge combines a snapshot row with its freshly computed counterpart.
// Non-empty computed values replace the stored ones, empty computed values keep
// them, authors and links are unioned and the later merge time is kept.
func Merge(existing, computed models.ReportRow) models.ReportRow {
	out := existing.Clone()
	if computed.Repository != "" {
		out.Repository = computed.Repository
	}
	if computed.Feature != "" {
		out.Feature = computed.Feature
	}
	if computed.FeatureURL != "" {
		out.FeatureURL = computed.FeatureURL
	}
	if computed.Team != "" {
		out.Team = computed.Team
	}
	out.Authors = existing.Authors.Union(computed.Authors)
	out.Links = existing.Links.Union(computed.Links)
	if computed.MergedAt != nil && (out.MergedAt == nil || computed.MergedAt.After(*out.MergedAt)) {
		t := *computed.MergedAt
		out.MergedAt = &t
	}
	return out
}

func validateExisting(rows []models.ReportRow) error {
	keys := make(map[string]int, len(rows))
	numbers := make(map[int]string, len(rows))
	for _, row := range rows {
		if row.RowNumber <= models.HeaderRow {
			return apperrors.ErrInvalidInput.WithContext("detail",
				fmt.Sprintf("existing row %q has row number %d", row.UniqueKey, row.RowNumber))
		}
		if row.UniqueKey == "" {
			return apperrors.ErrInvalidInput.WithContext("detail",
				fmt.Sprintf("existing row %d has no unique key", row.RowNumber))
		}
		if other, dup := keys[row.UniqueKey]; dup {
			return apperrors.ErrInvalidInput.WithContext("detail",
				fmt.Sprintf("unique key %q appears in rows %d and %d", row.UniqueKey, other, row.RowNumber))
		}
		if other, dup := numbers[row.RowNumber]; dup {
			return apperrors.ErrInvalidInput.WithContext("detail",
				fmt.Sprintf("row %d holds both %q and %q", row.RowNumber, other, row.UniqueKey))
		}
		keys[row.UniqueKey] = row.RowNumber
		numbers[row.RowNumber] = row.UniqueKey
	}
	return nil
}

func validateComputed(rows []models.ReportRow) error {
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.UniqueKey == "" {
			return apperrors.ErrInvalidInput.WithContext("detail",
				fmt.Sprintf("computed row %q has no unique key", row.Feature))
		}
		if seen[row.UniqueKey] {
			return apperrors.ErrDuplicateKey.WithContext("detail", row.UniqueKey)
		}
		seen[row.UniqueKey] = true
	}
	return nil
}

// splitRuns expects rows sorted by row number.
func splitRuns(rows []models.ReportRow) []run {
	var runs []run
	for _, row := range rows {
		if n := len(runs); n > 0 {
			last := &runs[n-1]
			if last.repository == row.Repository && last.end+1 == row.RowNumber {
				last.end = row.RowNumber
				continue
			}
		}
		runs = append(runs, run{repository: row.Repository, start: row.RowNumber, end: row.RowNumber})
	}
	return runs
}

// placed is a block row with its row number once the inserts are applied.
type placed struct {
	row models.ReportRow
	pos int
}

// planReorder sorts a run together with the rows inserted right after it.
// Row numbers in the result are those after every insert of the plan.
func planReorder(r run, current map[int]models.ReportRow, anchors []int, added []models.ReportRow) (models.BlockReorder, bool) {
	shift := 0
	for _, a := range anchors {
		if a < r.start {
			shift++
		}
	}

	start := r.start + shift
	rows := make([]placed, 0, r.end-r.start+1+len(added))
	for n := r.start; n <= r.end; n++ {
		rows = append(rows, placed{row: current[n], pos: n + shift})
	}
	for i, row := range added {
		rows = append(rows, placed{row: row, pos: r.end + shift + 1 + i})
	}
	if len(rows) < 2 {
		return models.BlockReorder{}, false
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return mapper.CompareTeamAndTime(rows[i].row, rows[j].row) < 0
	})

	moved := false
	perm := make([]int, len(rows))
	for i, p := range rows {
		perm[i] = p.pos
		if p.pos != start+i {
			moved = true
		}
	}
	if !moved {
		return models.BlockReorder{}, false
	}

	return models.BlockReorder{
		StartRow:                 start,
		EndRow:                   start + len(rows) - 1,
		Repository:               r.repository,
		SortedOriginalRowNumbers: perm,
	}, true
}
