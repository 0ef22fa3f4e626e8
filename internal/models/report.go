package models

import (
	"fmt"
	"time"

	"github.com/thomas-vilte/shipsheet/internal/foldset"
)

// HeaderRow is the sheet row holding column titles. It never moves.
const HeaderRow = 1

type (
	// ReportRow is one line of the report, identified by UniqueKey.
	ReportRow struct {
		UniqueKey  string      `json:"unique_key"`
		Repository string      `json:"repository"`
		Feature    string      `json:"feature"`
		FeatureURL string      `json:"feature_url,omitempty"`
		Team       string      `json:"team,omitempty"`
		Authors    foldset.Set `json:"authors"`
		Links      foldset.Set `json:"links"`
		MergedAt   *time.Time  `json:"merged_at,omitempty"`
		RowNumber  int         `json:"row_number,omitempty"`
		// AutoSync false means an operator froze the row by hand.
		AutoSync bool `json:"auto_sync"`
	}

	OperationKind string

	// SyncOperation writes one row. Update targets the existing row; Insert
	// targets the row the new one is placed after (HeaderRow when the
	// repository has no rows yet).
	SyncOperation struct {
		Kind            OperationKind `json:"kind"`
		TargetRowNumber int           `json:"target_row_number"`
		Row             ReportRow     `json:"row"`
	}

	// BlockReorder permutes the contiguous range StartRow..EndRow. Position i
	// of the range receives the content of SortedOriginalRowNumbers[i].
	BlockReorder struct {
		StartRow                 int    `json:"start_row"`
		EndRow                   int    `json:"end_row"`
		Repository               string `json:"repository"`
		SortedOriginalRowNumbers []int  `json:"sorted_original_row_numbers"`
	}
)

const (
	OperationUpdate OperationKind = "update"
	OperationInsert OperationKind = "insert"
)

// Clone returns a copy that does not share set storage with r.
func (r ReportRow) Clone() ReportRow {
	c := r
	c.Authors = r.Authors.Clone()
	c.Links = r.Links.Clone()
	if r.MergedAt != nil {
		t := *r.MergedAt
		c.MergedAt = &t
	}
	return c
}

// SameContent compares everything the sheet stores, ignoring RowNumber.
func (r ReportRow) SameContent(o ReportRow) bool {
	return r.UniqueKey == o.UniqueKey &&
		r.Repository == o.Repository &&
		r.Feature == o.Feature &&
		r.FeatureURL == o.FeatureURL &&
		r.Team == o.Team &&
		r.AutoSync == o.AutoSync &&
		r.Authors.Equal(o.Authors) &&
		r.Links.Equal(o.Links) &&
		sameTime(r.MergedAt, o.MergedAt)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Validate checks that the reorder is a permutation of its own range below
// the header.
func (b BlockReorder) Validate() error {
	if b.StartRow <= HeaderRow {
		return fmt.Errorf("start row %d overlaps the header", b.StartRow)
	}
	if b.EndRow < b.StartRow {
		return fmt.Errorf("end row %d before start row %d", b.EndRow, b.StartRow)
	}
	if len(b.SortedOriginalRowNumbers) != b.EndRow-b.StartRow+1 {
		return fmt.Errorf("permutation has %d rows, range %d..%d has %d",
			len(b.SortedOriginalRowNumbers), b.StartRow, b.EndRow, b.EndRow-b.StartRow+1)
	}
	seen := make(map[int]bool, len(b.SortedOriginalRowNumbers))
	for _, n := range b.SortedOriginalRowNumbers {
		if n < b.StartRow || n > b.EndRow {
			return fmt.Errorf("row %d outside range %d..%d", n, b.StartRow, b.EndRow)
		}
		if seen[n] {
			return fmt.Errorf("row %d repeated", n)
		}
		seen[n] = true
	}
	return nil
}
