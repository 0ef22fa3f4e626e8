// Package mapper turns change-requests into report rows, one row per work item
// and repository.
package mapper

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/thomas-vilte/shipsheet/internal/foldset"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/resolver"
)

const branchHashLen = 10

// UniqueKey derives the identity of a report row. Tracked rows are keyed by
// identifier and repository only. Placeholder rows also carry the platform and
// a hash of the source branch so that unrelated untracked work never shares a
// row.
func UniqueKey(id int, repository, platform, branch string) string {
	if id != models.PlaceholderID {
		return fmt.Sprintf("%d|%s", id, repository)
	}
	sum := sha256.Sum256([]byte(foldset.Fold(branch)))
	return fmt.Sprintf("%d|%s|%s|%s", id, repository, strings.ToLower(platform), hex.EncodeToString(sum[:])[:branchHashLen])
}

// FeatureLabel formats the feature cell of a tracked row.
func FeatureLabel(id int, title string) string {
	if title == "" {
		return fmt.Sprintf("ID%d", id)
	}
	return fmt.Sprintf("ID%d - %s", id, title)
}

type Mapper struct {
	resolver *resolver.Resolver
}

// New builds a mapper. A nil resolver leaves every record without a work item
// unresolved.
func New(res *resolver.Resolver) *Mapper {
	return &Mapper{resolver: res}
}

// Map groups records into rows sorted by repository, team and merge time. No
// two returned rows share a UniqueKey.
func (m *Mapper) Map(records []models.ChangeRequest) []models.ReportRow {
	rows := make(map[string]*models.ReportRow)
	order := make([]string, 0)

	add := func(row models.ReportRow, rec models.ChangeRequest) {
		existing, ok := rows[row.UniqueKey]
		if !ok {
			row.Authors = foldset.New(rec.DisplayAuthor())
			row.Links = foldset.New(rec.WebURL)
			row.MergedAt = copyTime(rec.MergedAt)
			row.AutoSync = true
			rows[row.UniqueKey] = &row
			order = append(order, row.UniqueKey)
			return
		}
		existing.Authors.Add(rec.DisplayAuthor())
		existing.Links.Add(rec.WebURL)
		existing.MergedAt = later(existing.MergedAt, rec.MergedAt)
		if existing.FeatureURL == "" && row.FeatureURL != "" {
			existing.Feature = row.Feature
			existing.FeatureURL = row.FeatureURL
			existing.Team = row.Team
		}
	}

	// tracked rows first so their labels win when both paths meet on a key
	for _, rec := range records {
		if rec.WorkItem == nil || rec.WorkItem.IsPlaceholder() {
			continue
		}
		wi := rec.WorkItem
		add(models.ReportRow{
			UniqueKey:  UniqueKey(wi.ID, rec.Repository, rec.Platform, rec.SourceBranch),
			Repository: rec.Repository,
			Feature:    FeatureLabel(wi.ID, wi.Title),
			FeatureURL: wi.URL,
			Team:       wi.Team,
		}, rec)
	}

	for _, rec := range records {
		if rec.WorkItem != nil && !rec.WorkItem.IsPlaceholder() {
			continue
		}
		id, ok := m.find(rec)
		feature := rec.SourceBranch
		if ok && id != models.PlaceholderID {
			feature = FeatureLabel(id, "")
		} else {
			id = models.PlaceholderID
		}
		add(models.ReportRow{
			UniqueKey:  UniqueKey(id, rec.Repository, rec.Platform, rec.SourceBranch),
			Repository: rec.Repository,
			Feature:    feature,
		}, rec)
	}

	out := make([]models.ReportRow, 0, len(order))
	for _, key := range order {
		out = append(out, *rows[key])
	}
	SortRows(out)
	return out
}

func (m *Mapper) find(rec models.ChangeRequest) (int, bool) {
	if m.resolver == nil {
		return 0, false
	}
	return m.resolver.Find(rec.SourceBranch, rec.Title)
}

// SortRows orders rows by repository, team, merge time (unknown last) and key.
func SortRows(rows []models.ReportRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Repository != b.Repository {
			return a.Repository < b.Repository
		}
		if c := CompareTeamAndTime(a, b); c != 0 {
			return c < 0
		}
		return a.UniqueKey < b.UniqueKey
	})
}

// CompareTeamAndTime is the in-block ordering: case-folded team, then merge
// time with unknown times last.
func CompareTeamAndTime(a, b models.ReportRow) int {
	ta, tb := foldset.Fold(a.Team), foldset.Fold(b.Team)
	if ta != tb {
		if ta < tb {
			return -1
		}
		return 1
	}
	switch {
	case a.MergedAt == nil && b.MergedAt == nil:
		return 0
	case a.MergedAt == nil:
		return 1
	case b.MergedAt == nil:
		return -1
	case a.MergedAt.Before(*b.MergedAt):
		return -1
	case b.MergedAt.Before(*a.MergedAt):
		return 1
	}
	return 0
}

// copyTime normalizes to UTC whole seconds, the precision the sheet keeps,
// so a re-read row compares equal to a freshly mapped one.
func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := t.UTC().Truncate(time.Second)
	return &c
}

func later(a, b *time.Time) *time.Time {
	if a == nil {
		return copyTime(b)
	}
	if b != nil && b.Truncate(time.Second).After(*a) {
		return copyTime(b)
	}
	return a
}
