// Package schema describes where each report field lives in the sheet.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
)

var columnRef = regexp.MustCompile(`^[A-Z]{1,2}$`)

// ColumnMapping holds column letters. AutoSync is optional.
type ColumnMapping struct {
	Repository string `json:"repository"`
	Feature    string `json:"feature"`
	Team       string `json:"team"`
	Authors    string `json:"authors"`
	Links      string `json:"links"`
	UniqueKey  string `json:"unique_key"`
	MergedAt   string `json:"merged_at"`
	AutoSync   string `json:"auto_sync,omitempty"`
}

func DefaultMapping() ColumnMapping {
	return ColumnMapping{
		Repository: "A",
		Feature:    "B",
		Team:       "C",
		Authors:    "D",
		Links:      "E",
		MergedAt:   "F",
		UniqueKey:  "G",
		AutoSync:   "H",
	}
}

type field struct {
	name string
	ref  string
}

func (m ColumnMapping) fields() []field {
	fs := []field{
		{"repository", m.Repository},
		{"feature", m.Feature},
		{"team", m.Team},
		{"authors", m.Authors},
		{"links", m.Links},
		{"unique_key", m.UniqueKey},
		{"merged_at", m.MergedAt},
	}
	if m.AutoSync != "" {
		fs = append(fs, field{"auto_sync", m.AutoSync})
	}
	return fs
}

// Validate reports every malformed or repeated column reference.
func (m ColumnMapping) Validate() error {
	var problems []string
	seen := make(map[string]string)

	for _, f := range m.fields() {
		if !columnRef.MatchString(f.ref) {
			problems = append(problems, fmt.Sprintf("%s: %q is not a column letter", f.name, f.ref))
			continue
		}
		if other, ok := seen[f.ref]; ok {
			problems = append(problems, fmt.Sprintf("%s: column %s already used by %s", f.name, f.ref, other))
			continue
		}
		seen[f.ref] = f.name
	}

	if len(problems) > 0 {
		return apperrors.ErrInvalidColumnMapping.WithContext("detail", strings.Join(problems, "; "))
	}
	return nil
}

func (m ColumnMapping) Valid() bool {
	return m.Validate() == nil
}

// ColumnIndex converts a column reference to a zero based index: A=0, Z=25,
// AA=26, ZZ=701.
func ColumnIndex(ref string) (int, error) {
	if !columnRef.MatchString(ref) {
		return 0, fmt.Errorf("invalid column reference %q", ref)
	}
	idx := 0
	for _, r := range ref {
		idx = idx*26 + int(r-'A'+1)
	}
	return idx - 1, nil
}

// ColumnName is the inverse of ColumnIndex.
func ColumnName(idx int) string {
	name := ""
	for n := idx + 1; n > 0; n = (n - 1) / 26 {
		name = string(rune('A'+(n-1)%26)) + name
	}
	return name
}

// Width returns the number of columns needed to hold every mapped field.
// The mapping must be valid.
func (m ColumnMapping) Width() int {
	maxIdx := 0
	for _, f := range m.fields() {
		if idx, err := ColumnIndex(f.ref); err == nil && idx > maxIdx {
			maxIdx = idx
		}
	}
	return maxIdx + 1
}

func (m ColumnMapping) LastColumn() string {
	return ColumnName(m.Width() - 1)
}

// Indexes resolves every reference of a valid mapping.
func (m ColumnMapping) Indexes() (Indexes, error) {
	if err := m.Validate(); err != nil {
		return Indexes{}, err
	}
	idx := func(ref string) int {
		i, _ := ColumnIndex(ref)
		return i
	}
	out := Indexes{
		Repository: idx(m.Repository),
		Feature:    idx(m.Feature),
		Team:       idx(m.Team),
		Authors:    idx(m.Authors),
		Links:      idx(m.Links),
		UniqueKey:  idx(m.UniqueKey),
		MergedAt:   idx(m.MergedAt),
		AutoSync:   -1,
		Width:      m.Width(),
	}
	if m.AutoSync != "" {
		out.AutoSync = idx(m.AutoSync)
	}
	return out, nil
}

// Indexes are zero based column positions. AutoSync is -1 when unmapped.
type Indexes struct {
	Repository int
	Feature    int
	Team       int
	Authors    int
	Links      int
	UniqueKey  int
	MergedAt   int
	AutoSync   int
	Width      int
}
