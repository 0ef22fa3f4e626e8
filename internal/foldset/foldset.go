// Package foldset provides a string set whose membership is case-insensitive.
// The first spelling added for a value is the one that is kept.
package foldset

import (
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Fold returns the case-folded form used for comparisons.
func Fold(s string) string {
	return folder.String(strings.TrimSpace(s))
}

// Set is usable as a zero value. Copying a Set shares its storage; use Clone
// before mutating a copy.
type Set struct {
	items map[string]string
}

func New(values ...string) Set {
	var s Set
	s.Add(values...)
	return s
}

// Add inserts values, ignoring blanks and case-insensitive duplicates.
func (s *Set) Add(values ...string) {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if s.items == nil {
			s.items = make(map[string]string)
		}
		key := Fold(v)
		if _, ok := s.items[key]; !ok {
			s.items[key] = v
		}
	}
}

func (s Set) Contains(v string) bool {
	_, ok := s.items[Fold(v)]
	return ok
}

func (s Set) Len() int {
	return len(s.items)
}

// Union returns a new set holding the members of both sets. Spellings from s
// win over spellings from other.
func (s Set) Union(other Set) Set {
	out := s.Clone()
	out.Add(other.Values()...)
	return out
}

func (s Set) Clone() Set {
	if s.items == nil {
		return Set{}
	}
	items := make(map[string]string, len(s.items))
	for k, v := range s.items {
		items[k] = v
	}
	return Set{items: items}
}

// Equal compares membership only, not spelling.
func (s Set) Equal(other Set) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for k := range s.items {
		if _, ok := other.items[k]; !ok {
			return false
		}
	}
	return true
}

// Values returns the members sorted case-insensitively.
func (s Set) Values() []string {
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.items[k])
	}
	return out
}

func (s Set) Join(sep string) string {
	return strings.Join(s.Values(), sep)
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = New(values...)
	return nil
}
