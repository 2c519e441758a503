// Package filter implements faceted selection over protein records.
package filter

import (
	"regexp"
	"sort"
	"strings"

	"github.com/figmap/server/internal/dataset"
)

// Set holds the selected values of every facet. A facet with no selected
// values does not constrain the result.
type Set struct {
	selected [len(facetSlots)]map[string]struct{}
}

var facetSlots = [...]dataset.Facet{dataset.Category, dataset.Subcategory, dataset.Subsystem, dataset.Role}

// New returns an empty filter set.
func New() *Set {
	s := &Set{}
	for i := range s.selected {
		s.selected[i] = make(map[string]struct{})
	}
	return s
}

// Toggle adds value to the facet's selection if absent and removes it if
// present. It reports whether the value is selected afterwards.
func (s *Set) Toggle(f dataset.Facet, value string) bool {
	if f < 0 || int(f) >= len(s.selected) {
		return false
	}
	sel := s.selected[f]
	if _, ok := sel[value]; ok {
		delete(sel, value)
		return false
	}
	sel[value] = struct{}{}
	return true
}

// Has reports whether value is selected on facet f.
func (s *Set) Has(f dataset.Facet, value string) bool {
	_, ok := s.selected[f][value]
	return ok
}

// Selected returns the sorted selection of a facet.
func (s *Set) Selected(f dataset.Facet) []string {
	out := make([]string, 0, len(s.selected[f]))
	for v := range s.selected[f] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Values returns every selected value across facets, least specific facet
// first.
func (s *Set) Values() []string {
	var out []string
	for _, f := range facetSlots {
		out = append(out, s.Selected(f)...)
	}
	return out
}

// Empty reports whether no facet has a selection.
func (s *Set) Empty() bool {
	for _, sel := range s.selected {
		if len(sel) > 0 {
			return false
		}
	}
	return true
}

// Clear drops every selection.
func (s *Set) Clear() {
	for i := range s.selected {
		s.selected[i] = make(map[string]struct{})
	}
}

// Match reports whether a record satisfies the selection: for every facet
// with a selection, the record's value must be one of the selected values.
func (s *Set) Match(r *dataset.ProteinRecord) bool {
	for _, f := range facetSlots {
		sel := s.selected[f]
		if len(sel) == 0 {
			continue
		}
		v, ok := f.Value(r)
		if !ok {
			return false
		}
		if _, hit := sel[v]; !hit {
			return false
		}
	}
	return true
}

// Apply returns the records matching the selection, preserving order.
func (s *Set) Apply(records []dataset.ProteinRecord) []dataset.ProteinRecord {
	if s.Empty() {
		return records
	}
	out := make([]dataset.ProteinRecord, 0, len(records))
	for i := range records {
		if s.Match(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// VisibleOptions narrows an option list to values whose hierarchy chain
// reaches one of the selected values. With nothing selected every option is
// visible.
func (s *Set) VisibleOptions(options []string, h dataset.Hierarchy) []string {
	selected := s.Values()
	if len(selected) == 0 {
		return options
	}
	out := make([]string, 0, len(options))
	for _, opt := range options {
		for _, target := range selected {
			if h.Reaches(opt, target) {
				out = append(out, opt)
				break
			}
		}
	}
	return out
}

// SearchOptions keeps the options matching pattern case-insensitively.
// Patterns that are not valid regular expressions are matched as substrings.
func SearchOptions(options []string, pattern string) []string {
	if pattern == "" {
		return options
	}
	match := func(s string) bool {
		return strings.Contains(strings.ToLower(s), strings.ToLower(pattern))
	}
	if re, err := regexp.Compile("(?i)" + pattern); err == nil {
		match = re.MatchString
	}
	out := make([]string, 0, len(options))
	for _, opt := range options {
		if match(opt) {
			out = append(out, opt)
		}
	}
	return out
}
