// Package dataset holds the immutable protein/genome relation browsed by figmap.
package dataset

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownFacet is returned when a facet name does not match any facet.
var ErrUnknownFacet = errors.New("unknown facet")

// Facet is one of the four classification attributes of a protein.
type Facet int

const (
	Category Facet = iota
	Subcategory
	Subsystem
	Role
)

// Facets lists all facets from least to most specific.
var Facets = []Facet{Category, Subcategory, Subsystem, Role}

var facetNames = [...]string{"category", "subcategory", "subsystem", "role"}

func (f Facet) String() string {
	if f < 0 || int(f) >= len(facetNames) {
		return "unknown"
	}
	return facetNames[f]
}

// ParseFacet resolves a facet by its name.
func ParseFacet(name string) (Facet, error) {
	for i, n := range facetNames {
		if n == name {
			return Facet(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFacet, name)
}

// Value returns the record's value for the facet and whether it is present.
func (f Facet) Value(r *ProteinRecord) (string, bool) {
	var v string
	switch f {
	case Category:
		v = r.Category
	case Subcategory:
		v = r.Subcategory
	case Subsystem:
		v = r.Subsystem
	case Role:
		v = r.Role
	}
	return v, v != ""
}

// ProteinRecord is one protein family and the genomes it occurs in.
// GenomeIDs is kept as loaded and may contain duplicates.
type ProteinRecord struct {
	ID          string   `json:"id"`
	Category    string   `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
	Subsystem   string   `json:"subsystem,omitempty"`
	Role        string   `json:"role,omitempty"`
	GenomeIDs   []string `json:"genome_ids"`
}

// HasGenome reports whether the record belongs to the given genome.
func (r *ProteinRecord) HasGenome(id string) bool {
	for _, g := range r.GenomeIDs {
		if g == id {
			return true
		}
	}
	return false
}

// Dataset is the read-only, id-sorted record sequence for a session.
type Dataset struct {
	records []ProteinRecord
	index   map[string]int
}

// New builds a dataset from records, sorting them by id.
// Later records replace earlier ones with the same id.
func New(records []ProteinRecord) *Dataset {
	byID := make(map[string]ProteinRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	out := make([]ProteinRecord, 0, len(byID))
	for _, r := range byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	index := make(map[string]int, len(out))
	for i, r := range out {
		index[r.ID] = i
	}
	return &Dataset{records: out, index: index}
}

// Records returns the full record sequence. Callers must not modify it.
func (d *Dataset) Records() []ProteinRecord {
	return d.records
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Get looks up a record by protein id.
func (d *Dataset) Get(id string) (*ProteinRecord, bool) {
	i, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return &d.records[i], true
}

// Options returns the sorted distinct values of a facet across the dataset.
func (d *Dataset) Options(f Facet) []string {
	return DistinctValues(d.records, FacetAttr(f))
}

// Attribute extracts zero or more string values from a record.
type Attribute func(r *ProteinRecord) []string

// FacetAttr adapts a facet to an Attribute.
func FacetAttr(f Facet) Attribute {
	return func(r *ProteinRecord) []string {
		if v, ok := f.Value(r); ok {
			return []string{v}
		}
		return nil
	}
}

// GenomeAttr yields the genome ids of a record.
func GenomeAttr(r *ProteinRecord) []string { return r.GenomeIDs }

// IDAttr yields the protein id of a record.
func IDAttr(r *ProteinRecord) []string { return []string{r.ID} }

// DistinctValues flattens attr across records and returns the sorted set of
// non-empty values.
func DistinctValues(records []ProteinRecord, attr Attribute) []string {
	seen := make(map[string]struct{})
	for i := range records {
		for _, v := range attr(&records[i]) {
			if v == "" {
				continue
			}
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
