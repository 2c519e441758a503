// Package colors assigns display colours to facet values and resolves the
// colour of a protein record.
package colors

import (
	"math/rand"
	"sort"

	"github.com/figmap/server/internal/dataset"
	"github.com/figmap/server/pkg/colormap"
)

// Most specific facet first.
var priority = []dataset.Facet{dataset.Role, dataset.Subsystem, dataset.Subcategory, dataset.Category}

// Resolver maps facet values to colour tokens.
type Resolver struct {
	assigned map[string]string
}

// NewResolver returns a resolver without assignments.
func NewResolver() *Resolver {
	return &Resolver{assigned: make(map[string]string)}
}

// Assign sets the colour of a facet value.
func (r *Resolver) Assign(value, color string) {
	r.assigned[value] = color
}

// Unassign removes the colour of a facet value.
func (r *Resolver) Unassign(value string) {
	delete(r.assigned, value)
}

// Lookup returns the colour assigned to a facet value.
func (r *Resolver) Lookup(value string) (string, bool) {
	c, ok := r.assigned[value]
	return c, ok
}

// Resolve returns the colour of the record's most specific coloured facet
// value: role, then subsystem, then subcategory, then category.
func (r *Resolver) Resolve(rec *dataset.ProteinRecord) (string, bool) {
	if len(r.assigned) == 0 {
		return "", false
	}
	for _, f := range priority {
		v, ok := f.Value(rec)
		if !ok {
			continue
		}
		if c, ok := r.assigned[v]; ok {
			return c, true
		}
	}
	return "", false
}

// RandomAssign gives every value a colour drawn uniformly from palette.
// An empty palette leaves the assignments unchanged.
func (r *Resolver) RandomAssign(values []string, palette colormap.Palette, rng *rand.Rand) {
	if len(palette) == 0 {
		return
	}
	for _, v := range values {
		r.assigned[v] = palette[rng.Intn(len(palette))]
	}
}

// Assignment is one facet value and its colour.
type Assignment struct {
	Value string `json:"value"`
	Color string `json:"color"`
}

// Assignments returns all assignments sorted by value.
func (r *Resolver) Assignments() []Assignment {
	out := make([]Assignment, 0, len(r.assigned))
	for v, c := range r.assigned {
		out = append(out, Assignment{Value: v, Color: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
