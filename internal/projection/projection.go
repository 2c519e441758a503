// Package projection flattens protein records into (protein, genome) points.
package projection

import "github.com/figmap/server/internal/dataset"

// Point is one protein/genome membership pair.
type Point struct {
	ProteinID string `json:"protein_id"`
	GenomeID  string `json:"genome_id"`
}

// Project emits one point per distinct genome of each record. Records keep
// their order; genomes keep first-occurrence order.
func Project(records []dataset.ProteinRecord) []Point {
	n := 0
	for i := range records {
		n += len(records[i].GenomeIDs)
	}
	points := make([]Point, 0, n)
	seen := make(map[string]struct{})
	for i := range records {
		r := &records[i]
		clear(seen)
		for _, g := range r.GenomeIDs {
			if _, dup := seen[g]; dup {
				continue
			}
			seen[g] = struct{}{}
			points = append(points, Point{ProteinID: r.ID, GenomeID: g})
		}
	}
	return points
}

// Domains returns the sorted genome ids (x) and protein ids (y) of records.
// They are taken from the records rather than the projected points.
func Domains(records []dataset.ProteinRecord) (x, y []string) {
	return dataset.DistinctValues(records, dataset.GenomeAttr), dataset.DistinctValues(records, dataset.IDAttr)
}
