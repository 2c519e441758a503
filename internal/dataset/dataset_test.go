package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

const sampleJSON = `{
  "P2": {"category": "C1", "role": 7, "genome_ids": ["G2"]},
  "P1": {"category": "C1", "subsystem": "S1", "genome_ids": ["G1", "G2", 3]},
  "P3": {"category": "C2", "contig_ids": ["G3"]},
  "P4": "broken"
}`

func TestReadJSON(t *testing.T) {
	ds, err := ReadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	var ids []string
	for _, r := range ds.Records() {
		ids = append(ids, r.ID)
	}
	if want := []string{"P1", "P2", "P3", "P4"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("expected sorted ids %v, got %v", want, ids)
	}

	p1, ok := ds.Get("P1")
	if !ok {
		t.Fatal("expected P1")
	}
	if want := []string{"G1", "G2"}; !reflect.DeepEqual(p1.GenomeIDs, want) {
		t.Errorf("expected non-string genome ids dropped, got %v", p1.GenomeIDs)
	}

	p2, _ := ds.Get("P2")
	if _, ok := Role.Value(p2); ok {
		t.Errorf("expected numeric role to be absent, got %q", p2.Role)
	}

	p3, _ := ds.Get("P3")
	if !p3.HasGenome("G3") {
		t.Errorf("expected contig_ids alias to populate genomes, got %v", p3.GenomeIDs)
	}

	p4, _ := ds.Get("P4")
	if len(p4.GenomeIDs) != 0 || p4.Category != "" {
		t.Errorf("expected empty record for malformed entry, got %#v", p4)
	}
}

func TestDistinctValues(t *testing.T) {
	ds, err := ReadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	tests := []struct {
		name string
		attr Attribute
		want []string
	}{
		{"category", FacetAttr(Category), []string{"C1", "C2"}},
		{"role", FacetAttr(Role), []string{}},
		{"genomes", GenomeAttr, []string{"G1", "G2", "G3"}},
		{"ids", IDAttr, []string{"P1", "P2", "P3", "P4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistinctValues(ds.Records(), tt.attr)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseFacet(t *testing.T) {
	for _, f := range Facets {
		got, err := ParseFacet(f.String())
		if err != nil || got != f {
			t.Errorf("ParseFacet(%q) = %v, %v", f.String(), got, err)
		}
	}
	if _, err := ParseFacet("genus"); !errors.Is(err, ErrUnknownFacet) {
		t.Errorf("expected ErrUnknownFacet, got %v", err)
	}
}

func TestLoadFileZstd(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := enc.Write([]byte(sampleJSON)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	path := filepath.Join(t.TempDir(), "proteins.json.zst")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	ds, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ds.Len() != 4 {
		t.Fatalf("expected 4 records, got %d", ds.Len())
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	ds, err := ReadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	var buf bytes.Buffer
	if err := ds.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	again, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !reflect.DeepEqual(again.Records()[0], ds.Records()[0]) {
		t.Fatalf("round trip changed P1: %#v vs %#v", again.Records()[0], ds.Records()[0])
	}
}

func TestHierarchyReaches(t *testing.T) {
	h := Hierarchy{
		"role-a":   "subsys-a",
		"subsys-a": "subcat-a",
		"subcat-a": "cat-a",
		"loop-1":   "loop-2",
		"loop-2":   "loop-1",
	}

	if !h.Reaches("role-a", "cat-a") {
		t.Error("expected role-a to reach cat-a")
	}
	if !h.Reaches("cat-a", "cat-a") {
		t.Error("expected value to reach itself")
	}
	if h.Reaches("subcat-a", "role-a") {
		t.Error("expected parents not to reach children")
	}
	if h.Reaches("loop-1", "cat-a") {
		t.Error("expected cycle to terminate without match")
	}
}
