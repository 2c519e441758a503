package query

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/figmap/server/internal/dataset"
)

func record(genomes ...string) *dataset.ProteinRecord {
	return &dataset.ProteinRecord{ID: "P", GenomeIDs: genomes}
}

func TestEvaluate(t *testing.T) {
	r := record("G1", "G2", "58282.5")

	tests := []struct {
		expr string
		want bool
	}{
		{`AND("G1", "G2")`, true},
		{`AND("G1", "G3")`, false},
		{`OR("G3", "G2")`, true},
		{`OR("G3", "G4")`, false},
		{`SUB("G1", "G3")`, true},
		{`SUB("G1", "G2")`, false},
		{`ADD('G1', 'G2')`, true},
		{`ADD("G1", "G9")`, false},
		{`and("G1")`, true},
		{`AND(58282.5)`, true},
		{`AND("G1") && !OR("G3")`, true},
		{`AND("G3") || AND("G2")`, true},
		{`!(AND("G1") && AND("G2"))`, false},
		{`AND("G1", OR("G3", "G2"))`, true},
		{`SUB("G1", AND("G1", "G2"))`, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			res := Evaluate(c, r)
			if !res.IsBool {
				t.Fatalf("expected boolean result")
			}
			if res.Value != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, res.Value)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []string{
		``,
		`   `,
		`window.location`,
		`AND("G1"`,
		`AND()`,
		`SUB("G1")`,
		`ADD("G1", "G2", "G3")`,
		`"G1" && "G2"`,
		`!"G1"`,
		`AND("G1") & AND("G2")`,
		`AND("G1`,
		`AND("G1") AND("G2")`,
		`fetch("http://example.com")`,
		`AND("G1"); alert(1)`,
		`AND`,
		`"G1" + "G2"`,
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := Compile(expr)
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected EvaluationError, got %v", err)
			}
		})
	}
}

func TestCompileLimits(t *testing.T) {
	t.Run("length", func(t *testing.T) {
		expr := `OR("` + strings.Repeat("G", MaxLength) + `")`
		if _, err := Compile(expr); err == nil {
			t.Fatal("expected error for oversized expression")
		}
	})

	t.Run("depth", func(t *testing.T) {
		expr := strings.Repeat("AND(", MaxDepth+2) + `"G1"` + strings.Repeat(")", MaxDepth+2)
		if _, err := Compile(expr); err == nil {
			t.Fatal("expected error for deeply nested expression")
		}
	})

	t.Run("nodes", func(t *testing.T) {
		args := make([]string, MaxNodes+1)
		for i := range args {
			args[i] = `"G1"`
		}
		expr := "OR(" + strings.Join(args, ",") + ")"
		if _, err := Compile(expr); err == nil {
			t.Fatal("expected error for expression with too many terms")
		}
	})
}

func TestNonBooleanResultPasses(t *testing.T) {
	records := []dataset.ProteinRecord{
		{ID: "P1", GenomeIDs: []string{"G1"}},
		{ID: "P2"},
	}

	for _, expr := range []string{`"G7"`, `58282.5`, `("G1")`} {
		t.Run(expr, func(t *testing.T) {
			c, err := Compile(expr)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			if res := Evaluate(c, &records[0]); res.IsBool {
				t.Fatalf("expected non-boolean result, got %#v", res)
			}
			got := Filter(c, records)
			if !reflect.DeepEqual(got, records) {
				t.Fatalf("expected every record to pass, got %v", got)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	records := []dataset.ProteinRecord{
		{ID: "P1", GenomeIDs: []string{"G1", "G2"}},
		{ID: "P2", GenomeIDs: []string{"G2"}},
		{ID: "P3", GenomeIDs: []string{"G3"}},
	}

	c, err := Compile(`SUB("G2", "G1")`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got := Filter(c, records)
	if len(got) != 1 || got[0].ID != "P2" {
		t.Fatalf("expected [P2], got %v", got)
	}

	if got := Filter(nil, records); len(got) != 3 {
		t.Fatalf("expected nil query to pass everything, got %d", len(got))
	}
}
