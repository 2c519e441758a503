package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// RawRecord is one undecoded entry of the loader format, keyed by field name.
type RawRecord map[string]any

// Load normalizes raw entries into a dataset. The map key becomes the record
// id. Facet fields that are not strings are treated as absent and non-string
// genome ids are dropped.
func Load(raw map[string]RawRecord) *Dataset {
	records := make([]ProteinRecord, 0, len(raw))
	for id, entry := range raw {
		rec := ProteinRecord{
			ID:          id,
			Category:    stringField(entry, "category"),
			Subcategory: stringField(entry, "subcategory"),
			Subsystem:   stringField(entry, "subsystem"),
			Role:        stringField(entry, "role"),
		}
		genomes, ok := entry["genome_ids"]
		if !ok {
			// Older exports name the list after contigs.
			genomes = entry["contig_ids"]
		}
		rec.GenomeIDs = stringList(genomes)
		records = append(records, rec)
	}
	return New(records)
}

func stringField(entry RawRecord, key string) string {
	if s, ok := entry[key].(string); ok {
		return s
	}
	return ""
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ReadJSON decodes the loader format: an object mapping protein id to record.
// Entries that are not objects load as records without facets or genomes.
func ReadJSON(r io.Reader) (*Dataset, error) {
	var entries map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}

	raw := make(map[string]RawRecord, len(entries))
	for id, msg := range entries {
		var rec RawRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			rec = nil
		}
		raw[id] = rec
	}
	return Load(raw), nil
}

// LoadFile reads a dataset from a JSON file. Files ending in ".zst" are
// zstd-compressed.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	return ReadJSON(r)
}

// Hierarchy maps a facet value to its parent value (role -> subsystem ->
// subcategory -> category).
type Hierarchy map[string]string

// Reaches reports whether walking parents from value arrives at target.
// A value reaches itself.
func (h Hierarchy) Reaches(value, target string) bool {
	cur := value
	for steps := 0; steps <= len(h); steps++ {
		if cur == target {
			return true
		}
		next, ok := h[cur]
		if !ok || next == cur {
			return false
		}
		cur = next
	}
	return false
}

// LoadHierarchy reads a child -> parent mapping. Non-string parents are ignored.
func LoadHierarchy(path string) (Hierarchy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode hierarchy: %w", err)
	}
	h := make(Hierarchy, len(raw))
	for child, parent := range raw {
		if p, ok := parent.(string); ok {
			h[child] = p
		}
	}
	return h, nil
}

// WriteJSON encodes the dataset in the loader format.
func (d *Dataset) WriteJSON(w io.Writer) error {
	out := make(map[string]RawRecord, len(d.records))
	for _, r := range d.records {
		entry := RawRecord{"genome_ids": append([]string{}, r.GenomeIDs...)}
		for _, f := range Facets {
			if v, ok := f.Value(&r); ok {
				entry[f.String()] = v
			}
		}
		out[r.ID] = entry
	}
	return json.NewEncoder(w).Encode(out)
}
