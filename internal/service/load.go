package service

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/figmap/server/internal/dataset"
	"github.com/figmap/server/internal/figstore"
)

// LoadDataset reads a dataset from a JSON, zstd-compressed JSON or SQLite
// file, chosen by extension.
func LoadDataset(path string) (*dataset.Dataset, error) {
	if isSQLite(path) {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to open dataset: %w", err)
		}
		store, err := figstore.NewStore(path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		ds, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		log.Printf("[Dataset] Loaded %d proteins from sqlite %s", ds.Len(), path)
		return ds, nil
	}

	ds, err := dataset.LoadFile(path)
	if err != nil {
		return nil, err
	}
	log.Printf("[Dataset] Loaded %d proteins from %s", ds.Len(), path)
	return ds, nil
}

// ImportDataset converts the dataset at in to out. Outputs ending in
// ".sqlite" or ".db" become a SQLite store; anything else is written as JSON.
func ImportDataset(in, out string) (int, error) {
	ds, err := LoadDataset(in)
	if err != nil {
		return 0, err
	}

	if !isSQLite(out) {
		f, err := os.Create(out)
		if err != nil {
			return 0, fmt.Errorf("failed to create %s: %w", out, err)
		}
		defer f.Close()
		if err := ds.WriteJSON(f); err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", out, err)
		}
		return ds.Len(), f.Close()
	}

	store, err := figstore.NewStore(out)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	if err := store.Save(ds); err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", out, err)
	}
	return store.Count()
}

func isSQLite(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqlite", ".db":
		return true
	}
	return false
}
