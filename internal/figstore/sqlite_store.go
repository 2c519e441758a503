// Package figstore persists protein datasets in SQLite.
package figstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/figmap/server/internal/dataset"
)

// Store provides persistent storage for a protein dataset using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens or creates the SQLite database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS proteins (
		id TEXT PRIMARY KEY,
		category TEXT,
		subcategory TEXT,
		subsystem TEXT,
		role TEXT
	);

	CREATE TABLE IF NOT EXISTS protein_genomes (
		protein_id TEXT NOT NULL,
		genome_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		PRIMARY KEY (protein_id, ord)
	);

	CREATE INDEX IF NOT EXISTS idx_protein_genomes_genome ON protein_genomes(genome_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the stored dataset with ds in a single transaction.
func (s *Store) Save(ds *dataset.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM protein_genomes"); err != nil {
		return fmt.Errorf("failed to clear genomes: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM proteins"); err != nil {
		return fmt.Errorf("failed to clear proteins: %w", err)
	}

	protStmt, err := tx.Prepare(`
		INSERT INTO proteins (id, category, subcategory, subsystem, role)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare protein insert: %w", err)
	}
	defer protStmt.Close()

	genomeStmt, err := tx.Prepare(`
		INSERT INTO protein_genomes (protein_id, genome_id, ord)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare genome insert: %w", err)
	}
	defer genomeStmt.Close()

	for _, r := range ds.Records() {
		if _, err := protStmt.Exec(r.ID,
			nullString(r.Category), nullString(r.Subcategory),
			nullString(r.Subsystem), nullString(r.Role)); err != nil {
			return fmt.Errorf("failed to insert protein %s: %w", r.ID, err)
		}
		for i, g := range r.GenomeIDs {
			if _, err := genomeStmt.Exec(r.ID, g, i); err != nil {
				return fmt.Errorf("failed to insert genome %s for %s: %w", g, r.ID, err)
			}
		}
	}

	return tx.Commit()
}

// Load reads the stored dataset.
func (s *Store) Load() (*dataset.Dataset, error) {
	rows, err := s.db.Query(`
		SELECT id, category, subcategory, subsystem, role
		FROM proteins ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query proteins: %w", err)
	}
	defer rows.Close()

	var records []dataset.ProteinRecord
	index := make(map[string]int)
	for rows.Next() {
		var r dataset.ProteinRecord
		var category, subcategory, subsystem, role sql.NullString
		if err := rows.Scan(&r.ID, &category, &subcategory, &subsystem, &role); err != nil {
			return nil, fmt.Errorf("failed to scan protein: %w", err)
		}
		r.Category = category.String
		r.Subcategory = subcategory.String
		r.Subsystem = subsystem.String
		r.Role = role.String
		index[r.ID] = len(records)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	grows, err := s.db.Query(`
		SELECT protein_id, genome_id FROM protein_genomes
		ORDER BY protein_id, ord
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query genomes: %w", err)
	}
	defer grows.Close()

	for grows.Next() {
		var pid, gid string
		if err := grows.Scan(&pid, &gid); err != nil {
			return nil, fmt.Errorf("failed to scan genome: %w", err)
		}
		if i, ok := index[pid]; ok {
			records[i].GenomeIDs = append(records[i].GenomeIDs, gid)
		}
	}
	if err := grows.Err(); err != nil {
		return nil, err
	}

	return dataset.New(records), nil
}

// Count returns the number of stored proteins.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM proteins").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count proteins: %w", err)
	}
	return n, nil
}

// Absent facets are stored as NULL.
func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
