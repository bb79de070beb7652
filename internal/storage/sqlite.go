package storage

import (
	"database/sql"
	"fmt"

	"github.com/dandi/citecollect/internal/citation"
	_ "modernc.org/sqlite"
)

// DB is an ephemeral SQLite index over the citations file, rebuilt from
// the TSV on demand. The TSV stays the source of truth; the index exists
// for ad-hoc queries and the stats command.
type DB struct {
	db *sql.DB
}

const selectCitationFields = `item_id, item_flavor, citation_doi,
	citation_title, citation_year, citation_journal,
	relationship, sources, status, confidence`

// OpenDB opens or creates the citation index at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS citations (
			item_id TEXT NOT NULL,
			item_flavor TEXT NOT NULL,
			citation_doi TEXT NOT NULL,
			citation_title TEXT,
			citation_year INTEGER,
			citation_journal TEXT,
			relationship TEXT,
			sources TEXT,
			status TEXT NOT NULL,
			confidence REAL,
			PRIMARY KEY (item_id, item_flavor, citation_doi)
		);

		CREATE INDEX IF NOT EXISTS idx_citations_item ON citations(item_id);
		CREATE INDEX IF NOT EXISTS idx_citations_status ON citations(status);
	`
	_, err := db.Exec(schema)
	return err
}

// RebuildFromTSV clears the index and repopulates it from a citations TSV
// file. Returns the number of rows indexed.
func (d *DB) RebuildFromTSV(tsvPath string) (int, error) {
	records, err := LoadCitations(tsvPath)
	if err != nil {
		return 0, fmt.Errorf("loading citations: %w", err)
	}

	if _, err := d.db.Exec("DELETE FROM citations"); err != nil {
		return 0, fmt.Errorf("clearing citations table: %w", err)
	}

	stmt, err := d.db.Prepare(`
		INSERT INTO citations (` + selectCitationFields + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		_, err = stmt.Exec(
			rec.ItemID, rec.ItemFlavor, rec.CitationDOI,
			rec.CitationTitle, rec.CitationYear, rec.CitationJournal,
			string(rec.Relationship), joinSources(rec.Sources),
			string(rec.Status), rec.ClassificationConfidence,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting citation %s: %w", rec.CitationDOI, err)
		}
	}

	return len(records), nil
}

// CitationRow is one indexed citation as surfaced by queries.
type CitationRow struct {
	ItemID       string  `json:"item_id"`
	ItemFlavor   string  `json:"item_flavor"`
	CitationDOI  string  `json:"citation_doi"`
	Title        string  `json:"title"`
	Year         int     `json:"year"`
	Journal      string  `json:"journal,omitempty"`
	Relationship string  `json:"relationship"`
	Sources      string  `json:"sources"`
	Status       string  `json:"status"`
	Confidence   float64 `json:"confidence,omitempty"`
}

// ListByItem returns the indexed citations for one item, newest first by
// year, across all flavors.
func (d *DB) ListByItem(itemID string) ([]CitationRow, error) {
	rows, err := d.db.Query(`
		SELECT `+selectCitationFields+`
		FROM citations
		WHERE item_id = ?
		ORDER BY citation_year DESC, citation_doi
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing citations for %s: %w", itemID, err)
	}
	defer rows.Close()

	return scanCitations(rows)
}

// ListByStatus returns the indexed citations with the given status.
func (d *DB) ListByStatus(status citation.Status) ([]CitationRow, error) {
	rows, err := d.db.Query(`
		SELECT `+selectCitationFields+`
		FROM citations
		WHERE status = ?
		ORDER BY item_id, citation_year DESC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing citations with status %s: %w", status, err)
	}
	defer rows.Close()

	return scanCitations(rows)
}

// Count returns the total number of indexed citations.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM citations").Scan(&count)
	return count, err
}

// CountByStatus returns citation counts grouped by curation status.
func (d *DB) CountByStatus() (map[string]int, error) {
	return d.countBy("status")
}

// CountByItem returns citation counts grouped by item.
func (d *DB) CountByItem() (map[string]int, error) {
	return d.countBy("item_id")
}

// CountBySource returns citation counts grouped by discovery source. A
// citation found by several sources counts once per source.
func (d *DB) CountBySource() (map[string]int, error) {
	rows, err := d.db.Query("SELECT sources FROM citations")
	if err != nil {
		return nil, fmt.Errorf("counting by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var cell sql.NullString
		if err := rows.Scan(&cell); err != nil {
			return nil, err
		}
		for _, src := range splitList(cell.String) {
			counts[src]++
		}
	}
	return counts, rows.Err()
}

func (d *DB) countBy(column string) (map[string]int, error) {
	rows, err := d.db.Query("SELECT " + column + ", COUNT(*) FROM citations GROUP BY " + column)
	if err != nil {
		return nil, fmt.Errorf("counting by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

func scanCitations(rows *sql.Rows) ([]CitationRow, error) {
	var out []CitationRow
	for rows.Next() {
		var row CitationRow
		var title, journal, relationship, sources sql.NullString
		var year sql.NullInt64
		var confidence sql.NullFloat64

		err := rows.Scan(
			&row.ItemID, &row.ItemFlavor, &row.CitationDOI,
			&title, &year, &journal,
			&relationship, &sources, &row.Status, &confidence,
		)
		if err != nil {
			return nil, err
		}

		row.Title = title.String
		row.Journal = journal.String
		row.Relationship = relationship.String
		row.Sources = sources.String
		row.Year = int(year.Int64)
		row.Confidence = confidence.Float64

		out = append(out, row)
	}
	return out, rows.Err()
}
