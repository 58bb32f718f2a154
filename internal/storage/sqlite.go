package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/matsen/bibmerge/internal/author"
	"github.com/matsen/bibmerge/internal/entry"
	_ "modernc.org/sqlite"
)

// ErrIndexNotFound is returned by OpenExistingDB when there is no index file.
var ErrIndexNotFound = errors.New("search index not found")

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// selectEntryFields contains the standard field list for SELECT queries.
const selectEntryFields = `id, cite_key, type, fields_json`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	// Create schema if needed
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// OpenExistingDB opens a database that must already exist.
func OpenExistingDB(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("checking database: %w", err)
	}
	return OpenDB(path)
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		-- Merged entries; cite_key is not unique
		CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			cite_key TEXT NOT NULL,
			type TEXT NOT NULL,
			doi TEXT,
			year INTEGER,
			fields_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_entries_key ON entries(cite_key);
		CREATE INDEX IF NOT EXISTS idx_entries_doi ON entries(doi) WHERE doi IS NOT NULL AND doi != '';

		-- Full-text search virtual table (standalone, not external content)
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			id UNINDEXED,
			cite_key,
			title,
			author,
			keywords
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the database and rebuilds it from a JSONL file.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	entries, err := ReadAll(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}
	return d.RebuildFromEntries(entries)
}

// RebuildFromEntries replaces the database contents with entries.
// Entries without an ID get their position as ID.
func (d *DB) RebuildFromEntries(entries []*entry.Entry) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting rebuild: %w", err)
	}
	defer tx.Rollback()

	// Clear existing data
	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return 0, fmt.Errorf("clearing entries table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM entries_fts"); err != nil {
		return 0, fmt.Errorf("clearing entries_fts table: %w", err)
	}

	entriesStmt, err := tx.Prepare(`
		INSERT INTO entries (id, cite_key, type, doi, year, fields_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing entries insert: %w", err)
	}
	defer entriesStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO entries_fts (id, cite_key, title, author, keywords)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	count := 0
	for i, e := range entries {
		if e == nil {
			continue
		}
		id := e.ID
		if id == "" {
			id = strconv.Itoa(i + 1)
		}

		fieldsJSON, err := json.Marshal(e.Fields)
		if err != nil {
			return 0, fmt.Errorf("marshaling fields for %s: %w", e.Key, err)
		}

		doi, _ := e.Field(entry.FieldDOI)
		_, err = entriesStmt.Exec(id, e.Key, e.Type, nullableStringValue(doi), yearValue(e), string(fieldsJSON))
		if err != nil {
			return 0, fmt.Errorf("inserting entry %s: %w", e.Key, err)
		}

		title, _ := e.Field(entry.FieldTitle)
		author, _ := e.Field(entry.FieldAuthor)
		keywords, _ := e.Field(entry.FieldKeywords)
		if _, err := ftsStmt.Exec(id, e.Key, title, author, keywords); err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", e.Key, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return count, nil
}

// yearValue returns the leading four-digit year of the year field, or NULL.
func yearValue(e *entry.Entry) sql.NullInt64 {
	year, ok := e.Field(entry.FieldYear)
	if !ok || len(year) < 4 {
		return sql.NullInt64{}
	}
	n, err := strconv.Atoi(year[:4])
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

// GetByID retrieves an entry by its ID. Returns nil if not found.
func (d *DB) GetByID(id string) (*entry.Entry, error) {
	row := d.db.QueryRow(`SELECT `+selectEntryFields+` FROM entries WHERE id = ?`, id)
	return scanEntry(row)
}

// GetByKey retrieves all entries with the given citation key.
func (d *DB) GetByKey(key string) ([]*entry.Entry, error) {
	rows, err := d.db.Query(`SELECT `+selectEntryFields+` FROM entries WHERE cite_key = ? ORDER BY rowid`, key)
	if err != nil {
		return nil, fmt.Errorf("looking up key %s: %w", key, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Search performs a full-text search and returns matching entries.
func (d *DB) Search(query string, limit int) ([]*entry.Entry, error) {
	return d.SearchWithFilters(SearchFilters{Keyword: query}, limit)
}

// SearchFilters contains optional filters for SearchWithFilters.
type SearchFilters struct {
	Keyword  string   // General keyword search across key, title, author and keywords
	Authors  []string // Author names to search for (AND logic, see author.Query)
	Title    string   // Search in title only (FTS)
	YearFrom int      // Minimum year (0 = no minimum)
	YearTo   int      // Maximum year (0 = no maximum)
	Type     string   // Exact entry type
	DOI      string   // Exact DOI match
}

// SearchWithFilters performs a search with multiple optional filters.
// Returns entries matching ALL specified criteria (AND logic).
func (d *DB) SearchWithFilters(filters SearchFilters, limit int) ([]*entry.Entry, error) {
	var ftsTerms []string
	var args []interface{}
	var authorQueries []author.Query

	if q := prepareFTSQuery(filters.Keyword); q != "" {
		ftsTerms = append(ftsTerms, q)
	}
	if q := prepareFTSQuery(filters.Title); q != "" {
		ftsTerms = append(ftsTerms, "title:("+q+")")
	}
	for _, a := range filters.Authors {
		if q := prepareAuthorQuery(a); q != "" {
			ftsTerms = append(ftsTerms, "author:"+q)
			authorQueries = append(authorQueries, author.ParseQuery(a))
		}
	}

	var query string
	if len(ftsTerms) > 0 {
		query = `SELECT ` + selectEntryFields + `
			FROM entries
			WHERE id IN (SELECT id FROM entries_fts WHERE entries_fts MATCH ?)`
		args = append(args, strings.Join(ftsTerms, " AND "))
	} else {
		query = `SELECT ` + selectEntryFields + ` FROM entries WHERE 1=1`
	}

	// SQL-based filters (exact/range matches)
	if filters.YearFrom > 0 {
		query += " AND year >= ?"
		args = append(args, filters.YearFrom)
	}
	if filters.YearTo > 0 {
		query += " AND year <= ?"
		args = append(args, filters.YearTo)
	}
	if filters.Type != "" {
		query += " AND type = ?"
		args = append(args, strings.ToLower(filters.Type))
	}
	if filters.DOI != "" {
		query += " AND doi = ?"
		args = append(args, filters.DOI)
	}

	// Author matches are refined after the query, so the limit applies then
	query += " ORDER BY rowid"
	if limit > 0 && len(authorQueries) == 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil || len(authorQueries) == 0 {
		return entries, err
	}
	return filterByAuthors(entries, authorQueries, limit), nil
}

// filterByAuthors keeps entries whose author list satisfies every query.
// FTS prefix matching alone lets "Yu" match "Yujia".
func filterByAuthors(entries []*entry.Entry, queries []author.Query, limit int) []*entry.Entry {
	var kept []*entry.Entry
	for _, e := range entries {
		field, _ := e.Field(entry.FieldAuthor)
		if !author.AllMatch(queries, author.ParseNames(field)) {
			continue
		}
		kept = append(kept, e)
		if limit > 0 && len(kept) == limit {
			break
		}
	}
	return kept
}

// prepareAuthorQuery prepares an author name for FTS5 search with prefix matching.
// It adds a wildcard (*) so "Tim" matches "Timothy".
func prepareAuthorQuery(author string) string {
	parts := strings.Fields(author)
	if len(parts) == 0 {
		return ""
	}

	var terms []string
	for _, part := range parts {
		escaped := strings.ReplaceAll(part, "\"", "\"\"")
		terms = append(terms, "\""+escaped+"\"*")
	}

	// Use OR for multi-word author queries (match any part)
	return "(" + strings.Join(terms, " OR ") + ")"
}

// Count returns the total number of entries.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count)
	return count, err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*entry.Entry, error) {
	var e entry.Entry
	var fieldsJSON string

	if err := s.Scan(&e.ID, &e.Key, &e.Type, &fieldsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &e.Fields); err != nil {
		return nil, fmt.Errorf("parsing fields JSON for %s: %w", e.Key, err)
	}
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]*entry.Entry, error) {
	var entries []*entry.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if e != nil {
			entries = append(entries, e)
		}
	}
	return entries, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	// FTS5 uses double quotes for phrase matching
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// If query contains special chars, quote it
	if strings.ContainsAny(query, "\"*+-:(){}[]^~.,/") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
