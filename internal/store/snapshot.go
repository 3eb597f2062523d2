package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/snipdex/snipdex/internal/corpus"
)

// StoredRecord is one corpus record row. Tags and Extra hold JSON text.
type StoredRecord struct {
	ID           string
	Lang         string
	Platform     string
	Scope        string
	Since        string
	Description  string
	Tags         string // JSON array string
	Extra        string // JSON object string
	Body         string
	SourcePath   string
	SegmentIndex int
	Position     int
}

// DuplicateRecord is a shadowed record that lost an id collision.
type DuplicateRecord struct {
	RecordID     string
	SourcePath   string
	SegmentIndex int
	Description  string
	Tags         string
	Body         string
}

// StoredDiagnostic is one diagnostic row from the last snapshot.
type StoredDiagnostic struct {
	Kind         string
	Path         string
	SegmentIndex int
	Detail       string
}

// BuildInfo is one row of snapshot history.
type BuildInfo struct {
	ID          int64
	BuiltAt     string
	Root        string
	TotalFiles  int
	FilesRead   int
	Records     int
	Duplicates  int
	Diagnostics int
}

// SaveSnapshot replaces the stored snapshot with the contents of idx and
// appends a builds history row. Record rows keep the index build order via
// the position column.
func (db *DB) SaveSnapshot(idx *corpus.Index, root string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"records", "duplicates", "diagnostics"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	recStmt, err := tx.Prepare(`
		INSERT INTO records (id, lang, platform, scope, since, description, tags, extra,
			body, source_path, segment_index, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record stmt: %w", err)
	}
	defer recStmt.Close()

	pos := 0
	for rec := range idx.All() {
		if _, err := recStmt.Exec(
			rec.ID, rec.Lang, rec.Platform, rec.Scope, rec.Since, rec.Description,
			marshalTags(rec.Tags), marshalExtra(rec.Extra),
			rec.Body, rec.SourcePath, rec.SegmentIndex, pos,
		); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
		pos++
	}

	dupStmt, err := tx.Prepare(`
		INSERT INTO duplicates (record_id, source_path, segment_index, description, tags, body)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare duplicate stmt: %w", err)
	}
	defer dupStmt.Close()

	for _, id := range idx.DuplicateIDs() {
		for _, rec := range idx.Duplicates(id) {
			if _, err := dupStmt.Exec(
				id, rec.SourcePath, rec.SegmentIndex,
				rec.Description, marshalTags(rec.Tags), rec.Body,
			); err != nil {
				return fmt.Errorf("insert duplicate %s: %w", id, err)
			}
		}
	}

	diagStmt, err := tx.Prepare(`
		INSERT INTO diagnostics (kind, path, segment_index, detail)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare diagnostic stmt: %w", err)
	}
	defer diagStmt.Close()

	for _, d := range idx.Diagnostics() {
		if _, err := diagStmt.Exec(string(d.Kind), d.Path, d.SegmentIndex, d.Detail); err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}

	stats := idx.Stats()
	if _, err := tx.Exec(`
		INSERT INTO builds (built_at, root, total_files, files_read, records, duplicates, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stats.BuiltAt, root, stats.TotalFiles, stats.FilesRead, stats.Records,
		stats.ShadowedRecords, stats.Diagnostics,
	); err != nil {
		return fmt.Errorf("insert build row: %w", err)
	}

	return tx.Commit()
}

func marshalTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func marshalExtra(extra map[string]any) string {
	if len(extra) == 0 {
		return "{}"
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "{}"
	}
	return string(data)
}

const recordColumns = `id, lang, platform, scope, since, description, tags, extra,
	body, source_path, segment_index, position`

// GetRecord returns the stored record with the given id, or nil when absent.
func (db *DB) GetRecord(id string) (*StoredRecord, error) {
	row := db.conn.QueryRow(
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	var r StoredRecord
	err := row.Scan(
		&r.ID, &r.Lang, &r.Platform, &r.Scope, &r.Since, &r.Description,
		&r.Tags, &r.Extra, &r.Body, &r.SourcePath, &r.SegmentIndex, &r.Position,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRecords returns all stored records in build order.
func (db *DB) ListRecords() ([]StoredRecord, error) {
	rows, err := db.conn.Query(
		`SELECT ` + recordColumns + ` FROM records ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RecordsByTag returns stored records carrying the tag, case-insensitively,
// in build order. Tag matching happens here rather than in SQL because tags
// live in a JSON column.
func (db *DB) RecordsByTag(tag string) ([]StoredRecord, error) {
	all, err := db.ListRecords()
	if err != nil {
		return nil, err
	}
	var matched []StoredRecord
	for _, rec := range all {
		for _, t := range ParseTags(rec.Tags) {
			if strings.EqualFold(t, tag) {
				matched = append(matched, rec)
				break
			}
		}
	}
	return matched, nil
}

// RecordCount returns the number of stored records.
func (db *DB) RecordCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM records").Scan(&count)
	return count, err
}

// ListDuplicates returns all shadowed records from the last snapshot.
func (db *DB) ListDuplicates() ([]DuplicateRecord, error) {
	rows, err := db.conn.Query(`
		SELECT record_id, source_path, segment_index, description, tags, body
		FROM duplicates ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dups []DuplicateRecord
	for rows.Next() {
		var d DuplicateRecord
		if err := rows.Scan(
			&d.RecordID, &d.SourcePath, &d.SegmentIndex,
			&d.Description, &d.Tags, &d.Body,
		); err != nil {
			return nil, err
		}
		dups = append(dups, d)
	}
	return dups, rows.Err()
}

// ListDiagnostics returns all diagnostics from the last snapshot.
func (db *DB) ListDiagnostics() ([]StoredDiagnostic, error) {
	rows, err := db.conn.Query(`
		SELECT kind, path, segment_index, detail
		FROM diagnostics ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var diags []StoredDiagnostic
	for rows.Next() {
		var d StoredDiagnostic
		if err := rows.Scan(&d.Kind, &d.Path, &d.SegmentIndex, &d.Detail); err != nil {
			return nil, err
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

// LastBuild returns the newest builds history row, or nil when the database
// has never seen a snapshot.
func (db *DB) LastBuild() (*BuildInfo, error) {
	row := db.conn.QueryRow(`
		SELECT id, built_at, root, total_files, files_read, records, duplicates, diagnostics
		FROM builds ORDER BY id DESC LIMIT 1`)
	var b BuildInfo
	err := row.Scan(
		&b.ID, &b.BuiltAt, &b.Root, &b.TotalFiles, &b.FilesRead,
		&b.Records, &b.Duplicates, &b.Diagnostics,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanRecords(rows *sql.Rows) ([]StoredRecord, error) {
	var records []StoredRecord
	for rows.Next() {
		var r StoredRecord
		if err := rows.Scan(
			&r.ID, &r.Lang, &r.Platform, &r.Scope, &r.Since, &r.Description,
			&r.Tags, &r.Extra, &r.Body, &r.SourcePath, &r.SegmentIndex, &r.Position,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ParseTags parses the JSON tags string into a slice.
func ParseTags(tagsJSON string) []string {
	var tags []string
	json.Unmarshal([]byte(tagsJSON), &tags)
	return tags
}
