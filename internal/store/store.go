package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a SQLite-backed archive of evaluation records. The (date, id)
// primary key makes re-running an experiment for a day idempotent: content
// ids are deterministic, so the same item evaluated twice on the same day
// collapses to one row.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS evaluation_records (
		date                 TEXT NOT NULL,
		id                   TEXT NOT NULL,
		title                TEXT DEFAULT '',
		body                 TEXT DEFAULT '',
		category             TEXT DEFAULT '',
		primary_text         TEXT NOT NULL,
		secondary_text       TEXT DEFAULT '',
		actual_valid         INTEGER NOT NULL DEFAULT 0,
		violations           TEXT DEFAULT '[]',
		encouraged_aspects   TEXT DEFAULT '[]',
		confidence           REAL NOT NULL DEFAULT 0,
		reasoning            TEXT DEFAULT '',
		predicted_category   TEXT DEFAULT '',
		source               TEXT NOT NULL DEFAULT 'seed',
		expected_valid       INTEGER,
		parent_id            TEXT DEFAULT '',
		distance_from_parent INTEGER,
		similarity_to_parent REAL,
		violations_injected  TEXT DEFAULT '[]',
		provider             TEXT DEFAULT '',
		model                TEXT DEFAULT '',
		execution_time_ms    INTEGER DEFAULT 0,
		trace_id             TEXT DEFAULT '',
		error                TEXT DEFAULT '',
		created_at           DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (date, id)
	);
	CREATE INDEX IF NOT EXISTS idx_er_created_at ON evaluation_records(created_at);
	CREATE INDEX IF NOT EXISTS idx_er_source ON evaluation_records(source);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const insertSQL = `INSERT OR IGNORE INTO evaluation_records
	(date, id, title, body, category, primary_text, secondary_text,
	 actual_valid, violations, encouraged_aspects, confidence, reasoning, predicted_category,
	 source, expected_valid, parent_id, distance_from_parent, similarity_to_parent, violations_injected,
	 provider, model, execution_time_ms, trace_id, error, created_at)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertArgs(r EvaluationRecord) []any {
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return []any{
		r.Date, r.ID, r.Title, r.Body, r.Category, r.PrimaryText, r.SecondaryText,
		boolToInt(r.ActualValid), encodeStrings(r.Violations), encodeStrings(r.EncouragedAspects),
		r.Confidence, r.Reasoning, r.PredictedCategory,
		r.Source, nullableBool(r.ExpectedValid), r.ParentID,
		nullableInt(r.DistanceFromParent), nullableFloat(r.SimilarityToParent),
		encodeStrings(r.ViolationsInjected),
		r.Provider, r.Model, r.ExecutionTimeMs, r.TraceID, r.Err, created,
	}
}

// Save inserts one record. A record already present for (date, id) is left
// untouched and Save still succeeds.
func (s *Store) Save(r EvaluationRecord) error {
	if r.ID == "" || r.Date == "" {
		return fmt.Errorf("record needs both id and date, got id=%q date=%q", r.ID, r.Date)
	}
	_, err := s.db.Exec(insertSQL, insertArgs(r)...)
	return err
}

// SaveBatch inserts records in one transaction and returns how many rows
// were actually written. Duplicates count as zero; any failure rolls the
// whole batch back.
func (s *Store) SaveBatch(records []EvaluationRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		if r.ID == "" || r.Date == "" {
			return 0, fmt.Errorf("record needs both id and date, got id=%q date=%q", r.ID, r.Date)
		}
		res, err := stmt.Exec(insertArgs(r)...)
		if err != nil {
			return 0, fmt.Errorf("saving record %s/%s: %w", r.Date, r.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, tx.Commit()
}

const selectCols = `date, id, title, body, category, primary_text, secondary_text,
	actual_valid, violations, encouraged_aspects, confidence, reasoning, predicted_category,
	source, expected_valid, parent_id, distance_from_parent, similarity_to_parent, violations_injected,
	provider, model, execution_time_ms, trace_id, error, created_at`

func scanRecord(scan func(dest ...any) error) (EvaluationRecord, error) {
	var (
		r             EvaluationRecord
		actualValid   int
		violations    string
		encouraged    string
		expectedValid sql.NullInt64
		distance      sql.NullInt64
		similarity    sql.NullFloat64
		injected      string
	)
	err := scan(
		&r.Date, &r.ID, &r.Title, &r.Body, &r.Category, &r.PrimaryText, &r.SecondaryText,
		&actualValid, &violations, &encouraged, &r.Confidence, &r.Reasoning, &r.PredictedCategory,
		&r.Source, &expectedValid, &r.ParentID, &distance, &similarity, &injected,
		&r.Provider, &r.Model, &r.ExecutionTimeMs, &r.TraceID, &r.Err, &r.CreatedAt,
	)
	if err != nil {
		return r, err
	}
	r.ActualValid = actualValid != 0
	r.Violations = decodeStrings(violations)
	r.EncouragedAspects = decodeStrings(encouraged)
	r.ViolationsInjected = decodeStrings(injected)
	if expectedValid.Valid {
		v := expectedValid.Int64 != 0
		r.ExpectedValid = &v
	}
	if distance.Valid {
		d := int(distance.Int64)
		r.DistanceFromParent = &d
	}
	if similarity.Valid {
		sim := similarity.Float64
		r.SimilarityToParent = &sim
	}
	return r, nil
}

// Get fetches one record; found is false when no record exists for the key.
func (s *Store) Get(date, id string) (EvaluationRecord, bool, error) {
	row := s.db.QueryRow(
		`SELECT `+selectCols+` FROM evaluation_records WHERE date = ? AND id = ?`,
		date, id,
	)
	r, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return EvaluationRecord{}, false, nil
	}
	if err != nil {
		return EvaluationRecord{}, false, err
	}
	return r, true, nil
}

func (s *Store) queryRecords(query string, args ...any) ([]EvaluationRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EvaluationRecord
	for rows.Next() {
		r, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetByDate returns all records for one date in insertion order.
func (s *Store) GetByDate(date string) ([]EvaluationRecord, error) {
	return s.queryRecords(
		`SELECT `+selectCols+` FROM evaluation_records WHERE date = ? ORDER BY created_at, id`,
		date,
	)
}

// GetLatest returns the most recently written records, newest first.
func (s *Store) GetLatest(limit int) ([]EvaluationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryRecords(
		`SELECT `+selectCols+` FROM evaluation_records ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
}

// DeleteDate removes every record for date and returns how many were removed.
func (s *Store) DeleteDate(date string) (int, error) {
	res, err := s.db.Exec(`DELETE FROM evaluation_records WHERE date = ?`, date)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Dates returns the distinct dates present, newest first.
func (s *Store) Dates() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT date FROM evaluation_records ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// ExportFilter narrows an Export. Zero value exports everything evaluable.
type ExportFilter struct {
	Date      string
	Source    string
	ValidOnly *bool // filter on the classifier's verdict
	Limit     int
}

// Export converts stored records into dataset items. Records with a
// classification error are skipped: they carry no usable verdict.
func (s *Store) Export(f ExportFilter) ([]DatasetItem, error) {
	query := `SELECT ` + selectCols + ` FROM evaluation_records WHERE error = ''`
	var args []any
	if f.Date != "" {
		query += ` AND date = ?`
		args = append(args, f.Date)
	}
	if f.Source != "" {
		query += ` AND source = ?`
		args = append(args, f.Source)
	}
	if f.ValidOnly != nil {
		query += ` AND actual_valid = ?`
		args = append(args, boolToInt(*f.ValidOnly))
	}
	query += ` ORDER BY date, created_at, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	records, err := s.queryRecords(query, args...)
	if err != nil {
		return nil, err
	}
	items := make([]DatasetItem, 0, len(records))
	for _, r := range records {
		items = append(items, r.ToDatasetItem())
	}
	return items, nil
}

// Statistics summarizes the archive for reporting.
type Statistics struct {
	TotalRecords  int
	Dates         int
	ValidCount    int
	InvalidCount  int
	ErroredCount  int
	WithLabel     int
	LabelMatches  int
	AvgConfidence float64
	SourceCounts  map[string]int
}

func (s *Store) Stats() (Statistics, error) {
	var st Statistics
	err := s.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT date),
		        COALESCE(SUM(CASE WHEN actual_valid = 1 AND error = '' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN actual_valid = 0 AND error = '' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN error <> '' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN expected_valid IS NOT NULL AND error = '' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN expected_valid IS NOT NULL AND error = '' AND expected_valid = actual_valid THEN 1 ELSE 0 END), 0),
		        COALESCE(AVG(CASE WHEN error = '' THEN confidence END), 0)
		 FROM evaluation_records`,
	).Scan(&st.TotalRecords, &st.Dates, &st.ValidCount, &st.InvalidCount,
		&st.ErroredCount, &st.WithLabel, &st.LabelMatches, &st.AvgConfidence)
	if err != nil {
		return st, err
	}

	rows, err := s.db.Query(`SELECT source, COUNT(*) FROM evaluation_records GROUP BY source`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	st.SourceCounts = make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return st, err
		}
		st.SourceCounts[source] = count
	}
	return st, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableBool(b *bool) any {
	if b == nil {
		return nil
	}
	return boolToInt(*b)
}

func nullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// String slices live in TEXT columns as JSON arrays.
func encodeStrings(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	data, err := json.Marshal(ss)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeStrings(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
