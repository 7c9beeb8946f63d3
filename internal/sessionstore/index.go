package sessionstore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Index is a pure-Go SQLite-backed queryable history layered under the
// JSON metadata.json contract — the filesystem remains the source of
// truth, this is a denormalized index for fast listing/filtering.
type Index struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	requirements TEXT NOT NULL,
	language TEXT NOT NULL,
	success INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);`

// OpenIndex opens (creating if necessary) the SQLite index file at path.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("sessionstore: opening index: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sessionstore: pinging index: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sessionstore: creating schema: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &Index{db: db}, nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Record upserts one session's summary row.
func (idx *Index) Record(id, requirements, language string, success bool, createdAt int64) error {
	successInt := 0
	if success {
		successInt = 1
	}
	_, err := idx.db.Exec(
		`INSERT INTO sessions (id, requirements, language, success, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET requirements=excluded.requirements, language=excluded.language,
		 success=excluded.success, created_at=excluded.created_at`,
		id, requirements, language, successInt, createdAt,
	)
	return err
}

// Recent returns the n most recently created session summaries.
func (idx *Index) Recent(n int) ([]SessionSummary, error) {
	rows, err := idx.db.Query(`SELECT id, requirements, language, success, created_at FROM sessions ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: querying index: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		var successInt int
		if err := rows.Scan(&s.ID, &s.Requirements, &s.Language, &successInt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("sessionstore: scanning row: %w", err)
		}
		s.Success = successInt == 1
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountByLanguage returns the success/total counts for a given language,
// useful for a CLI summary command.
func (idx *Index) CountByLanguage(language string) (total, successes int, err error) {
	row := idx.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(success), 0) FROM sessions WHERE language = ?`, language)
	err = row.Scan(&total, &successes)
	return total, successes, err
}
