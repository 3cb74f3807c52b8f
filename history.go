package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// The history DB records one row per resolved issue per run. It is
// supplemental to the JSON result stores: it answers "what changed between
// runs" without diffing cache files, and survives cache deletion.

func InitHistoryDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS triage_history (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_at      DATETIME NOT NULL,
		mode        TEXT NOT NULL,
		issue       INTEGER NOT NULL,
		title       TEXT DEFAULT '',
		disposition TEXT NOT NULL,
		category    TEXT DEFAULT '',
		confidence  TEXT DEFAULT '',
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_th_run_at ON triage_history(run_at);
	CREATE INDEX IF NOT EXISTS idx_th_issue ON triage_history(issue);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}

type HistoryRow struct {
	Issue       int
	Title       string
	Disposition string // "analyzed", "cached", "filtered", or "failed"
	Category    string
	Confidence  string
}

// RecordRun inserts all rows for one run in a single transaction.
func RecordRun(db *sql.DB, mode string, runAt time.Time, rows []HistoryRow) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO triage_history (run_at, mode, issue, title, disposition, category, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, row := range rows {
		_, err := stmt.Exec(runAt, mode, row.Issue, row.Title, row.Disposition, row.Category, row.Confidence)
		if err != nil {
			return inserted, err
		}
		inserted++
	}

	return inserted, tx.Commit()
}

// LastDisposition returns the most recent disposition recorded for an issue,
// or "" if the issue has never been seen.
func LastDisposition(db *sql.DB, mode string, issue int) (string, error) {
	var disposition string
	err := db.QueryRow(
		`SELECT disposition FROM triage_history WHERE mode = ? AND issue = ?
		 ORDER BY run_at DESC, id DESC LIMIT 1`,
		mode, issue,
	).Scan(&disposition)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return disposition, err
}

// CountByDisposition tallies rows for one run timestamp.
func CountByDisposition(db *sql.DB, mode string, runAt time.Time) (map[string]int, error) {
	rows, err := db.Query(
		`SELECT disposition, COUNT(*) FROM triage_history WHERE mode = ? AND run_at = ? GROUP BY disposition`,
		mode, runAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var disposition string
		var n int
		if err := rows.Scan(&disposition, &n); err != nil {
			return nil, err
		}
		counts[disposition] = n
	}
	return counts, rows.Err()
}

