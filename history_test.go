package main

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func newTestHistoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitHistoryDB(filepath.Join(t.TempDir(), "history-test.db"))
	if err != nil {
		t.Fatalf("InitHistoryDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecordRunAndCount(t *testing.T) {
	db := newTestHistoryDB(t)
	runAt := time.Now().UTC().Truncate(time.Second)

	rows := []HistoryRow{
		{Issue: 1, Title: "Analyzed", Disposition: "analyzed", Confidence: "high"},
		{Issue: 2, Title: "Cached", Disposition: "cached", Confidence: "medium"},
		{Issue: 3, Title: "Filtered", Disposition: "filtered"},
		{Issue: 4, Title: "Failed", Disposition: "failed", Confidence: "low"},
		{Issue: 5, Title: "Also analyzed", Disposition: "analyzed", Confidence: "low"},
	}
	inserted, err := RecordRun(db, "categorize", runAt, rows)
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if inserted != 5 {
		t.Fatalf("inserted = %d", inserted)
	}

	counts, err := CountByDisposition(db, "categorize", runAt)
	if err != nil {
		t.Fatalf("CountByDisposition failed: %v", err)
	}
	if counts["analyzed"] != 2 || counts["cached"] != 1 || counts["filtered"] != 1 || counts["failed"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestLastDisposition(t *testing.T) {
	db := newTestHistoryDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	if _, err := RecordRun(db, "triage", base, []HistoryRow{
		{Issue: 10, Disposition: "failed", Category: "error"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := RecordRun(db, "triage", base.Add(time.Hour), []HistoryRow{
		{Issue: 10, Disposition: "analyzed", Category: "confirmed_bug"},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := LastDisposition(db, "triage", 10)
	if err != nil {
		t.Fatalf("LastDisposition failed: %v", err)
	}
	if got != "analyzed" {
		t.Fatalf("disposition = %q", got)
	}

	missing, err := LastDisposition(db, "triage", 999)
	if err != nil {
		t.Fatalf("LastDisposition failed: %v", err)
	}
	if missing != "" {
		t.Fatalf("expected empty disposition for unseen issue, got %q", missing)
	}
}

func TestRunsAreIsolatedByMode(t *testing.T) {
	db := newTestHistoryDB(t)
	runAt := time.Now().UTC().Truncate(time.Second)

	if _, err := RecordRun(db, "categorize", runAt, []HistoryRow{{Issue: 1, Disposition: "analyzed"}}); err != nil {
		t.Fatal(err)
	}

	counts, err := CountByDisposition(db, "triage", runAt)
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 0 {
		t.Fatalf("expected no triage rows, got %v", counts)
	}
}
