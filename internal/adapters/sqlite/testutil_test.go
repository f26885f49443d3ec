// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() so tests run against the
// authoritative schema. Do not hardcode CREATE TABLE statements in test files.
package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/bidsfix/internal/db"
	"github.com/example/bidsfix/internal/ports/secondary"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// record builds an acquisition record for the HCP-style test session.
func record(datatype, task, run, dir, suffix, ext string) *secondary.AcquisitionRecord {
	name := "sub-01_ses-1"
	if task != "" {
		name += "_task-" + task
	}
	if dir != "" {
		name += "_dir-" + dir
	}
	if run != "" {
		name += "_run-" + run
	}
	name += "_" + suffix + ext
	rel := "sub-01/ses-1/" + datatype + "/" + name
	return &secondary.AcquisitionRecord{
		Subject:   "01",
		Session:   "1",
		Datatype:  datatype,
		Task:      task,
		Run:       run,
		Direction: dir,
		Suffix:    suffix,
		Extension: ext,
		RelPath:   rel,
		Path:      "/data/" + rel,
	}
}

// seedSession stores a small session with rest, task and fmap files.
func seedSession(t *testing.T, repo secondary.IndexStore) []*secondary.AcquisitionRecord {
	t.Helper()
	records := []*secondary.AcquisitionRecord{
		record("func", "rest", "1", "AP", "bold", ".nii.gz"),
		record("func", "rest", "02", "PA", "bold", ".nii.gz"),
		record("func", "gambling", "", "AP", "bold", ".nii.gz"),
		record("func", "WM", "", "PA", "bold", ".nii.gz"),
		record("fmap", "", "1", "AP", "epi", ".json"),
		record("fmap", "", "1", "PA", "epi", ".json"),
		record("fmap", "", "3", "AP", "epi", ".json"),
		record("fmap", "", "3", "AP", "epi", ".nii.gz"),
	}
	if err := repo.Replace(context.Background(), "/data", records); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return records
}
