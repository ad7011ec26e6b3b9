package wordgen

import (
	"database/sql"
	"iter"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// seqOf adapts a fixed word list to the iterator shape Build consumes.
func seqOf(words ...string) iter.Seq[string] {
	return slices.Values(words)
}

// buildTestModel builds a model from the given words, failing the test on error.
func buildTestModel(t *testing.T, words []string, opts ...BuildOption) *Model {
	t.Helper()
	m, err := Build(seqOf(words...), opts...)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return m
}

// newTestRand returns a seeded random source so generation is reproducible.
func newTestRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// setupTestStore creates a SQLite database in a temp dir and a Store over it.
// It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}
