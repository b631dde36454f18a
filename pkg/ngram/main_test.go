package ngram

import (
	"database/sql"
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// newTrainedModel creates a bigram model trained on a small fixed corpus.
// With a minimum count of 1 every corpus word enters the vocabulary.
func newTrainedModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel(2, 1)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	if err := m.Train("one fish two fish. red fish blue fish."); err != nil {
		t.Fatalf("setup: Train() failed: %v", err)
	}
	return m
}

// setupTestStore creates a file-backed SQLite database and a Store for
// testing. It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(store.Close)

	return db, store
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus builds a corpus large enough to make benchmark
// numbers meaningful by concatenating a few sizable files from the local Go
// installation. If any of them cannot be read, a short fixed text keeps the
// benchmarks runnable.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		sources := []string{
			filepath.Join(build.Default.GOROOT, "src/regexp/regexp.go"),
			filepath.Join(build.Default.GOROOT, "src/strings/strings.go"),
			filepath.Join(build.Default.GOROOT, "src/database/sql/sql.go"),
		}

		var sb strings.Builder
		for _, source := range sources {
			content, err := os.ReadFile(source)
			if err != nil {
				benchmarkCorpus = "the quick brown fox jumps over the lazy dog. the lazy dog sleeps on. "
				return
			}
			sb.Write(content)
			sb.WriteByte('\n')
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
