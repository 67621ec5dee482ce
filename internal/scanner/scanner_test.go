package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SnakeSolid/pgrestore-web/internal/config"
	"github.com/SnakeSolid/pgrestore-web/internal/logger"
	"github.com/SnakeSolid/pgrestore-web/internal/pathindex"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestCycleIndexesMatchingExtensions(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.backup"), "x")
	mustWrite(t, filepath.Join(dir, "b.sql"), "x")
	mustWrite(t, filepath.Join(dir, "ignore.txt"), "x")

	cfg := config.SearchConfig{
		Directories:    []string{dir},
		Extensions:     []string{"backup", "sql"},
		RecursionLimit: 5,
	}

	index := pathindex.New()
	s := New(cfg, index, testLogger(t))
	s.cycle(context.Background())

	var found []string
	index.Query("a b", 10, func(path string) { found = append(found, path) })

	if len(found) == 0 {
		t.Fatalf("expected at least one indexed file, got none")
	}
}

func TestCycleSkipsNonAllowedExtensions(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "ignore.txt"), "x")

	cfg := config.SearchConfig{
		Directories:    []string{dir},
		Extensions:     []string{"backup"},
		RecursionLimit: 5,
	}

	index := pathindex.New()
	s := New(cfg, index, testLogger(t))
	s.cycle(context.Background())

	var found []string
	index.Query("ignore", 10, func(path string) { found = append(found, path) })

	if len(found) != 0 {
		t.Fatalf("expected ignore.txt not indexed, got %v", found)
	}
}

func TestRunExitsImmediatelyWhenUnconfigured(t *testing.T) {
	cfg := config.SearchConfig{}
	index := pathindex.New()
	s := New(cfg, index, testLogger(t))

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Run to return immediately when unconfigured")
	}
}

func mustWrite(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}
