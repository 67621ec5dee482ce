// Package scanner implements C2: a periodic, best-effort recursive
// directory walk that feeds discovered backup files into a pathindex.Index.
package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SnakeSolid/pgrestore-web/internal/config"
	"github.com/SnakeSolid/pgrestore-web/internal/logger"
	"github.com/SnakeSolid/pgrestore-web/internal/pathindex"
)

// Scanner owns the single long-running background directory scan loop
// that keeps the path index in sync with the configured search roots.
type Scanner struct {
	cfg   config.SearchConfig
	index *pathindex.Index
	log   *logger.Logger
}

// New builds a Scanner. It does not start scanning until Run is called.
func New(cfg config.SearchConfig, index *pathindex.Index, log *logger.Logger) *Scanner {
	return &Scanner{cfg: cfg, index: index, log: log.With("component", "scanner")}
}

// Run drives the scan loop until ctx is canceled. If directories or
// extensions is empty, it logs a warning and returns immediately: the
// scanner exits permanently rather than busy-looping on an empty config.
func (s *Scanner) Run(ctx context.Context) {
	if len(s.cfg.Directories) == 0 || len(s.cfg.Extensions) == 0 {
		s.log.Warn("scanner disabled: no directories or extensions configured")
		return
	}

	interval := time.Duration(s.cfg.Interval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	for {
		s.cycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// cycle runs exactly one scan pass: drop stale entries, then walk every
// configured root concurrently.
func (s *Scanner) cycle(ctx context.Context) {
	s.index.Retain(isRegularFile)

	limit := s.cfg.RecursionLimit
	if limit <= 0 {
		limit = 5
	}

	group, _ := errgroup.WithContext(ctx)
	for _, root := range s.cfg.Directories {
		root := root
		group.Go(func() error {
			s.walkRoot(root, limit)
			return nil
		})
	}
	_ = group.Wait()
}

// walkRoot performs a depth-bounded DFS of root, inserting files whose
// extension matches the allow-list. I/O failures and exhausted depth
// budgets are logged and the walk continues with siblings; nothing here
// ever propagates an error out of the scanner.
func (s *Scanner) walkRoot(root string, limit int) {
	rootDepth := depthOf(root)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Warn("scan error, skipping subtree", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && depthOf(path)-rootDepth >= limit {
				s.log.Warn("recursion limit exceeded, skipping subtree", "path", path)
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != "" {
			ext = ext[1:]
		}
		if !matchesExtension(ext, s.cfg.Extensions) {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			s.log.Warn("failed to resolve absolute path, skipping", "path", path, "error", err)
			return nil
		}
		s.index.Add(abs)

		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("failed to scan root", "root", root, "error", err)
	}
}

func depthOf(path string) int {
	clean := filepath.Clean(path)
	if clean == string(filepath.Separator) || clean == "." {
		return 0
	}
	depth := 0
	for _, r := range clean {
		if r == filepath.Separator {
			depth++
		}
	}
	return depth
}

func matchesExtension(ext string, allowed []string) bool {
	for _, a := range allowed {
		if a == ext {
			return true
		}
	}
	return false
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
