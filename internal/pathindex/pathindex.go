// Package pathindex implements C1: an in-memory inverted index over
// filesystem paths, keyed by lower-cased path components, supporting
// fuzzy substring search ranked by accumulated token-length weight.
//
// The index is append-mostly: Add inserts, Retain evicts entries that no
// longer satisfy a predicate (used by the scanner to drop files that
// disappeared from disk), and Query answers ranked fuzzy lookups. All
// three acquire the lock only for the map bookkeeping itself: no I/O
// happens while the lock is held.
package pathindex

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Index is the concurrency-safe path index.
type Index struct {
	mu      sync.RWMutex
	paths   map[uint64]string
	postings map[string][]uint64 // lower(component) -> ids, insertion order
	nextID  uint64
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		paths:    make(map[uint64]string),
		postings: make(map[string][]uint64),
	}
}

// Add inserts path if no existing entry shares any path component and
// refers to an equal path already. Duplicate detection: for the first
// component whose posting list is non-empty, check whether any id on
// that list already maps to an equal path; if so, the insert is a no-op.
func (ix *Index) Add(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	components := splitComponents(path)
	if len(components) == 0 {
		return
	}

	for _, component := range components {
		key := strings.ToLower(component)
		ids, ok := ix.postings[key]
		if !ok || len(ids) == 0 {
			continue
		}
		for _, id := range ids {
			if ix.paths[id] == path {
				return
			}
		}
		break
	}

	id := ix.nextID
	ix.nextID++
	ix.paths[id] = path

	for _, component := range components {
		key := strings.ToLower(component)
		ix.postings[key] = append(ix.postings[key], id)
	}
}

// Retain drops every entry whose path fails keep, rewriting posting
// lists and removing keys left with no postings.
func (ix *Index) Retain(keep func(path string) bool) {
	ix.mu.RLock()
	snapshot := make(map[uint64]string, len(ix.paths))
	for id, path := range ix.paths {
		snapshot[id] = path
	}
	ix.mu.RUnlock()

	removed := make(map[uint64]struct{})
	for id, path := range snapshot {
		if !keep(path) {
			removed[id] = struct{}{}
		}
	}
	if len(removed) == 0 {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for id := range removed {
		delete(ix.paths, id)
	}

	for key, ids := range ix.postings {
		filtered := ids[:0:0]
		for _, id := range ids {
			if _, gone := removed[id]; !gone {
				filtered = append(filtered, id)
			}
		}
		if len(filtered) == 0 {
			delete(ix.postings, key)
		} else {
			ix.postings[key] = filtered
		}
	}
}

// Query tokenizes q on whitespace, '_', '\\' and '/', lowercases each
// token, and scores every indexed id by the sum of len(token) over every
// index key that contains the token as a substring. The top n ids,
// ordered by (weight desc, id desc), are emitted via emit in that order.
func (ix *Index) Query(q string, n int, emit func(path string)) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	weights := make(map[uint64]uint64)

	for _, token := range tokenize(q) {
		weight := uint64(len(token))
		for key, ids := range ix.postings {
			if !strings.Contains(key, token) {
				continue
			}
			for _, id := range ids {
				weights[id] += weight
			}
		}
	}

	type scored struct {
		id     uint64
		weight uint64
	}

	results := make([]scored, 0, len(weights))
	for id, weight := range weights {
		results = append(results, scored{id: id, weight: weight})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].weight != results[j].weight {
			return results[i].weight > results[j].weight
		}
		return results[i].id > results[j].id
	})

	if n < 0 {
		n = 0
	}
	if n < len(results) {
		results = results[:n]
	}

	for _, r := range results {
		if path, ok := ix.paths[r.id]; ok {
			emit(path)
		}
	}
}

// splitComponents returns every path component but the root.
func splitComponents(path string) []string {
	clean := filepath.Clean(path)
	clean = strings.TrimPrefix(clean, string(filepath.Separator))
	if clean == "" || clean == "." {
		return nil
	}
	return strings.Split(clean, string(filepath.Separator))
}

func tokenize(q string) []string {
	lowered := strings.ToLower(q)
	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', '_', '\\', '/':
			return true
		default:
			return false
		}
	})
	return fields
}
