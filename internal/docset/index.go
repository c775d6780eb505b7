package docset

import (
	"path"
	"strings"
	"sync"
)

// Index records every file and directory under the walk root.
// Lookups are case-sensitive; FoldMatch offers a case-insensitive fallback
// for "did you mean" hints on case-insensitive filesystems.
type Index struct {
	mu    sync.RWMutex
	files map[string]struct{}
	dirs  map[string]struct{}
	fold  map[string]string // lower-case rel -> actual rel
}

// NewIndex returns an empty index containing only the root directory.
func NewIndex() *Index {
	return &Index{
		files: make(map[string]struct{}),
		dirs:  map[string]struct{}{".": {}},
		fold:  make(map[string]string),
	}
}

// AddFile records a file path (slash-separated, relative to root).
func (x *Index) AddFile(rel string) {
	rel = path.Clean(rel)
	x.mu.Lock()
	defer x.mu.Unlock()
	x.files[rel] = struct{}{}
	x.fold[strings.ToLower(rel)] = rel
}

// AddDir records a directory path.
func (x *Index) AddDir(rel string) {
	rel = path.Clean(rel)
	x.mu.Lock()
	defer x.mu.Unlock()
	x.dirs[rel] = struct{}{}
	if _, ok := x.fold[strings.ToLower(rel)]; !ok {
		x.fold[strings.ToLower(rel)] = rel
	}
}

// Exists reports whether rel is a known file or directory.
func (x *Index) Exists(rel string) bool {
	rel = path.Clean(rel)
	x.mu.RLock()
	defer x.mu.RUnlock()
	if _, ok := x.files[rel]; ok {
		return true
	}
	_, ok := x.dirs[rel]
	return ok
}

// IsDir reports whether rel is a known directory.
func (x *Index) IsDir(rel string) bool {
	rel = path.Clean(rel)
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.dirs[rel]
	return ok
}

// FoldMatch returns the indexed path that equals rel ignoring case.
// It returns false when rel already matches exactly or nothing matches.
func (x *Index) FoldMatch(rel string) (string, bool) {
	rel = path.Clean(rel)
	x.mu.RLock()
	defer x.mu.RUnlock()
	actual, ok := x.fold[strings.ToLower(rel)]
	if !ok || actual == rel {
		return "", false
	}
	return actual, true
}

// Len returns the number of indexed files.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.files)
}
