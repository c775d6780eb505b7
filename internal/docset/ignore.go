package docset

import (
	"path"
	"path/filepath"
	"strings"
)

func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimSuffix(p, "/")
	p = strings.TrimSuffix(p, "\\")
	return filepath.ToSlash(p)
}

// isIgnoredRel reports whether a relative path should be ignored.
// Patterns are plain names ("node_modules"), nested paths ("docs/drafts"),
// or globs ("archive/*", "*.tmp.md").
func isIgnoredRel(rel, name string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, raw := range patterns {
		p := normalizePattern(raw)
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "*?[]") {
			if ok, _ := path.Match(p, rel); ok {
				return true
			}
			if ok, _ := path.Match(p, name); ok && !strings.Contains(p, "/") {
				return true
			}
			if strings.HasSuffix(p, "/*") {
				prefix := strings.TrimSuffix(p, "/*")
				if strings.HasPrefix(rel, prefix+"/") {
					return true
				}
			}
			continue
		}
		if name == p || rel == p {
			return true
		}
		if strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}

// inCommandDir reports whether rel lives below one of dirs.
func inCommandDir(rel string, dirs []string) bool {
	for _, d := range dirs {
		d = strings.Trim(normalizePattern(d), "/")
		if d == "" {
			continue
		}
		if strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}

// SkipFunc returns a predicate matching the directories Walk would skip
// for the given ignore patterns.
func SkipFunc(patterns []string) func(rel, name string) bool {
	return func(rel, name string) bool {
		return isIgnoredRel(rel, name, patterns)
	}
}
