package docset

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"doclint/internal/logging"
)

// WalkOptions controls which files Walk loads.
type WalkOptions struct {
	Root        string
	Extensions  []string // Lower-case with leading dot
	CommandDirs []string // Slash-separated, relative to Root
	Ignore      []string // Names, nested paths, or globs
	MaxFileSize int64    // 0 = unlimited
}

// Walk loads every Markdown file under opts.Root.
// Per-file read failures become Problems; only a bad root or a cancelled
// context produce an error.
func Walk(ctx context.Context, opts WalkOptions) (*Set, error) {
	timer := logging.StartTimer(logging.CategoryWalk, "walk")
	defer timer.Stop()

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}

	set := &Set{Root: root, Index: NewIndex()}
	logging.Walk("Walking %s", root)

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if walkErr != nil {
			set.Problems = append(set.Problems, Problem{Rel: rel, Severity: "error", Message: walkErr.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if rel == "." {
			return nil
		}
		if isIgnoredRel(rel, d.Name(), opts.Ignore) {
			logging.WalkDebug("Ignoring %s", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			set.Index.AddDir(rel)
			return nil
		}
		// Symlinks are indexed as files but never followed.
		set.Index.AddFile(rel)

		if _, ok := exts[strings.ToLower(filepath.Ext(p))]; !ok {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			set.Problems = append(set.Problems, Problem{Rel: rel, Severity: "error", Message: fmt.Sprintf("stat failed: %v", err)})
			return nil
		}
		if opts.MaxFileSize > 0 && fi.Size() > opts.MaxFileSize {
			logging.WalkWarn("Skipping %s: %d bytes exceeds limit %d", rel, fi.Size(), opts.MaxFileSize)
			set.Problems = append(set.Problems, Problem{
				Rel:      rel,
				Severity: "warning",
				Message:  fmt.Sprintf("skipped: file is %d bytes (limit %d)", fi.Size(), opts.MaxFileSize),
			})
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			logging.WalkWarn("Read failed for %s: %v", rel, err)
			set.Problems = append(set.Problems, Problem{Rel: rel, Severity: "error", Message: fmt.Sprintf("read failed: %v", err)})
			return nil
		}

		kind := KindDoc
		if inCommandDir(rel, opts.CommandDirs) {
			kind = KindCommand
		}
		set.Documents = append(set.Documents, &Document{
			Path:    p,
			Rel:     rel,
			Kind:    kind,
			Content: content,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(set.Documents, func(i, j int) bool { return set.Documents[i].Rel < set.Documents[j].Rel })
	logging.Walk("Loaded %d documents (%d commands), indexed %d files, %d problems",
		len(set.Documents), len(set.Commands()), set.Index.Len(), len(set.Problems))
	return set, nil
}
