package docset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func defaultOpts(root string) WalkOptions {
	return WalkOptions{
		Root:        root,
		Extensions:  []string{".md", ".markdown"},
		CommandDirs: []string{".claude/commands"},
		Ignore:      []string{".git", "node_modules", "bin", "obj"},
	}
}

func TestWalk_ClassifiesAndSorts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# Readme")
	writeFile(t, root, "docs/architecture/mvp.md", "# MVP")
	writeFile(t, root, "docs/images/form.png", "png")
	writeFile(t, root, ".claude/commands/fix-bug.md", "---\ndescription: fix\n---\nGo.")
	writeFile(t, root, ".claude/commands/review/code.markdown", "---\ndescription: review\n---\nGo.")
	writeFile(t, root, "node_modules/pkg/README.md", "# vendored")
	writeFile(t, root, ".git/HEAD.md", "ref")

	set, err := Walk(context.Background(), defaultOpts(root))
	require.NoError(t, err)

	var got []string
	for _, d := range set.Documents {
		got = append(got, d.Rel+":"+string(d.Kind))
	}
	want := []string{
		".claude/commands/fix-bug.md:command",
		".claude/commands/review/code.markdown:command",
		"README.md:doc",
		"docs/architecture/mvp.md:doc",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, set.Index.Exists("docs/images/form.png"), "non-markdown files are indexed")
	assert.True(t, set.Index.IsDir("docs/architecture"))
	assert.False(t, set.Index.Exists("node_modules/pkg/README.md"), "ignored paths are not indexed")
	assert.Len(t, set.Commands(), 2)
	assert.Empty(t, set.Problems)

	doc, ok := set.Lookup("README.md")
	require.True(t, ok)
	assert.Equal(t, "# Readme", string(doc.Content))
	_, ok = set.Lookup("missing.md")
	assert.False(t, ok)
}

func TestWalk_RootErrors(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.md")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := Walk(context.Background(), WalkOptions{Root: file})
	assert.True(t, errors.Is(err, ErrNotDirectory))

	_, err = Walk(context.Background(), WalkOptions{Root: filepath.Join(root, "absent")})
	assert.True(t, os.IsNotExist(err))
}

func TestWalk_MaxFileSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.md", "0123456789")
	writeFile(t, root, "small.md", "ok")

	opts := defaultOpts(root)
	opts.MaxFileSize = 5
	set, err := Walk(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, set.Documents, 1)
	assert.Equal(t, "small.md", set.Documents[0].Rel)
	require.Len(t, set.Problems, 1)
	assert.Equal(t, "big.md", set.Problems[0].Rel)
	assert.Equal(t, "warning", set.Problems[0].Severity)
	assert.True(t, set.Index.Exists("big.md"), "skipped files remain link targets")
}

func TestWalk_UnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	root := t.TempDir()
	writeFile(t, root, "locked.md", "# Locked")
	writeFile(t, root, "open.md", "# Open")
	locked := filepath.Join(root, "locked.md")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0644) })

	set, err := Walk(context.Background(), defaultOpts(root))
	require.NoError(t, err)

	require.Len(t, set.Documents, 1)
	assert.Equal(t, "open.md", set.Documents[0].Rel)
	require.Len(t, set.Problems, 1)
	assert.Equal(t, "locked.md", set.Problems[0].Rel)
	assert.Equal(t, "error", set.Problems[0].Severity)
	assert.Contains(t, set.Problems[0].Message, "read failed")
}

func TestWalk_SymlinkedDirNotFollowed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real/a.md", "# A")
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	set, err := Walk(context.Background(), defaultOpts(root))
	require.NoError(t, err)

	_, ok := set.Lookup("real/a.md")
	assert.True(t, ok)
	_, ok = set.Lookup("link/a.md")
	assert.False(t, ok, "symlinked directories are not descended")
	assert.True(t, set.Index.Exists("link"))
	assert.False(t, set.Index.IsDir("link"))
	assert.False(t, set.Index.Exists("link/a.md"))
}

func TestWalk_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Walk(ctx, defaultOpts(root))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex_FoldMatch(t *testing.T) {
	x := NewIndex()
	x.AddFile("docs/Guide.md")

	actual, ok := x.FoldMatch("docs/guide.md")
	require.True(t, ok)
	assert.Equal(t, "docs/Guide.md", actual)

	_, ok = x.FoldMatch("docs/Guide.md")
	assert.False(t, ok, "exact matches are not fold matches")

	assert.True(t, x.Exists("docs/./Guide.md"), "paths are cleaned")
	assert.True(t, x.Exists("."), "root is always present")
}

func TestIsIgnoredRel(t *testing.T) {
	tests := []struct {
		rel, name string
		patterns  []string
		want      bool
	}{
		{"node_modules", "node_modules", []string{"node_modules"}, true},
		{"docs/drafts/a.md", "a.md", []string{"docs/drafts"}, true},
		{"archive/old.md", "old.md", []string{"archive/*"}, true},
		{"docs/notes.tmp.md", "notes.tmp.md", []string{"*.tmp.md"}, true},
		{"docs/guide.md", "guide.md", []string{"drafts", "*.tmp.md"}, false},
		{"docs/binary.md", "binary.md", []string{"bin"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isIgnoredRel(tt.rel, tt.name, tt.patterns), "rel=%s patterns=%v", tt.rel, tt.patterns)
	}
}

func TestDocument_CommandName(t *testing.T) {
	dirs := []string{".claude/commands"}
	d := &Document{Rel: ".claude/commands/fix/null-ref.md", Kind: KindCommand}
	assert.Equal(t, "fix:null-ref", d.CommandName(dirs))

	doc := &Document{Rel: "docs/guide.md", Kind: KindDoc}
	assert.Equal(t, "", doc.CommandName(dirs))
}
