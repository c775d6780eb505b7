package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"doclint/internal/config"
	"doclint/internal/report"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// resetFlags restores every global flag after a test.
func resetFlags(t *testing.T) {
	t.Helper()
	logger = zap.NewNop()
	t.Setenv("NO_COLOR", "1")
	t.Cleanup(func() {
		workspace = ""
		configPath = ""
		format = ""
		failOnWarn = false
		disable = nil
		concurrency = 0
	})
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return root
}

func cleanTree() map[string]string {
	return map[string]string{
		".claude/commands/review.md": "---\ndescription: Review the current change\nargument-hint: <path>\n---\nReview $ARGUMENTS against [the guide](../../docs/guide.md).\n",
		"docs/guide.md":              "# Guide\n\n```bash\ndotnet build\n```\n",
		"README.md":                  "# Index\n\nSee [guide](docs/guide.md#guide).\n",
	}
}

func exitCode(err error) int {
	if err == nil {
		return report.ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return report.ExitRuntime
}

func newCmd() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	return cmd, &buf
}

func TestCheckCmd_Clean(t *testing.T) {
	resetFlags(t)
	root := writeTree(t, cleanTree())

	cmd, out := newCmd()
	err := runCheck(cmd, []string{root})
	require.NoError(t, err, out.String())
	assert.Contains(t, out.String(), "Checked 3 Markdown files (1 commands)")
	assert.Contains(t, out.String(), "OK: no issues found")
}

func TestCheckCmd_WorkspaceFlag(t *testing.T) {
	resetFlags(t)
	workspace = writeTree(t, cleanTree())

	cmd, _ := newCmd()
	assert.NoError(t, runCheck(cmd, nil))
}

func TestCheckCmd_IssuesExitOne(t *testing.T) {
	resetFlags(t)
	files := cleanTree()
	files["README.md"] = "# Index\n\nSee [missing](docs/missing.md).\n"
	root := writeTree(t, files)

	cmd, out := newCmd()
	err := runCheck(cmd, []string{root})
	assert.Equal(t, report.ExitIssues, exitCode(err))
	assert.Contains(t, out.String(), "README.md:3 error:")
	assert.Contains(t, out.String(), "[link-target]")
}

func TestCheckCmd_FailOnWarn(t *testing.T) {
	resetFlags(t)
	files := cleanTree()
	files["docs/guide.md"] = "# Guide\n\n```\ndotnet build\n```\n"
	root := writeTree(t, files)

	cmd, _ := newCmd()
	assert.Equal(t, report.ExitOK, exitCode(runCheck(cmd, []string{root})), "warnings alone pass")

	failOnWarn = true
	cmd, _ = newCmd()
	assert.Equal(t, report.ExitIssues, exitCode(runCheck(cmd, []string{root})))

	disable = []string{"fence-language"}
	cmd, out := newCmd()
	assert.Equal(t, report.ExitOK, exitCode(runCheck(cmd, []string{root})), out.String())
}

func TestCheckCmd_JSONFormat(t *testing.T) {
	resetFlags(t)
	root := writeTree(t, cleanTree())
	format = "json"

	cmd, out := newCmd()
	require.NoError(t, runCheck(cmd, []string{root}))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out.String()), "{"))
	assert.Contains(t, out.String(), `"issues": []`)
}

func TestCheckCmd_RuntimeErrors(t *testing.T) {
	resetFlags(t)

	cmd, _ := newCmd()
	err := runCheck(cmd, []string{filepath.Join(t.TempDir(), "absent")})
	assert.Equal(t, report.ExitRuntime, exitCode(err))

	format = "xml"
	cmd, _ = newCmd()
	err = runCheck(cmd, []string{writeTree(t, cleanTree())})
	assert.Equal(t, report.ExitRuntime, exitCode(err))

	format = ""
	disable = []string{"no-such-rule"}
	cmd, _ = newCmd()
	err = runCheck(cmd, []string{writeTree(t, cleanTree())})
	assert.Equal(t, report.ExitRuntime, exitCode(err))
}

func TestInitCmd(t *testing.T) {
	resetFlags(t)
	root := t.TempDir()

	cmd, out := newCmd()
	require.NoError(t, runInit(cmd, []string{root}))
	assert.Contains(t, out.String(), "Wrote")

	path := filepath.Join(root, config.DefaultFileName)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	// Idempotent: an existing file is left alone.
	require.NoError(t, os.WriteFile(path, []byte("output:\n  format: json\n"), 0644))
	cmd, out = newCmd()
	require.NoError(t, runInit(cmd, []string{root}))
	assert.Contains(t, out.String(), "already exists")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "output:\n  format: json\n", string(data))
}

func TestRulesCmd(t *testing.T) {
	resetFlags(t)
	workspace = writeTree(t, map[string]string{
		config.DefaultFileName: "rules:\n  fence-language:\n    enabled: false\n  link-anchor:\n    severity: error\n",
	})

	cmd, out := newCmd()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	require.NoError(t, runRules(cmd, nil))
	assert.Contains(t, stderr.String(), "overrides from "+filepath.Join(workspace, config.DefaultFileName)+" applied")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 13)
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "fence-language "):
			assert.Contains(t, l, "(disabled)")
		case strings.HasPrefix(l, "link-anchor "):
			assert.Contains(t, l, " error ")
		}
	}
}

// syncBuffer is a bytes.Buffer safe for the watcher goroutine to write to.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchLoop_RechecksOnChange(t *testing.T) {
	resetFlags(t)
	root := writeTree(t, cleanTree())
	require.NoError(t, os.WriteFile(filepath.Join(root, config.DefaultFileName), []byte("watch:\n  debounce: 50ms\n"), 0644))

	s, err := newSession(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- watchLoop(ctx, s, out) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "OK: no issues found")
	}, 5*time.Second, 20*time.Millisecond)

	// Give the watcher time to register before the edit.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# Index\n\n[gone](nope.md)\n"), 0644))

	require.Eventually(t, func() bool {
		o := out.String()
		return strings.Contains(o, "re-checking") && strings.Contains(o, "[link-target]")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop on cancel")
	}
}

// startWatchLoop runs watchLoop on root until the test ends.
func startWatchLoop(t *testing.T, root string) *syncBuffer {
	t.Helper()
	s, err := newSession(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- watchLoop(ctx, s, out) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watch loop did not stop on cancel")
		}
	})

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Checked ")
	}, 5*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	return out
}

func TestWatchLoop_RechecksOnAssetChange(t *testing.T) {
	resetFlags(t)
	files := cleanTree()
	files["README.md"] = "# Index\n\n![logo](img/logo.png)\n"
	files[config.DefaultFileName] = "watch:\n  debounce: 50ms\n"
	root := writeTree(t, files)

	out := startWatchLoop(t, root)
	require.Contains(t, out.String(), "[link-target]")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "img"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "img", "logo.png"), []byte("png"), 0644))

	require.Eventually(t, func() bool {
		o := out.String()
		i := strings.LastIndex(o, "re-checking")
		return i >= 0 && strings.Contains(o[i:], "OK: no issues found")
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatchLoop_RestartsOnWatchSettingsChange(t *testing.T) {
	resetFlags(t)
	core, logs := observer.New(zap.InfoLevel)
	logger = zap.New(core)

	files := cleanTree()
	files[config.DefaultFileName] = "watch:\n  debounce: 50ms\n"
	root := writeTree(t, files)
	out := startWatchLoop(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, config.DefaultFileName), []byte("watch:\n  debounce: 60ms\n"), 0644))
	require.Eventually(t, func() bool {
		if logs.FilterMessage("Watch settings changed, restarting watcher").Len() == 0 {
			return false
		}
		watching := logs.FilterMessage("Watching for changes").All()
		return watching[len(watching)-1].ContextMap()["debounce"] == 60*time.Millisecond
	}, 5*time.Second, 20*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# Index\n\n[gone](nope.md)\n"), 0644))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "[link-target]")
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatchSettingsChanged(t *testing.T) {
	base := config.DefaultConfig()
	same := config.DefaultConfig()
	assert.False(t, watchSettingsChanged(base, same))

	debounce := config.DefaultConfig()
	debounce.Watch.Debounce = "1s"
	assert.True(t, watchSettingsChanged(base, debounce))

	ignore := config.DefaultConfig()
	ignore.Walk.Ignore = append(ignore.Walk.Ignore, "vendor")
	assert.True(t, watchSettingsChanged(base, ignore))

	format := config.DefaultConfig()
	format.Output.Format = "json"
	assert.False(t, watchSettingsChanged(base, format))
}
