package resolve_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"filesorter/internal/resolve"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveFreeDestinationProceeds(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "Documents", "a.pdf")
	for _, strategy := range []resolve.Strategy{resolve.StrategySkip, resolve.StrategyOverwrite, resolve.StrategyRename, "bogus"} {
		outcome, err := resolve.Resolve(dest, strategy)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", strategy, err)
		}
		if outcome.Skip || outcome.Path != dest {
			t.Fatalf("%s: expected proceed to %s, got %+v", strategy, dest, outcome)
		}
	}
}

func TestResolveRenamePicksFirstFreeSuffix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "report.txt"), "a")
	writeFile(t, filepath.Join(dir, "report (1).txt"), "b")

	outcome, err := resolve.Resolve(filepath.Join(dir, "report.txt"), resolve.StrategyRename)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := filepath.Join(dir, "report (2).txt")
	if outcome.Skip || outcome.Path != want {
		t.Fatalf("expected %s, got %+v", want, outcome)
	}
}

func TestResolveRenameDotfile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "a")

	outcome, err := resolve.Resolve(filepath.Join(dir, ".env"), resolve.StrategyRename)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if want := filepath.Join(dir, ".env (1)"); outcome.Path != want {
		t.Fatalf("expected %s, got %s", want, outcome.Path)
	}
}

func TestResolveSkipLeavesExistingUntouched(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a.pdf")
	writeFile(t, dest, "original")
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(dest, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	for _, strategy := range []resolve.Strategy{resolve.StrategySkip, "", "unknown"} {
		outcome, err := resolve.Resolve(dest, strategy)
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if !outcome.Skip {
			t.Fatalf("%q: expected skip, got %+v", strategy, outcome)
		}
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != int64(len("original")) || !info.ModTime().Equal(past) {
		t.Fatalf("existing file modified: size=%d mtime=%v", info.Size(), info.ModTime())
	}
}

func TestResolveOverwriteRemovesExisting(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a.pdf")
	writeFile(t, dest, "old")

	outcome, err := resolve.Resolve(dest, resolve.StrategyOverwrite)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if outcome.Skip || outcome.Path != dest {
		t.Fatalf("expected proceed to dest, got %+v", outcome)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("expected existing file removed, stat err=%v", err)
	}
}

func TestResolveOverwriteRefusesDirectory(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "Documents")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := resolve.Resolve(dest, resolve.StrategyOverwrite); err == nil {
		t.Fatal("expected error for directory destination")
	}
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]resolve.Strategy{
		"":          resolve.StrategySkip,
		"skip":      resolve.StrategySkip,
		"Overwrite": resolve.StrategyOverwrite,
		" rename ":  resolve.StrategyRename,
		"merge":     resolve.StrategySkip,
	}
	for input, want := range cases {
		if got := resolve.ParseStrategy(input); got != want {
			t.Fatalf("ParseStrategy(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestPreviewOverwriteKeepsExisting(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(dest, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	outcome, err := resolve.Preview(dest, resolve.StrategyOverwrite)
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if outcome.Skip || outcome.Path != dest {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if data, err := os.ReadFile(dest); err != nil || string(data) != "keep" {
		t.Fatalf("expected existing file untouched, got %q err=%v", data, err)
	}
}
