package mover_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"filesorter/internal/logging"
	"filesorter/internal/mover"
	"filesorter/internal/resolve"
	"filesorter/internal/services"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func crossDeviceRename(oldpath, newpath string) error {
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unix.EXDEV}
}

func TestExecuteRenamesAndBuildsRecord(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "invoice.pdf")
	dst := filepath.Join(dir, "Documents", "invoice.pdf")
	writeFile(t, src, "pdf")

	record, err := mover.New(logging.NewNop()).Execute(src, dst, mover.Meta{Category: "Documents", Confidence: 0.8, Method: "local-extension"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source gone, stat err=%v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "pdf" {
		t.Fatalf("unexpected destination content %q err=%v", data, err)
	}
	if record.ID == "" || record.Timestamp.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", record)
	}
	if record.Filename != "invoice.pdf" || record.SourcePath != src || record.DestPath != dst {
		t.Fatalf("unexpected record paths: %+v", record)
	}
	if record.Category != "Documents" || record.Confidence != 0.8 || record.Method != "local-extension" {
		t.Fatalf("unexpected record meta: %+v", record)
	}
}

func TestExecuteCrossDeviceCopyThenRemoveFailureStillSucceeds(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "movie.mkv")
	dst := filepath.Join(dir, "Videos", "movie.mkv")
	writeFile(t, src, "frames")

	exec := mover.New(logging.NewNop())
	exec.Rename = crossDeviceRename
	exec.Remove = func(string) error { return errors.New("permission denied") }

	record, err := exec.Execute(src, dst, mover.Meta{Category: "Videos"})
	if err != nil {
		t.Fatalf("expected success despite remove failure, got %v", err)
	}
	if record.DestPath != dst {
		t.Fatalf("unexpected record: %+v", record)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "frames" {
		t.Fatalf("expected copied content, got %q err=%v", data, err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected source to remain after failed remove: %v", err)
	}
}

func TestExecuteCrossDeviceRemovesSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.zip")
	dst := filepath.Join(dir, "Archives", "a.zip")
	writeFile(t, src, "zip")

	exec := mover.New(logging.NewNop())
	exec.Rename = crossDeviceRename

	if _, err := exec.Execute(src, dst, mover.Meta{}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, stat err=%v", err)
	}
}

func TestExecuteFailsWhenCopyFails(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "Documents", "a.txt")
	writeFile(t, src, "text")

	exec := mover.New(logging.NewNop())
	exec.Rename = crossDeviceRename
	exec.Copy = func(_, dst string) error {
		_ = os.WriteFile(dst, []byte("te"), 0o644)
		return errors.New("disk full")
	}

	_, err := exec.Execute(src, dst, mover.Meta{})
	var moveErr *mover.MoveError
	if !errors.As(err, &moveErr) {
		t.Fatalf("expected MoveError, got %v", err)
	}
	if !errors.Is(err, services.ErrMove) || !errors.Is(err, unix.EXDEV) {
		t.Fatalf("expected move marker and rename cause, got %v", err)
	}
	if moveErr.CopyErr == nil || moveErr.RenameErr == nil {
		t.Fatalf("expected both causes, got %+v", moveErr)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("expected partial copy removed, stat err=%v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected source untouched: %v", err)
	}
}

func TestOverwriteLeavesExactlyOneFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "report.txt")
	dst := filepath.Join(dir, "Documents", "report.txt")
	writeFile(t, src, "new")
	writeFile(t, dst, "old")

	outcome, err := resolve.Resolve(dst, resolve.StrategyOverwrite)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if _, err := mover.New(logging.NewNop()).Execute(src, outcome.Path, mover.Meta{}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "Documents"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "report.txt" {
		t.Fatalf("expected exactly one report.txt, got %v", entries)
	}
	data, _ := os.ReadFile(dst)
	if string(data) != "new" {
		t.Fatalf("expected new content, got %q", data)
	}
}

func TestCopyFilePreservesContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeFile(t, src, "0123456789")

	if err := mover.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile returned error: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "0123456789" {
		t.Fatalf("unexpected copy %q err=%v", data, err)
	}
}

func TestIsCrossDevice(t *testing.T) {
	if !mover.IsCrossDevice(crossDeviceRename("a", "b")) {
		t.Fatal("expected EXDEV to be detected")
	}
	if mover.IsCrossDevice(errors.New("other")) {
		t.Fatal("unexpected cross-device match")
	}
}
