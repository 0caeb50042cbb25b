// Package mover relocates a file and produces its audit record.
//
// A move is attempted as an atomic rename first. Any rename failure falls back
// to a verified copy followed by deletion of the source, which covers moves
// across filesystems. Once the copy is verified the move counts as done even if
// the source cannot be removed.
package mover

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"filesorter/internal/audit"
	"filesorter/internal/logging"
	"filesorter/internal/services"
)

// Meta carries the classification facts stamped onto the record.
type Meta struct {
	Category   string
	RuleID     string
	Confidence float64
	Method     string
}

// MoveError reports that neither rename nor copy succeeded.
type MoveError struct {
	Source      string
	Destination string
	RenameErr   error
	CopyErr     error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move %q to %q: rename: %v; copy: %v", e.Source, e.Destination, e.RenameErr, e.CopyErr)
}

func (e *MoveError) Unwrap() []error {
	return []error{services.ErrMove, e.RenameErr, e.CopyErr}
}

// Executor moves files. The function fields default to the os package and can
// be replaced in tests to simulate filesystem failures.
type Executor struct {
	Rename func(oldpath, newpath string) error
	Copy   func(src, dst string) error
	Remove func(path string) error
	Now    func() time.Time

	logger *slog.Logger
}

// New constructs an executor backed by the real filesystem.
func New(logger *slog.Logger) *Executor {
	return &Executor{
		Rename: os.Rename,
		Copy:   CopyFile,
		Remove: os.Remove,
		Now:    time.Now,
		logger: logging.NewComponentLogger(logger, "mover"),
	}
}

// Execute moves source to dest, creating dest's parent directories, and
// returns the audit record for the completed move.
func (e *Executor) Execute(source, dest string, meta Meta) (audit.Record, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return audit.Record{}, services.Wrap(services.ErrMove, "move", "create destination folder", filepath.Dir(dest), err)
	}

	if renameErr := e.Rename(source, dest); renameErr != nil {
		logger := e.logger.With(logging.Path(source), logging.String("destination", dest))
		if IsCrossDevice(renameErr) {
			logger.Debug("rename crossed filesystems; copying", logging.String(logging.FieldEventType, "move_cross_device"))
		} else {
			logger.Debug("rename failed; copying", logging.Error(renameErr), logging.String(logging.FieldEventType, "move_rename_failed"))
		}

		if copyErr := e.Copy(source, dest); copyErr != nil {
			if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Debug("partial copy cleanup failed", logging.Error(err))
			}
			return audit.Record{}, &MoveError{Source: source, Destination: dest, RenameErr: renameErr, CopyErr: copyErr}
		}
		if err := e.Remove(source); err != nil {
			logging.WarnWithContext(logger, "source not removed after copy; duplicate remains", "move_source_cleanup_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete the original manually"),
				logging.String(logging.FieldImpact, "file exists in both locations"),
			)
		}
	}

	return audit.Record{
		ID:         uuid.NewString(),
		Filename:   filepath.Base(source),
		SourcePath: source,
		DestPath:   dest,
		Category:   meta.Category,
		RuleID:     meta.RuleID,
		Confidence: meta.Confidence,
		Method:     meta.Method,
		Timestamp:  e.Now().UTC(),
	}, nil
}

// IsCrossDevice reports whether err is a rename across filesystems.
func IsCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}

// CopyFile copies src to dst and verifies the result by size and SHA-256.
// The destination is removed if verification fails.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy data: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("sync destination: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("close destination: %w", err)
	}

	if written != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	_ = os.Chtimes(dst, time.Now(), info.ModTime())
	return nil
}
