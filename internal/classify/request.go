package classify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// PreviewBytes caps the content preview sent for text files.
const PreviewBytes = 1000

var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".json": {}, ".xml": {}, ".csv": {}, ".log": {},
	".py": {}, ".js": {}, ".ts": {}, ".html": {}, ".css": {},
	".yaml": {}, ".yml": {}, ".toml": {}, ".ini": {}, ".cfg": {},
}

// IsTextExtension reports whether a preview is read for ext.
func IsTextExtension(ext string) bool {
	_, ok := textExtensions[normalizeExtension(ext)]
	return ok
}

// BuildRequest describes the file at path. A missing size or unreadable
// preview is left nil rather than failing the request.
func BuildRequest(path string) (Request, error) {
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) {
		return Request{}, fmt.Errorf("build request: %q has no file name", path)
	}
	req := Request{
		Filename:  name,
		Extension: filepath.Ext(name),
	}
	if info, err := os.Stat(path); err == nil {
		size := info.Size()
		req.SizeBytes = &size
	} else if errors.Is(err, os.ErrNotExist) {
		return Request{}, fmt.Errorf("build request: %w", err)
	}
	if IsTextExtension(req.Extension) {
		if preview, err := readPreview(path); err == nil {
			req.ContentPreview = &preview
		}
	}
	return req, nil
}

func readPreview(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, PreviewBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.ToValidUTF8(string(buf[:n]), string(utf8.RuneError)), nil
}
