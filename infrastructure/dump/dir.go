// ABOUTME: Writes raw fetched bodies into a debug directory
// ABOUTME: File names are derived from the sanitized URL and a reason suffix

package dump

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/cockroachdb/errors"
)

const maxNameLength = 120

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Dir implements interfaces.DumpStorage on a local directory
type Dir struct {
	path string
}

// NewDir creates the directory if needed
func NewDir(path string) (*Dir, error) {
	if path == "" {
		return nil, errors.New("dump directory cannot be empty")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create dump directory %s", path)
	}
	return &Dir{path: path}, nil
}

// Dump writes body to <sanitized-url>_<suffix>.html, replacing any earlier dump
// with the same name.
func (d *Dir) Dump(url, suffix string, body []byte) error {
	name := FileName(url, suffix)
	if err := os.WriteFile(filepath.Join(d.path, name), body, 0o644); err != nil {
		return errors.Wrapf(err, "write dump %s", name)
	}
	return nil
}

// FileName maps a URL and suffix to a flat, filesystem-safe name
func FileName(url, suffix string) string {
	name := unsafeChars.ReplaceAllString(url, "_")
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	return name + "_" + unsafeChars.ReplaceAllString(suffix, "_") + ".html"
}
