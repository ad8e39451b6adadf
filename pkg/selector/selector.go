// Package selector decides which files a run minifies and where the
// minified artifacts are written.
package selector

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/minify-runner/internal/models"
)

// ErrOutsideRoot is returned by Confine for paths that leave the root directory
var ErrOutsideRoot = errors.New("path is outside the root directory")

// Matcher selects source files of a single asset kind
type Matcher struct {
	Kind models.Kind
	// Strict requires the name to end with the extension marker instead of
	// merely containing it.
	Strict bool
	// Logger receives warnings about directories the walk cannot enter
	Logger logrus.FieldLogger
}

// NewMatcher creates a matcher for kind
func NewMatcher(kind models.Kind, strict bool) Matcher {
	return Matcher{Kind: kind, Strict: strict, Logger: logrus.StandardLogger()}
}

// Matches reports whether name carries the extension marker
func (m Matcher) Matches(name string) bool {
	lower := strings.ToLower(name)
	if m.Strict {
		return strings.HasSuffix(lower, m.Kind.Marker())
	}
	return strings.Contains(lower, m.Kind.Marker())
}

// IsMinified reports whether name already carries the minified marker
func (m Matcher) IsMinified(name string) bool {
	return strings.Contains(strings.ToLower(name), m.Kind.MinifiedMarker())
}

// Selectable reports whether name should be minified
func (m Matcher) Selectable(name string) bool {
	return m.Matches(name) && !m.IsMinified(name)
}

// OutputPath derives the minified artifact path by dropping the last three
// characters of path and appending the minified suffix. Names whose extension
// is not exactly three characters produce garbled output names.
func OutputPath(kind models.Kind, path string) string {
	switch kind {
	case models.KindCSS:
		return trimLast3(path) + "min.css"
	case models.KindJS:
		return trimLast3(path) + ".min.js"
	default:
		return path
	}
}

// SourceMapPath derives the source map URL written next to a minified JS file
func SourceMapPath(path string) string {
	return trimLast3(path) + ".min.js.map"
}

func trimLast3(path string) string {
	if len(path) < 3 {
		return ""
	}
	return path[:len(path)-3]
}

// Single builds the candidate for an explicitly named file
func (m Matcher) Single(path string) models.Candidate {
	c := models.Candidate{
		Kind:    m.Kind,
		Path:    path,
		RelPath: path,
		Output:  OutputPath(m.Kind, path),
		Single:  true,
	}
	if m.Kind == models.KindJS {
		c.SourceMap = SourceMapPath(path)
	}
	return c
}

// Confine resolves path against root and rejects anything that lands outside
// of it. Relative paths are joined onto root.
func Confine(root, path string) (string, error) {
	root = filepath.Clean(root)
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	return path, nil
}

// Discover walks root and returns every selectable file in walk order.
// Directories whose name appears in excludeDirs are not entered. Directories
// that cannot be read are logged and skipped; only an unreadable root fails.
func (m Matcher) Discover(root string, excludeDirs []string) ([]models.Candidate, error) {
	root = filepath.Clean(root)
	excluded := make(map[string]bool, len(excludeDirs))
	for _, d := range excludeDirs {
		excluded[d] = true
	}

	var candidates []models.Candidate
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			m.logger().WithField("path", path).Warnf("skipping unreadable entry: %v", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && excluded[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			// Links to directories are not followed and never minified
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		if !m.Selectable(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		candidates = append(candidates, models.Candidate{
			Kind:    m.Kind,
			Path:    path,
			RelPath: rel,
			Output:  OutputPath(m.Kind, path),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return candidates, nil
}

func (m Matcher) logger() logrus.FieldLogger {
	if m.Logger == nil {
		return logrus.StandardLogger()
	}
	return m.Logger
}
