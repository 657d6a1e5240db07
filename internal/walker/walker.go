package walker

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrMarkerNotFound is matched by MarkerNotFoundError
	ErrMarkerNotFound = errors.New("marker file not found in ancestors")
	// ErrEmptyMarker is returned when a marker file holds only whitespace
	ErrEmptyMarker = errors.New("marker file is empty")
)

// MarkerNotFoundError reports that no directory from StartDir up to the root
// contains Filename
type MarkerNotFoundError struct {
	Filename string
	StartDir string
}

func (e *MarkerNotFoundError) Error() string {
	return fmt.Sprintf("correspondence path file: %s not found in ancestors of %s", e.Filename, e.StartDir)
}

func (e *MarkerNotFoundError) Is(target error) bool {
	return target == ErrMarkerNotFound
}

// FindInAncestors checks startDir and then each of its parents, up to and
// including the filesystem root, for filename. The nearest match wins.
func FindInAncestors(fs afero.Fs, startDir, filename string) (string, bool) {
	dir := filepath.Clean(startDir)
	for {
		candidate := filepath.Join(dir, filename)
		if exists, err := afero.Exists(fs, candidate); err == nil && exists {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// FindCorrespondingPath resolves the remote path that corresponds to startDir.
// The marker's trimmed contents name the remote counterpart of the marker's
// own directory; the path from that directory down to startDir is re-applied
// on the remote side.
func FindCorrespondingPath(fs afero.Fs, startDir, filename string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("get absolute path: %w", err)
	}

	markerPath, ok := FindInAncestors(fs, absStart, filename)
	if !ok {
		return "", &MarkerNotFoundError{Filename: filename, StartDir: absStart}
	}

	data, err := afero.ReadFile(fs, markerPath)
	if err != nil {
		return "", fmt.Errorf("read marker %s: %w", markerPath, err)
	}

	remoteBase := strings.TrimSpace(string(data))
	if remoteBase == "" {
		return "", fmt.Errorf("%s: %w", markerPath, ErrEmptyMarker)
	}

	suffix, err := filepath.Rel(filepath.Dir(markerPath), absStart)
	if err != nil || suffix == ".." || strings.HasPrefix(suffix, ".."+string(filepath.Separator)) {
		panic(fmt.Sprintf("marker %s is not an ancestor of %s", markerPath, absStart))
	}

	return JoinRemote(remoteBase, suffix), nil
}

// JoinRemote appends a local relative path to a remote base using forward
// slashes. The base is not cleaned, so scheme prefixes like s3:// survive.
func JoinRemote(base, relPath string) string {
	if relPath == "" || relPath == "." {
		return base
	}

	rel := filepath.ToSlash(relPath)
	if base == "" {
		return rel
	}

	return strings.TrimSuffix(base, "/") + "/" + rel
}
