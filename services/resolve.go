package services

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// removableVolumeRoot is where non-primary storage volumes are mounted
const removableVolumeRoot = "/storage"

// ResolveFolder turns a folder selection (path, file:// URI or a
// document-tree content:// URI) into an accessible directory path
func (s *fileService) ResolveFolder(selection string) (string, error) {
	if strings.TrimSpace(selection) == "" {
		return "", ErrPathRequired
	}

	path, err := s.resolveLocation(selection)
	if err != nil {
		return "", fmt.Errorf("could not access selected folder: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("could not access selected folder: %w: %s", ErrNotFound, path)
	}
	return path, nil
}

// ResolveLocation maps a path, file:// URI or content:// URI onto the
// local filesystem without checking that it exists
func (s *fileService) ResolveLocation(location string) (string, error) {
	if strings.TrimSpace(location) == "" {
		return "", ErrPathRequired
	}
	return s.resolveLocation(location)
}

// CheckAllowedPath reports ErrOutsideRoots unless path lies within the
// external storage, music or documents directory. Symlinks are resolved
// on both sides.
func (s *fileService) CheckAllowedPath(path string) error {
	target := canonicalPath(path)
	for _, root := range []string{s.cfg.ExternalStorageDir, s.cfg.EffectiveMusicDir(), s.cfg.DocumentsDir} {
		if root != "" && withinDir(canonicalPath(root), target) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrOutsideRoots, path)
}

// canonicalPath makes path absolute and resolves symlinks in the longest
// prefix of it that exists
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}

	existing, rest := abs, ""
	for {
		if resolved, err := filepath.EvalSymlinks(existing); err == nil {
			return filepath.Join(resolved, rest)
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}
}

// withinDir reports whether path is dir or below it
func withinDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolveLocation maps a path or URI onto the local filesystem
func (s *fileService) resolveLocation(location string) (string, error) {
	if filepath.IsAbs(location) {
		return filepath.Clean(location), nil
	}

	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" {
		return "", fmt.Errorf("%w: unsupported location %q", ErrNotFound, location)
	}

	switch u.Scheme {
	case "file":
		if u.Path == "" {
			return "", fmt.Errorf("%w: empty file uri", ErrNotFound)
		}
		return filepath.Clean(u.Path), nil
	case "content":
		return s.resolveContentURI(u)
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrNotFound, u.Scheme)
	}
}

// resolveContentURI maps document ids of the form "<volume>:<relative path>"
// found in .../tree/<id> or .../document/<id> URIs
func (s *fileService) resolveContentURI(u *url.URL) (string, error) {
	docID, err := documentID(u)
	if err != nil {
		return "", err
	}

	volume, relative, ok := strings.Cut(docID, ":")
	if !ok || volume == "" {
		return "", fmt.Errorf("%w: cannot map document id %q to a path", ErrNotFound, docID)
	}
	for _, segment := range strings.Split(filepath.ToSlash(relative), "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: document id %q leaves its volume", ErrNotFound, docID)
		}
	}

	if volume == "primary" {
		return filepath.Join(s.cfg.ExternalStorageDir, relative), nil
	}
	return filepath.Join(removableVolumeRoot, volume, relative), nil
}

// documentID returns the most specific document id in the URI path
func documentID(u *url.URL) (string, error) {
	segments := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")

	var escaped string
	for i := 0; i+1 < len(segments); i++ {
		if segments[i] == "tree" || segments[i] == "document" {
			escaped = segments[i+1]
		}
	}
	if escaped == "" {
		return "", fmt.Errorf("%w: no document id in %s", ErrNotFound, u.String())
	}

	id, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("%w: malformed document id: %v", ErrNotFound, err)
	}
	return id, nil
}
