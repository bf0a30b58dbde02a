// Package artifact implements the shared artifact store (C1): a
// process-wide singleton rooted at a configured path, holding raw
// uploads, intermediate images, configs, and result spreadsheets. A
// message in flight conveys paths, never bytes; callers read and write
// through this store.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/smilemakc/mcqflow/internal/domain/apperr"
)

// Store is a single artifact root on local disk. All paths passed to its
// methods are relative to Root; callers never see an absolute path.
type Store struct {
	root string
}

// New creates a Store rooted at root, creating the directory if absent.
// Grounded on filestorage.NewLocalProvider's same MkdirAll-on-construct
// pattern.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's configured root path.
func (s *Store) Root() string { return s.root }

func (s *Store) abs(relPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(relPath))
}

// Save writes data to relPath atomically: it streams to a temp file in
// the same directory, computes a sha256 checksum alongside the write (the
// teacher's LocalProvider.Store io.MultiWriter idiom), then renames into
// place so a reader never observes a partially written file.
func (s *Store) Save(ctx context.Context, relPath string, r io.Reader) (checksum string, size int64, err error) {
	fullPath := s.abs(relPath)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("artifact: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", 0, fmt.Errorf("artifact: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	writer := io.MultiWriter(tmp, hasher)

	n, copyErr := io.Copy(writer, r)
	closeErr := tmp.Close()
	if copyErr != nil {
		return "", 0, fmt.Errorf("artifact: write %s: %w", relPath, copyErr)
	}
	if closeErr != nil {
		return "", 0, fmt.Errorf("artifact: close temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		return "", 0, fmt.Errorf("artifact: rename into place %s: %w", relPath, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

// Get opens relPath for reading. The caller must Close it. Returns a
// NotFoundError if the path does not exist.
func (s *Store) Get(ctx context.Context, relPath string) (io.ReadCloser, error) {
	fullPath := s.abs(relPath)
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NewNotFound("artifact", relPath)
		}
		return nil, fmt.Errorf("artifact: open %s: %w", relPath, err)
	}
	return f, nil
}

// Exists reports whether relPath is present.
func (s *Store) Exists(ctx context.Context, relPath string) (bool, error) {
	_, err := os.Stat(s.abs(relPath))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("artifact: stat %s: %w", relPath, err)
}

// Delete removes relPath. Idempotent: deleting an absent path is not an
// error.
func (s *Store) Delete(ctx context.Context, relPath string) error {
	if err := os.Remove(s.abs(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("artifact: delete %s: %w", relPath, err)
	}
	return nil
}

// List returns every path under prefix (relative to Root) whose base name
// matches glob. An empty glob matches everything.
func (s *Store) List(ctx context.Context, prefix, glob string) ([]string, error) {
	base := s.abs(prefix)
	var out []string

	err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if glob != "" {
			matched, matchErr := filepath.Match(glob, filepath.Base(path))
			if matchErr != nil {
				return matchErr
			}
			if !matched {
				return nil
			}
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("artifact: list %s: %w", prefix, err)
	}
	return out, nil
}

// sanitizeFilename strips path-traversal and filesystem-unsafe characters
// from a user-supplied name before it becomes part of a relative path.
func sanitizeFilename(name string) string {
	unsafe := []string{"/", "\\", "..", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, ch := range unsafe {
		result = strings.ReplaceAll(result, ch, "_")
	}
	if len(result) > 200 {
		result = result[:200]
	}
	if result == "" {
		result = "file"
	}
	return result
}

// NamePath builds a uuid8-suffixed relative path under dir for name,
// following the `<name>_<uuid8>.<ext>` artifact-layout convention (e.g.
// `uploads/templates/<user>/<name>_<uuid8>.<ext>`). Each call
// produces a distinct path, which is what makes concurrent writers to
// different artifacts safe without any cross-process locking.
func NamePath(dir, name string) string {
	safe := sanitizeFilename(name)
	ext := filepath.Ext(safe)
	stem := strings.TrimSuffix(safe, ext)
	suffix := uuid.New().String()[:8]
	return filepath.ToSlash(filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, suffix, ext)))
}
