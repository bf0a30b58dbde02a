package artifact

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ExtractZip opens the zip at zipRelPath and writes its contents under
// destDir (both relative to Root), returning the relative paths of every
// extracted file. Used for uploaded answer-sheet bundles. archive/zip is the standard library;
// no pack example imports a third-party zip library, so there is nothing
// to wire here beyond what ships with Go.
func (s *Store) ExtractZip(ctx context.Context, zipRelPath, destDir string) ([]string, error) {
	fullZip := s.abs(zipRelPath)
	r, err := zip.OpenReader(fullZip)
	if err != nil {
		return nil, fmt.Errorf("artifact: open zip %s: %w", zipRelPath, err)
	}
	defer r.Close()

	var extracted []string
	for _, f := range r.File {
		name := sanitizeZipEntryName(f.Name)
		if name == "" {
			continue
		}
		relPath := filepath.ToSlash(filepath.Join(destDir, name))

		if f.FileInfo().IsDir() {
			continue
		}

		src, err := f.Open()
		if err != nil {
			return extracted, fmt.Errorf("artifact: open zip entry %s: %w", f.Name, err)
		}
		_, _, err = s.Save(ctx, relPath, src)
		src.Close()
		if err != nil {
			return extracted, fmt.Errorf("artifact: extract %s: %w", f.Name, err)
		}
		extracted = append(extracted, relPath)
	}

	return extracted, nil
}

// sanitizeZipEntryName strips path-traversal components from a zip
// entry's name (a malicious archive can contain "../../etc/passwd"-style
// entries); returns "" for an entry that resolves outside destDir.
func sanitizeZipEntryName(name string) string {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return ""
	}
	return cleaned
}
