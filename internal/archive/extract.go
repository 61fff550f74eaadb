// Package archive unpacks and verifies result archives produced by the
// parser service.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/teddynote/parser-client/internal/common"
)

// Extract unpacks the zip at zipPath into destDir and returns destDir.
// Failures wrap ErrExtraction; entries already written stay on disk so the
// caller can inspect what was recovered.
func Extract(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("open archive %s: %v: %w", zipPath, err, common.ErrExtraction)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %v: %w", destDir, err, common.ErrExtraction)
	}

	for _, f := range r.File {
		if err := extractEntry(f, destDir); err != nil {
			return "", err
		}
	}
	return destDir, nil
}

func extractEntry(f *zip.File, destDir string) error {
	// Reject entries that would escape destDir (zip slip).
	cleaned := filepath.Clean(f.Name)
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("archive entry %q escapes destination: %w", f.Name, common.ErrExtraction)
	}
	target := filepath.Join(destDir, cleaned)

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %v: %w", target, err, common.ErrExtraction)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %v: %w", target, err, common.ErrExtraction)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %v: %w", f.Name, err, common.ErrExtraction)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %v: %w", target, err, common.ErrExtraction)
	}
	_, copyErr := io.Copy(dst, src)
	if cerr := dst.Close(); copyErr == nil {
		copyErr = cerr
	}
	if copyErr != nil {
		return fmt.Errorf("write %s: %v: %w", target, copyErr, common.ErrExtraction)
	}
	return nil
}
