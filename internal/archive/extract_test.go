package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/teddynote/parser-client/internal/common"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "result.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtract(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"result.md":        "# parsed",
		"images/page1.png": "png",
	})
	dest := filepath.Join(t.TempDir(), "out")

	got, err := Extract(zipPath, dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != dest {
		t.Errorf("returned dir = %q, want %q", got, dest)
	}
	content, err := os.ReadFile(filepath.Join(dest, "result.md"))
	if err != nil || string(content) != "# parsed" {
		t.Errorf("result.md = %q, %v", content, err)
	}
	if _, err := os.Stat(filepath.Join(dest, "images", "page1.png")); err != nil {
		t.Errorf("nested file missing: %v", err)
	}
}

func TestExtract_CorruptArchive(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(bad, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Extract(bad, filepath.Join(t.TempDir(), "out"))
	if !errors.Is(err, common.ErrExtraction) {
		t.Errorf("got %v, want ErrExtraction", err)
	}
}

func TestExtract_RejectsZipSlip(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"../escape.txt": "gotcha",
	})
	dest := filepath.Join(t.TempDir(), "out")

	_, err := Extract(zipPath, dest)
	if !errors.Is(err, common.ErrExtraction) {
		t.Fatalf("got %v, want ErrExtraction", err)
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(dest), "escape.txt")); !os.IsNotExist(statErr) {
		t.Error("entry escaped the destination directory")
	}
}

func TestVerifyMetadata(t *testing.T) {
	dir := t.TempDir()
	meta := `{"job_id":"abc123","filename":"doc.pdf","language":"Korean","pages":12,"include_image":true}`
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte(meta), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := VerifyMetadata(dir); err != nil {
		t.Errorf("VerifyMetadata: %v", err)
	}
}

func TestVerifyMetadata_Missing(t *testing.T) {
	if err := VerifyMetadata(t.TempDir()); !errors.Is(err, ErrNoMetadata) {
		t.Errorf("got %v, want ErrNoMetadata", err)
	}
}

func TestVerifyMetadata_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing job_id": `{"language":"Korean"}`,
		"wrong type":     `{"job_id":"x","pages":"twelve"}`,
		"not json":       `{{{`,
	}
	for name, meta := range cases {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte(meta), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := VerifyMetadata(dir); !errors.Is(err, common.ErrExtraction) {
			t.Errorf("%s: got %v, want ErrExtraction", name, err)
		}
	}
}
