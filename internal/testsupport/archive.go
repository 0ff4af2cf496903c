package testsupport

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// ZipEntry describes one file in a generated archive. A name ending in "/"
// becomes a directory entry. Method defaults to zip.Store so payload bytes
// can be located and corrupted by tests.
type ZipEntry struct {
	Name    string
	Content []byte
	Method  uint16
}

// Zip builds an in-memory ZIP archive from entries, preserving order.
func Zip(t testing.TB, entries ...ZipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, entry := range entries {
		f, err := w.CreateHeader(&zip.FileHeader{Name: entry.Name, Method: entry.Method})
		if err != nil {
			t.Fatalf("create zip entry %s: %v", entry.Name, err)
		}
		if len(entry.Content) == 0 {
			continue
		}
		if _, err := f.Write(entry.Content); err != nil {
			t.Fatalf("write zip entry %s: %v", entry.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// WriteZip writes a generated archive under dir and returns its path.
func WriteZip(t testing.TB, dir, name string, entries ...ZipEntry) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Zip(t, entries...), 0o644); err != nil {
		t.Fatalf("write zip %s: %v", path, err)
	}
	return path
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
