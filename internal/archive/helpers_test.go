package archive

import (
	"os"
	"path/filepath"
	"testing"
)

// writeOS writes data to an OS-backed file, creating parent directories as
// needed. Open only accepts real filesystem paths, so tests that build
// their fixtures through afero's in-memory filesystem copy the result out
// before opening it.
func writeOS(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("writeOS(%q): mkdir: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writeOS(%q): %v", path, err)
	}
}

// readOSFile reads an OS-backed file in its entirety.
func readOSFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
