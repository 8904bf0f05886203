package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// Deposit writes a package fixture named name into dir, creating parent
// directories as needed, and returns the full path. An empty payload
// falls back to the file name so every fixture has distinct content.
func Deposit(t testing.TB, dir, name string, payload []byte) string {
	t.Helper()

	if len(payload) == 0 {
		payload = []byte(name)
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
