package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"orderdash/internal/common"
)

// TestHelper provides common test utilities
type TestHelper struct {
	t *testing.T
}

// NewTestHelper creates a new test helper
func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// Isolate points HOME and the working directory at a fresh temp dir and
// clears the given environment variables, so no real config file or
// credential leaks into the test. It returns the temp dir.
func (h *TestHelper) Isolate(clearEnv ...string) string {
	h.t.Helper()
	dir := h.t.TempDir()
	h.t.Setenv("HOME", dir)
	for _, key := range clearEnv {
		h.t.Setenv(key, "")
	}
	chdir(h.t, dir)
	return dir
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to chdir to %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("Failed to restore working directory: %v", err)
		}
	})
}

// WriteFile writes content to a file in the given directory
func (h *TestHelper) WriteFile(dir, filename, content string) string {
	h.t.Helper()
	path := filepath.Join(dir, filename)

	// Create parent directories if needed
	if err := os.MkdirAll(filepath.Dir(path), common.DirPermissionNormal); err != nil {
		h.t.Fatalf("Failed to create directories: %v", err)
	}

	if err := os.WriteFile(path, []byte(content), common.FilePermissionSecure); err != nil {
		h.t.Fatalf("Failed to write file %s: %v", path, err)
	}

	return path
}
