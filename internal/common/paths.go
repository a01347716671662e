package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CleanPath resolves path to an absolute path, refusing traversal segments
func CleanPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("invalid path: empty")
	}

	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid path: contains directory traversal")
	}

	if !filepath.IsAbs(cleaned) {
		abs, err := filepath.Abs(cleaned)
		if err != nil {
			return "", fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		cleaned = abs
	}

	return cleaned, nil
}

// PrepareOutput cleans an output path and creates its parent directory
func PrepareOutput(path string) (string, error) {
	cleaned, err := CleanPath(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cleaned), DirPermissionNormal); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return cleaned, nil
}
