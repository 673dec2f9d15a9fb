package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/storage"
)

// DatabasePath resolves a configured database location into a clean file path.
// Environment variables and a leading ~ are expanded; the in-memory path is kept as is.
func DatabasePath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == storage.MemoryPath {
		return raw, nil
	}

	path, err := expandHome(os.ExpandEnv(raw))
	if err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: cannot expand %q: %w", common.ErrInvalidConfig, path, err)
	}
	return filepath.Join(home, path[1:]), nil
}
