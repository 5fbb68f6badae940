package cli

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/leftoverchef/internal/filex"
)

// loadSession returns "" when no session has been saved.
func loadSession(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func saveSession(path, token string) error {
	if path == "" {
		return nil
	}
	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}

func clearSession(path string) error {
	if path == "" {
		return nil
	}
	_, err := filex.RemoveIfExists(path)
	return err
}
