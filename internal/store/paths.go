package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// HistoryFile is the database file name inside the global directory.
const HistoryFile = "history.db"

// GlobalPath returns the path to the global .vacuumsim directory.
// On Unix: ~/.vacuumsim
// On Windows: %USERPROFILE%\.vacuumsim
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".vacuumsim"), nil
}

// DefaultHistoryPath returns ~/.vacuumsim/history.db.
func DefaultHistoryPath() (string, error) {
	dir, err := GlobalPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, HistoryFile), nil
}
