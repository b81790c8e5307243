package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the per-project directory holding the run log.
const DirName = ".spread"

// DBFile is the run log file name inside DirName.
const DBFile = "runs.db"

// LocalRunsPath returns the run log path for the given project root.
func LocalRunsPath(projectRoot string) string {
	return filepath.Join(projectRoot, DirName, DBFile)
}

// GlobalRunsPath returns the run log path under the user's home directory.
// On Unix: ~/.spread/runs.db
func GlobalRunsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName, DBFile), nil
}
