// Package backup archives the run log to compressed, checksummed files and
// restores it, with retention policies for the archive directory.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/spread/internal/store"
)

// FilePrefix starts the name of every archive written by GeneratePath.
const FilePrefix = "spread-runs-"

// FileExt is the archive file extension.
const FileExt = ".bak"

// Archive is the decoded payload of an archive file.
type Archive struct {
	CreatedAt time.Time
	Records   []store.Record
}

// DefaultDir returns the default archive directory (~/.spread/backups/).
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, store.DirName, "backups"), nil
}

// GeneratePath returns a timestamped archive path in dir.
func GeneratePath(dir string, now time.Time) string {
	return filepath.Join(dir, FilePrefix+now.UTC().Format("20060102-150405")+FileExt)
}

// Backup reads every run with its node states and lineage and writes them to
// path.
func Backup(ctx context.Context, rs store.RunStore, path string) (*Header, error) {
	runs, err := rs.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	archive := &Archive{
		CreatedAt: time.Now().UTC(),
		Records:   make([]store.Record, 0, len(runs)),
	}
	// Oldest first so a restore reproduces the original insertion order.
	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		states, err := rs.NodeStates(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read node states of %s: %w", run.ID, err)
		}
		lineage, err := rs.Lineage(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read lineage of %s: %w", run.ID, err)
		}
		archive.Records = append(archive.Records, store.Record{Run: run, States: states, Lineage: lineage})
	}

	return Write(path, archive)
}

// RestoreMode controls how restore handles runs already in the store.
type RestoreMode string

const (
	// RestoreMerge skips runs whose id already exists (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace deletes every run in the store before restoring.
	RestoreReplace RestoreMode = "replace"
)

// RestoreResult counts what a restore did.
type RestoreResult struct {
	RunsRestored int `json:"runs_restored"`
	RunsSkipped  int `json:"runs_skipped"`
	RunsDeleted  int `json:"runs_deleted"`
}

// Restore verifies and reads the archive at path and saves its runs into rs.
func Restore(ctx context.Context, rs store.RunStore, path string, mode RestoreMode) (*RestoreResult, error) {
	archive, err := Read(path)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{}
	if mode == RestoreReplace {
		existing, err := rs.ListRuns(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		for _, run := range existing {
			if err := rs.DeleteRun(ctx, run.ID); err != nil {
				return nil, fmt.Errorf("failed to delete run %s: %w", run.ID, err)
			}
			result.RunsDeleted++
		}
	}

	for _, rec := range archive.Records {
		if mode == RestoreMerge {
			_, err := rs.GetRun(ctx, rec.Run.ID)
			if err == nil {
				result.RunsSkipped++
				continue
			}
			if !errors.Is(err, store.ErrRunNotFound) {
				return nil, fmt.Errorf("failed to check run %s: %w", rec.Run.ID, err)
			}
		}
		if _, err := rs.SaveRun(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to restore run %s: %w", rec.Run.ID, err)
		}
		result.RunsRestored++
	}
	return result, nil
}
