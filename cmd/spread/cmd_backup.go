package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nvandessel/spread/internal/backup"
	"github.com/spf13/cobra"
)

func newRunsBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the run log to a compressed, checksummed file",
		Long: `Write every recorded run with its node states and lineage to a
timestamped archive, then apply the retention flags to the archive directory.

Examples:
  spread runs backup
  spread runs backup --dir backups/ --keep 5
  spread runs backup --max-age 30d --max-size 1GB`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			dir, _ := cmd.Flags().GetString("dir")
			keep, _ := cmd.Flags().GetInt("keep")
			maxAge, _ := cmd.Flags().GetString("max-age")
			maxSize, _ := cmd.Flags().GetString("max-size")

			policy, err := retentionPolicy(keep, maxAge, maxSize)
			if err != nil {
				return err
			}
			if dir == "" {
				if dir, err = backup.DefaultDir(); err != nil {
					return err
				}
			}

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			path := backup.GeneratePath(dir, time.Now())
			header, err := backup.Backup(cmd.Context(), s, path)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			var deleted []string
			if policy != nil {
				if deleted, err = backup.ApplyRetention(dir, policy); err != nil {
					return fmt.Errorf("retention failed: %w", err)
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"path":    path,
					"header":  header,
					"deleted": deleted,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d runs to %s\n", header.RunCount, path)
			if len(deleted) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d old archives\n", len(deleted))
			}
			return nil
		},
	}
	cmd.Flags().String("dir", "", "Archive directory (default ~/.spread/backups)")
	cmd.Flags().Int("keep", 0, "Keep at most this many archives (0 = no limit)")
	cmd.Flags().String("max-age", "", "Delete archives older than this (e.g. 30d, 2w, 720h)")
	cmd.Flags().String("max-size", "", "Keep archives up to this total size (e.g. 500MB)")
	return cmd
}

// retentionPolicy combines the retention flags; nil means keep everything.
func retentionPolicy(keep int, maxAge, maxSize string) (backup.RetentionPolicy, error) {
	var policies []backup.RetentionPolicy
	if keep < 0 {
		return nil, fmt.Errorf("--keep must be >= 0, got %d", keep)
	}
	if keep > 0 {
		policies = append(policies, &backup.CountPolicy{MaxCount: keep})
	}
	if maxAge != "" {
		d, err := backup.ParseDuration(maxAge)
		if err != nil {
			return nil, err
		}
		policies = append(policies, &backup.AgePolicy{MaxAge: d})
	}
	if maxSize != "" {
		n, err := backup.ParseSize(maxSize)
		if err != nil {
			return nil, err
		}
		policies = append(policies, &backup.SizePolicy{MaxTotalBytes: n})
	}
	if len(policies) == 0 {
		return nil, nil
	}
	return &backup.CompositePolicy{Policies: policies}, nil
}

func newRunsRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <archive>",
		Short: "Restore runs from an archive",
		Long: `Verify an archive written by spread runs backup and load its runs.

By default runs already in the log are kept and skipped. With --replace the
log is emptied first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			replace, _ := cmd.Flags().GetBool("replace")
			mode := backup.RestoreMerge
			if replace {
				mode = backup.RestoreReplace
			}

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := backup.Restore(cmd.Context(), s, args[0], mode)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d runs (%d skipped, %d deleted)\n",
				result.RunsRestored, result.RunsSkipped, result.RunsDeleted)
			return nil
		},
	}
	cmd.Flags().Bool("replace", false, "Delete every run in the log before restoring")
	return cmd
}
