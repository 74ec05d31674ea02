// Package startup provides utilities for application startup tasks.
package startup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guidarr/guidarr/internal/models"
	"github.com/guidarr/guidarr/internal/repository"
)

// TempDirPrefix is the prefix used for guidarr scratch directories.
const TempDirPrefix = "guidarr-"

// DefaultCleanupAge is the default maximum age for orphaned temp directories.
const DefaultCleanupAge = 1 * time.Hour

// CleanupOrphanedTempDirs removes orphaned temporary directories older
// than maxAge. It looks for directories matching "guidarr-*" in the
// given base directory; a crashed download or icon conversion can leave
// these behind.
//
// Returns the number of directories removed and any error encountered.
func CleanupOrphanedTempDirs(logger *slog.Logger, baseDir string, maxAge time.Duration) (int, error) {
	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		logger.Debug("base directory does not exist, skipping cleanup",
			"path", baseDir,
		)
		return 0, nil
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		logger.Error("failed to read directory for cleanup",
			"path", baseDir,
			"error", err,
		)
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if !strings.HasPrefix(entry.Name(), TempDirPrefix) {
			continue
		}

		dirPath := filepath.Join(baseDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			logger.Warn("failed to get directory info",
				"path", dirPath,
				"error", err,
			)
			continue
		}

		if info.ModTime().After(cutoff) {
			logger.Debug("preserving recent temp directory",
				"path", dirPath,
				"age", time.Since(info.ModTime()).Round(time.Second),
			)
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			logger.Warn("failed to remove orphaned temp directory",
				"path", dirPath,
				"error", err,
			)
			continue
		}

		logger.Info("removed orphaned temp directory",
			"path", dirPath,
			"age", time.Since(info.ModTime()).Round(time.Second),
		)
		removed++
	}

	return removed, nil
}

// CleanupSystemTempDirs cleans up orphaned guidarr temp directories from
// the system temp directory using the default cleanup age.
func CleanupSystemTempDirs(logger *slog.Logger) (int, error) {
	return CleanupOrphanedTempDirs(logger, os.TempDir(), DefaultCleanupAge)
}

// RecoverStaleSourceStatuses resets EPG sources stuck in the refreshing
// status back to failed. A crash or restart mid-download loses the
// in-memory refresh guard, so without this the source row would report
// a refresh in progress forever.
//
// Returns the number of sources recovered and any error encountered.
func RecoverStaleSourceStatuses(ctx context.Context, logger *slog.Logger, sources repository.EpgSourceRepository) (int, error) {
	all, err := sources.GetAll(ctx)
	if err != nil {
		logger.Error("failed to get EPG sources for stale status recovery",
			"error", err,
		)
		return 0, err
	}

	var recovered int
	for _, source := range all {
		if source.Status != models.EpgSourceStatusRefreshing {
			continue
		}

		logger.Warn("recovering stale EPG source status",
			"source_id", source.ID.String(),
			"source_name", source.Name,
			"status", source.Status,
		)

		if err := sources.UpdateRefreshFailure(ctx, source.ID, "interrupted by server restart"); err != nil {
			logger.Error("failed to recover stale EPG source status",
				"source_id", source.ID.String(),
				"source_name", source.Name,
				"error", err,
			)
			continue
		}

		recovered++
	}

	return recovered, nil
}
