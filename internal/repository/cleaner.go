package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// StartUploadCleaner periodically removes staged uploads in dir that are
// older than retention. Such files are left behind when a request dies
// between staging and renaming.
func StartUploadCleaner(
	ctx context.Context,
	dir string,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := cleanStagedUploads(dir, time.Now().Add(-retention))
				if err != nil {
					log.Error("failed to clean staged uploads", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("cleaned staged uploads", zap.Int("removed", removed))
				}
			}
		}
	}()
}

func cleanStagedUploads(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), stagingSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
