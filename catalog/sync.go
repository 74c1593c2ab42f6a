package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vibecast/logger"
	"vibecast/model"
	"vibecast/repository"
	"vibecast/storage"
)

// Syncer mirrors audio payloads from object storage into the local cache
// root and keeps the file catalog current.
type Syncer struct {
	store   *storage.ObjectStore
	catalog repository.CatalogRepository
	root    string
	prefix  string
}

// NewSyncer creates a Syncer.
func NewSyncer(store *storage.ObjectStore, catalog repository.CatalogRepository, root, prefix string) *Syncer {
	return &Syncer{store: store, catalog: catalog, root: root, prefix: prefix}
}

// Sync downloads every .mp3 object under the prefix that is not already
// cached locally and upserts one catalog row per file. Existing files are
// skipped, so repeated runs are cheap.
func (s *Syncer) Sync(ctx context.Context) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create cache root %s: %w", s.root, err)
	}

	keys, err := s.store.List(ctx, s.prefix)
	if err != nil {
		return fmt.Errorf("failed to list payloads for sync: %w", err)
	}

	synced := 0
	for _, key := range keys {
		if !strings.HasSuffix(strings.ToLower(key), ".mp3") {
			continue
		}

		localPath := filepath.Join(s.root, filepath.Base(key))
		if _, err := os.Stat(localPath); err == nil {
			continue
		}

		if err := s.store.DownloadToFile(ctx, key, localPath); err != nil {
			logger.Warn("Failed to mirror payload into cache",
				logger.String("key", key),
				logger.ErrorField(err))
			continue
		}

		if err := s.register(localPath); err != nil {
			logger.Warn("Failed to register cached payload",
				logger.String("path", localPath),
				logger.ErrorField(err))
			continue
		}
		synced++
	}

	logger.Info("Local cache sync finished",
		logger.String("root", s.root),
		logger.Int("synced", synced))
	return nil
}

// register upserts one catalog row for a cached file. Artist and title
// normalization can be filled in later by an indexer.
func (s *Syncer) register(path string) error {
	return s.catalog.Upsert(&model.CatalogFile{
		Path:         path,
		DownloadedAt: time.Now().UTC(),
	})
}
