package cmd

import (
	"database/sql"
	"fmt"

	"vibecast/catalog"
	"vibecast/config"
	"vibecast/core/acquire"
	"vibecast/core/audio"
	"vibecast/core/events"
	"vibecast/core/pipeline"
	"vibecast/core/telegram"
	"vibecast/db"
	"vibecast/logger"
	"vibecast/model"
	"vibecast/repository"
	"vibecast/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// app is the composition root: every process-lifetime handle lives here and
// is passed into components by reference. There are no package-level
// singletons.
type app struct {
	cfg        *config.Config
	sqlDB      *sql.DB
	gormDB     *gorm.DB
	redis      *redis.Client
	store      *storage.ObjectStore
	tracks     repository.TrackRepository
	dispatches repository.DispatchRepository
	catalog    repository.CatalogRepository
	hub        *events.Hub
	orch       *pipeline.Orchestrator
	syncer     *catalog.Syncer
}

// buildApp connects every collaborator and wires the pipeline.
func buildApp() (*app, error) {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := db.InitSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	gormDB, err := db.ConnectGorm(cfg)
	if err != nil {
		return nil, fmt.Errorf("gorm: %w", err)
	}
	if err := db.AutoMigrateModels(gormDB, &model.DispatchRecord{}, &model.CatalogFile{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if redisClient == nil {
		logger.Warn("No Redis configured, dispatch claims disabled")
	}

	store, err := storage.NewObjectStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}

	tracks := repository.NewMySQLTrackRepository(sqlDB)
	dispatches := repository.NewGormDispatchRepository(gormDB)
	catalogRepo := repository.NewGormCatalogRepository(gormDB)

	downloader := acquire.NewDownloader(acquire.NewHTTPAcquirer(), store, tracks)
	hub := events.NewHub()

	orch := pipeline.NewOrchestrator(
		pipeline.NewSelector(tracks,
			pipeline.WithWindow(cfg.DispatchWindow),
			pipeline.WithBatchCap(cfg.DispatchBatchCap)),
		pipeline.NewResolver(store, downloader),
		pipeline.NewFormatter(audio.NewFFprobeProber("ffprobe"), cfg.SpotifyEmojiID, cfg.YoutubeMusicEmojiID),
		telegram.NewClient(cfg.TelegramAPIURL, cfg.TelegramBotToken),
		tracks,
		dispatches,
		pipeline.NewRedisClaimStore(redisClient),
		hub,
		cfg.TelegramChatID,
	)

	return &app{
		cfg:        cfg,
		sqlDB:      sqlDB,
		gormDB:     gormDB,
		redis:      redisClient,
		store:      store,
		tracks:     tracks,
		dispatches: dispatches,
		catalog:    catalogRepo,
		hub:        hub,
		orch:       orch,
		syncer:     catalog.NewSyncer(store, catalogRepo, cfg.CacheRoot, cfg.CachePrefix),
	}, nil
}

// close tears down process-lifetime handles on exit.
func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.sqlDB != nil {
		a.sqlDB.Close()
	}
	logger.Sync()
}
