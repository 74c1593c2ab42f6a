package db

import (
	"database/sql"
	"fmt"
	"log"

	"vibecast/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// Connect establishes a connection to the database and returns the handle.
// The handle is process-lifetime state owned by the composition root.
func Connect(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return conn, nil
}

// InitSchema creates the tracks table if it does not exist. The audit and
// catalog tables are migrated separately through GORM.
func InitSchema(conn *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		artist VARCHAR(255) NOT NULL,
		title VARCHAR(255) NOT NULL,
		spotify_link VARCHAR(512) NOT NULL DEFAULT '',
		youtube_music_link VARCHAR(512) NOT NULL DEFAULT '',
		source_url VARCHAR(512) NOT NULL DEFAULT '',
		scheduled_at DATETIME(6) NOT NULL,
		s3_bucket VARCHAR(255) NOT NULL DEFAULT '',
		s3_key VARCHAR(512) NOT NULL DEFAULT '',
		s3_path VARCHAR(768) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL DEFAULT 'new',
		download_state VARCHAR(16) NOT NULL DEFAULT '',
		errors JSON NULL,
		downloaded_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_tracks_status_scheduled (status, scheduled_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

	if _, err := conn.Exec(query); err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}

	log.Println("Database schema initialized.")
	return nil
}
