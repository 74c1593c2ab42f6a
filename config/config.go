package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration. Values come from the
// environment (optionally seeded from a .env file) with simple defaults.
type Config struct {
	// MySQL track store
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// MinIO object storage for audio payloads
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioRegion    string
	MinioBucket    string

	// Redis, used for the per-track dispatch claim. Optional: when
	// RedisHost is empty the pipeline runs without a claim store.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Telegram delivery
	TelegramAPIURL   string // base URL of the bot API endpoint
	TelegramBotToken string
	TelegramChatID   int64 // target chat for scheduled messages

	// Premium emoji document IDs, one per external service link in the
	// scheduled message.
	SpotifyEmojiID      int64
	YoutubeMusicEmojiID int64

	// Dispatch pipeline tuning
	DispatchWindow   time.Duration // rolling selection window
	DispatchBatchCap int           // max tracks per run
	PollInterval     time.Duration // ticker period in serve mode

	// Local payload cache
	CacheRoot   string
	CachePrefix string // object-store prefix mirrored into CacheRoot

	// Admin HTTP API
	ListenAddr        string
	JWTSecret         string
	AdminUser         string
	AdminPasswordHash string // bcrypt hash of the admin password

	// Logging
	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvInt64 gets an environment variable as int64 or returns a default value.
func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as a duration or returns a
// default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for secrets
		DBName:     getEnv("DB_NAME", "vibecast"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioBucket:    getEnv("MINIO_BUCKET", "vibe-songs"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		TelegramAPIURL:   getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   getEnvInt64("TELEGRAM_CHAT_ID", 0),

		SpotifyEmojiID:      getEnvInt64("SPOTIFY_EMOJI_ID", 5467890660872822948),
		YoutubeMusicEmojiID: getEnvInt64("YTM_EMOJI_ID", 5467547888122864018),

		DispatchWindow:   getEnvDuration("DISPATCH_WINDOW", 24*time.Hour),
		DispatchBatchCap: getEnvInt("DISPATCH_BATCH_CAP", 10),
		PollInterval:     getEnvDuration("POLL_INTERVAL", 12*time.Hour),

		CacheRoot:   getEnv("CACHE_ROOT", "/tmp/audio"),
		CachePrefix: getEnv("CACHE_PREFIX", "tracks/"),

		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminUser:         getEnv("ADMIN_USER", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
