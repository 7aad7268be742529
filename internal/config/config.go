// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// InsecureSessionSecret is the development fallback signing key. Running with
// it in production defeats the session cookie's integrity guarantee.
const InsecureSessionSecret = "dev-secret-change-in-production"

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Addr      string
	Env       string
	LogLevel  string
	LogFormat string

	// CORS
	AllowedOrigins []string

	// Auth
	SessionSecret string
	SessionTTL    time.Duration
	PasswordFile  string
	LoginRPM      int
	LoginBurst    int

	// Extraction
	YtDlpPath       string
	FFmpegPath      string
	DownloadTimeout time.Duration

	// Pending downloads
	PendingTTL   time.Duration
	PendingSweep time.Duration

	// Temp sweeper
	SweepMaxAge   time.Duration
	SweepInterval time.Duration

	// Uploads
	MaxUploadBytes int64

	// Paths
	TempDir string
	DataDir string
}

// Load loads configuration from environment variables.
func Load() *Config {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	return &Config{
		// Server
		Addr:      ":" + getEnv("PORT", "5000"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		// CORS
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		// Auth
		SessionSecret: getEnv("SESSION_SECRET", InsecureSessionSecret),
		SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_DAYS", 31)) * 24 * time.Hour,
		PasswordFile:  getEnv("PASSWORD_FILE", ".secrets/password"),
		LoginRPM:      getEnvInt("LOGIN_RATE_RPM", 10),
		LoginBurst:    getEnvInt("LOGIN_RATE_BURST", 5),

		// Extraction
		YtDlpPath:       getEnv("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:      getEnv("FFMPEG_PATH", ""),
		DownloadTimeout: time.Duration(getEnvInt("DOWNLOAD_TIMEOUT_SECONDS", 600)) * time.Second,

		// Pending downloads
		PendingTTL:   time.Duration(getEnvInt("PENDING_TTL_MINUTES", 60)) * time.Minute,
		PendingSweep: time.Duration(getEnvInt("PENDING_SWEEP_MINUTES", 10)) * time.Minute,

		// Temp sweeper
		SweepMaxAge:   time.Duration(getEnvInt("TEMP_MAX_AGE_MINUTES", 120)) * time.Minute,
		SweepInterval: time.Duration(getEnvInt("TEMP_SWEEP_MINUTES", 15)) * time.Minute,

		// Uploads (cookie file), 1 MB by default
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 1<<20),

		// Paths
		TempDir: getEnv("TEMP_DIR", "./tmp"),
		DataDir: getEnv("DATA_DIR", "./data"),
	}
}

// LoadPassword resolves the login password: APP_PASSWORD takes precedence,
// then the password file. Exactly one usable source is required; the process
// must not start without one.
func (c *Config) LoadPassword() (string, error) {
	if pw := strings.TrimSpace(os.Getenv("APP_PASSWORD")); pw != "" {
		return pw, nil
	}

	data, err := os.ReadFile(c.PasswordFile)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("password file not found: %s (set APP_PASSWORD or create the file with one line)", c.PasswordFile)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read password file: %w", err)
	}

	pw := strings.TrimSpace(string(data))
	if pw == "" {
		return "", fmt.Errorf("password file is empty: %s", c.PasswordFile)
	}
	return pw, nil
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
