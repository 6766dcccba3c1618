package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort      string
	ShutdownTimeout time.Duration

	// Database（監査ログ用。未設定の場合は監査ログを無効にする）
	DatabaseURL string

	// Registration
	RejectDuplicateSignups bool

	// Rate Limit（req/min/client）
	RateLimitGeneral int
	RateLimitSignup  int

	// Audit log retention
	EventRetentionDays int
	CleanupInterval    time.Duration

	// Logging
	LogLevel slog.Level

	// CORS
	CORSAllowedOrigin string
}

// AuditLogEnabled は監査ログ（PostgreSQL）が有効かどうかを返す。
func (c *Config) AuditLogEnabled() bool {
	return c.DatabaseURL != ""
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込むが、既に設定済みの環境変数は上書きしない。
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}

	var invalid []string

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RejectDuplicateSignups = getEnvBool("REJECT_DUPLICATE_SIGNUPS", false)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSignup = getEnvInt("RATE_LIMIT_SIGNUP", 30)
	cfg.EventRetentionDays = getEnvInt("EVENT_RETENTION_DAYS", 365)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	level, err := parseLogLevel(getEnvString("LOG_LEVEL", "info"))
	if err != nil {
		invalid = append(invalid, "LOG_LEVEL")
	}
	cfg.LogLevel = level

	if cfg.RateLimitGeneral <= 0 {
		invalid = append(invalid, "RATE_LIMIT_GENERAL")
	}
	if cfg.RateLimitSignup <= 0 {
		invalid = append(invalid, "RATE_LIMIT_SIGNUP")
	}
	if cfg.EventRetentionDays <= 0 {
		invalid = append(invalid, "EVENT_RETENTION_DAYS")
	}
	if cfg.CleanupInterval <= 0 {
		invalid = append(invalid, "CLEANUP_INTERVAL")
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variables: %v", invalid)
	}

	return cfg, nil
}

// loadDotEnv は指定された.envファイルを読み込む。ファイルが無い場合は何もしない。
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
