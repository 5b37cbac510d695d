package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port            int              `json:"port"`
	JWTSecret       string           `json:"jwt_secret"`
	SessionTTLHours int              `json:"session_ttl_hours"`
	Database        DatabaseConfig   `json:"database"`
	LogConfig       logger.LogConfig `json:"log_config"`
	BlobStore       BlobStoreConfig  `json:"blob_store"`
	PageCache       PageCacheConfig  `json:"page_cache"`
	Recovery        RecoveryConfig   `json:"recovery"`
	Watermark       WatermarkConfig  `json:"watermark"`
	CORSAllowlist   []string         `json:"cors_allowlist"`
	CleanupCron     string           `json:"cleanup_cron"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type BlobStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type PageCacheConfig struct {
	Size       int `json:"size"`
	TTLSeconds int `json:"ttl_seconds"`
}

type RecoveryConfig struct {
	MaxAttempts      int `json:"max_attempts"`
	BackoffMS        int `json:"backoff_ms"`
	BreakerFailures  int `json:"breaker_failures"`
	BreakerTimeoutMS int `json:"breaker_timeout_ms"`
}

type WatermarkConfig struct {
	Opacity  float64 `json:"opacity"`
	FontSize int     `json:"font_size"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.SessionTTLHours == 0 {
		cfg.SessionTTLHours = 12
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.BlobStore.Type == "" {
		cfg.BlobStore.Type = "local"
	}
	if cfg.PageCache.Size == 0 {
		cfg.PageCache.Size = 1024
	}
	if cfg.PageCache.TTLSeconds == 0 {
		cfg.PageCache.TTLSeconds = 3600
	}
	if cfg.Recovery.MaxAttempts == 0 {
		cfg.Recovery.MaxAttempts = 3
	}
	if cfg.Recovery.BackoffMS == 0 {
		cfg.Recovery.BackoffMS = 100
	}
	if cfg.Recovery.BreakerFailures == 0 {
		cfg.Recovery.BreakerFailures = 5
	}
	if cfg.Recovery.BreakerTimeoutMS == 0 {
		cfg.Recovery.BreakerTimeoutMS = 30000
	}
	if cfg.Watermark.Opacity == 0 {
		cfg.Watermark.Opacity = 0.15
	}
	if cfg.Watermark.FontSize == 0 {
		cfg.Watermark.FontSize = 13
	}
	if cfg.CleanupCron == "" {
		cfg.CleanupCron = "0 3 * * *"
	}
	return &cfg, nil
}
