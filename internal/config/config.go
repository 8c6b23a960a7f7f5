package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL string        // TANGLE_DATABASE_URL (required)
	HTTPAddr    string        // TANGLE_HTTP_ADDR (default ":8080")
	NATSURL     string        // TANGLE_NATS_URL (optional, empty = no events)
	SessionTTL  time.Duration // TANGLE_SESSION_TTL (default 336h = 14 days)

	// Sync settings
	SyncInterval   time.Duration // TANGLE_SYNC_INTERVAL (default 0 = disabled)
	SyncS3Bucket   string        // TANGLE_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // TANGLE_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // TANGLE_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // TANGLE_SYNC_S3_KEY (default "tangle/backup.jsonl")
	SyncGitRepo    string        // TANGLE_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // TANGLE_SYNC_GIT_FILE (default "tangle.jsonl")
	SyncGitBranch  string        // TANGLE_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    os.Getenv("TANGLE_DATABASE_URL"),
		HTTPAddr:       envOrDefault("TANGLE_HTTP_ADDR", ":8080"),
		NATSURL:        os.Getenv("TANGLE_NATS_URL"),
		SyncS3Bucket:   os.Getenv("TANGLE_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("TANGLE_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("TANGLE_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("TANGLE_SYNC_S3_KEY", "tangle/backup.jsonl"),
		SyncGitRepo:    os.Getenv("TANGLE_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("TANGLE_SYNC_GIT_FILE", "tangle.jsonl"),
		SyncGitBranch:  envOrDefault("TANGLE_SYNC_GIT_BRANCH", "main"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("TANGLE_DATABASE_URL is required")
	}

	ttlStr := envOrDefault("TANGLE_SESSION_TTL", "336h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("TANGLE_SESSION_TTL: %w", err)
	}
	c.SessionTTL = ttl

	intervalStr := envOrDefault("TANGLE_SYNC_INTERVAL", "0")
	d, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("TANGLE_SYNC_INTERVAL: %w", err)
	}
	c.SyncInterval = d

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
