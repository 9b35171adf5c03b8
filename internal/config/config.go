package config

import (
	"database/sql"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cast"
)

type Config struct {
	Port            int
	DatabaseURL     string
	RedisAddr       string
	JWTSecret       string
	APIKeyHash      string
	HubSecret       string
	TmpDir          string
	WatchDir        string
	SampleVideoPath string
	FFmpegPath      string
	FFprobePath     string
	MockAI          bool
	Concurrency     int
	RegionPadding   float64
	ScorerRPM       float64
	TmpRetentionMin int
}

func Load() *Config {
	return &Config{
		Port:            envInt("PORT", 8080),
		DatabaseURL:     env("DATABASE_URL", "postgres://clipforge:clipforge@db:5432/clipforge?sslmode=disable"),
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		JWTSecret:       env("JWT_SECRET", "change-me-in-production"),
		APIKeyHash:      env("API_KEY_HASH", ""),
		HubSecret:       env("YT_HUB_SECRET", ""),
		TmpDir:          env("TMP_DIR", "/app/tmp"),
		WatchDir:        env("WATCH_DIR", ""),
		SampleVideoPath: env("SAMPLE_VIDEO_PATH", ""),
		FFmpegPath:      env("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:     env("FFPROBE_PATH", "ffprobe"),
		MockAI:          env("MOCK_AI", "") == "true",
		Concurrency:     envInt("WORKER_CONCURRENCY", 4),
		RegionPadding:   envFloat("REGION_PADDING_SECONDS", 5),
		ScorerRPM:       envFloat("SCORER_CALLS_PER_MINUTE", 60),
		TmpRetentionMin: envInt("TMP_RETENTION_MINUTES", 720),
	}
}

// MergeFromDB overlays operator settings stored in the settings table. A
// missing table is not an error: first boot runs before migrations settle.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		log.Printf("config: skipping DB merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "worker_concurrency":
			if v := cast.ToInt(value); v > 0 {
				c.Concurrency = v
			}
		case "region_padding_seconds":
			if v := cast.ToFloat64(value); v > 0 {
				c.RegionPadding = v
			}
		case "scorer_calls_per_minute":
			if v := cast.ToFloat64(value); v > 0 {
				c.ScorerRPM = v
			}
		case "mock_ai":
			c.MockAI = cast.ToBool(value)
		case "tmp_retention_minutes":
			if v := cast.ToInt(value); v > 0 {
				c.TmpRetentionMin = v
			}
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
