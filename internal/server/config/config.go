package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Host               string
	Port               string
	AccessPassword     string
	DataFile           string
	UploadDir          string
	BaseURL            string
	MaxUploadSize      int64
	RateLimitRPS       float64
	RateLimitBurst     int
	OrphanScanInterval time.Duration
	Debug              bool
}

func Load() *Config {
	return &Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		Port:               getEnv("PORT", "5000"),
		AccessPassword:     getEnv("ACCESS_PASSWORD", "sync123"),
		DataFile:           getEnv("DATA_FILE", "sync_data.json"),
		UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
		BaseURL:            getEnv("BASE_URL", "http://localhost:5000"),
		MaxUploadSize:      getEnvInt64("MAX_UPLOAD_SIZE", 16*1024*1024), // 16MB
		RateLimitRPS:       getEnvFloat64("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),
		OrphanScanInterval: getEnvDuration("ORPHAN_SCAN_INTERVAL_HOURS", 1*time.Hour),
		Debug:              getEnvBool("DEBUG", false),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat64(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if hours, err := strconv.ParseFloat(val, 64); err == nil {
			return time.Duration(hours * float64(time.Hour))
		}
	}
	return fallback
}
