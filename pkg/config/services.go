package config

import (
	"os"
	"strconv"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/pkg/utils"
)

type Service struct {
	Host     string
	Port     string
	Protocol string
}

type ServicesConfig struct {
	LocalIP   string
	API       Service
	WebSocket Service
}

// SyncConfig tunes the optimistic sync reconciler.
type SyncConfig struct {
	// QuietInterval is how long after the last edit before the deferred
	// write fires. Coalesces rapid repeated clicks into one write.
	QuietInterval time.Duration
	// WriteTimeout bounds a deferred write so a stalled store call cannot
	// leave the pending indicator stuck.
	WriteTimeout time.Duration
	// ImportRowCap bounds one bulk import batch to protect the atomic
	// write-group size.
	ImportRowCap int
}

func LoadServicesConfig() *ServicesConfig {
	localIP := utils.GetLocalIP()

	return &ServicesConfig{
		LocalIP: localIP,
		API: Service{
			Host:     getEnvOrDefault("API_HOST", localIP),
			Port:     getEnvOrDefault("API_PORT", "8080"),
			Protocol: "http",
		},
		WebSocket: Service{
			Host:     getEnvOrDefault("WEBSOCKET_HOST", localIP),
			Port:     getEnvOrDefault("WEBSOCKET_PORT", "9093"),
			Protocol: "ws",
		},
	}
}

func LoadSyncConfig() SyncConfig {
	return SyncConfig{
		QuietInterval: getEnvDuration("SYNC_QUIET_INTERVAL_MS", 1500) * time.Millisecond,
		WriteTimeout:  getEnvDuration("SYNC_WRITE_TIMEOUT_MS", 5000) * time.Millisecond,
		ImportRowCap:  getEnvInt("IMPORT_ROW_CAP", 250),
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallbackMillis int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMillis))
}
