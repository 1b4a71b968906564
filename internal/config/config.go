package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all runtime configuration.
type AppConfig struct {
	// Geolocation provider.
	GeoAPIBaseURL string
	GeoAPIKey     string
	LookupTimeout time.Duration

	// Retry policy for transient lookup failures.
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	// Circuit breaker thresholds.
	BreakerErrorThresholdPct int
	BreakerResetTimeout      time.Duration
	BreakerWindowSize        int
	BreakerMinVolume         int

	// Telemetry.
	SlowRequestThreshold time.Duration
	MetricsMaxSamples    int

	// Periodic health/metrics summary job; 0 disables it.
	MonitorInterval time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg := &AppConfig{
		GeoAPIBaseURL:            getenvDefault("GEO_API_BASE_URL", "https://api.openweathermap.org/data/2.5/weather"),
		GeoAPIKey:                os.Getenv("GEO_API_KEY"),
		RetryMaxAttempts:         getenvInt("GEO_RETRY_MAX_ATTEMPTS", 3),
		BreakerErrorThresholdPct: getenvInt("BREAKER_ERROR_THRESHOLD_PCT", 50),
		BreakerWindowSize:        getenvInt("BREAKER_WINDOW_SIZE", 10),
		BreakerMinVolume:         getenvInt("BREAKER_MIN_VOLUME", 5),
		MetricsMaxSamples:        getenvInt("METRICS_MAX_SAMPLES", 10000),
		Port:                     getenvDefault("PORT", "8080"),
	}

	var err error
	if cfg.LookupTimeout, err = getenvDuration("GEO_LOOKUP_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryBaseDelay, err = getenvDuration("GEO_RETRY_BASE_DELAY", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.BreakerResetTimeout, err = getenvDuration("BREAKER_RESET_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SlowRequestThreshold, err = getenvDuration("SLOW_REQUEST_THRESHOLD", time.Second); err != nil {
		return nil, err
	}
	if cfg.MonitorInterval, err = getenvDuration("MONITOR_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	if cfg.RetryMaxAttempts < 1 {
		return nil, fmt.Errorf("GEO_RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.BreakerErrorThresholdPct < 1 || cfg.BreakerErrorThresholdPct > 100 {
		return nil, fmt.Errorf("BREAKER_ERROR_THRESHOLD_PCT must be in 1..100")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
