// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Config holds server + analysis settings.
type Config struct {
	// HTTP server
	Addr    string // listen address, e.g. ":8080"
	BaseURL string // external base URL for links; "" = relative links

	// Analysis
	Mode       string // default repair mode: "basic" or "advanced"
	ChannelCap int    // playlist size past which a capacity warning is raised

	// Upstream fetches (M3U/EPG by URL)
	FetchTimeout time.Duration
	MaxBodyBytes int64
	RatePerHost  rate.Limit

	// Result storage for download links
	StorePath string        // SQLite file path; "" = in-memory
	StoreTTL  time.Duration // how long a stored result stays downloadable
}

// Load reads config from environment. Call LoadEnvFile(".env") before Load()
// to use a .env file.
func Load() *Config {
	c := &Config{
		Addr:         getEnv("PLAYLIST_DOCTOR_ADDR", ":8080"),
		BaseURL:      strings.TrimRight(os.Getenv("PLAYLIST_DOCTOR_BASE_URL"), "/"),
		Mode:         getEnvMode("PLAYLIST_DOCTOR_MODE", "advanced"),
		ChannelCap:   getEnvInt("PLAYLIST_DOCTOR_CHANNEL_CAP", 750),
		FetchTimeout: getEnvDuration("PLAYLIST_DOCTOR_FETCH_TIMEOUT", 30*time.Second),
		MaxBodyBytes: getEnvInt64("PLAYLIST_DOCTOR_MAX_BODY_BYTES", 64<<20),
		RatePerHost:  rate.Limit(getEnvFloat("PLAYLIST_DOCTOR_RATE_PER_HOST", 4)),
		StorePath:    os.Getenv("PLAYLIST_DOCTOR_STORE_PATH"),
		StoreTTL:     getEnvDuration("PLAYLIST_DOCTOR_STORE_TTL", 24*time.Hour),
	}
	if c.ChannelCap <= 0 {
		c.ChannelCap = 750
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 64 << 20
	}
	if c.StoreTTL <= 0 {
		c.StoreTTL = 24 * time.Hour
	}
	return c
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, _ := strconv.Atoi(v)
		return n
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvMode normalizes the repair mode; anything unrecognized falls back to
// the default rather than failing startup.
func getEnvMode(key, defaultVal string) string {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "basic":
		return "basic"
	case "advanced":
		return "advanced"
	}
	return defaultVal
}
