package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Published site
	RootURI      string
	FetchTimeout time.Duration
	SiteDir      string

	// Auth for mutating API routes; empty disables it.
	APIKey string

	// Project info shown in page chrome
	ProjectName string
	FooterText  string
	HomeAddr    string

	// Navigation
	GenerationGuard bool

	StatsWindow time.Duration
	LogLevel    string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		RootURI:      os.Getenv("DOCVIEW_ROOT_URI"),
		FetchTimeout: envDuration("DOCVIEW_FETCH_TIMEOUT", 30*time.Second),
		SiteDir:      os.Getenv("DOCVIEW_SITE_DIR"),

		APIKey: os.Getenv("DOCVIEW_API_KEY"),

		ProjectName: envOr("DOCVIEW_NAME", "Documentation"),
		FooterText:  os.Getenv("DOCVIEW_FOOTER"),
		HomeAddr:    envOr("DOCVIEW_HOME_ADDR", "/"),

		GenerationGuard: envBool("DOCVIEW_GENERATION_GUARD", true),

		StatsWindow: envDuration("DOCVIEW_STATS_WINDOW", 1*time.Hour),
		LogLevel:    envOr("DOCVIEW_LOG_LEVEL", "info"),
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.RootURI == "" {
		return fmt.Errorf("DOCVIEW_ROOT_URI is required")
	}
	u, err := url.Parse(c.RootURI)
	if err != nil {
		return fmt.Errorf("DOCVIEW_ROOT_URI: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("DOCVIEW_ROOT_URI must be an http or https url, got %q", c.RootURI)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a DOCVIEW_LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
