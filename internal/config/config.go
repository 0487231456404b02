package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabasePath string
	ListenAddr   string
	RulesFile    string
	LogLevel     slog.Level

	SessionLifetime       time.Duration
	CollaboratorJWTSecret string
	AllowGuestLogin       bool

	Discord OAuthProvider
	Google  OAuthProvider

	CachePath          string
	CacheTTL           time.Duration
	CachePurgeSchedule string

	RateLimitRPS   float64
	RateLimitBurst int
}

type OAuthProvider struct {
	Key         string
	Secret      string
	CallbackURL string
}

func (p OAuthProvider) Enabled() bool {
	return p.Key != "" && p.Secret != ""
}

// Load reads a .env file when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabasePath:          getenv("DATABASE_PATH", "sabo_arena.db"),
		ListenAddr:            getenv("LISTEN_ADDR", ":8080"),
		RulesFile:             os.Getenv("RULES_FILE"),
		CollaboratorJWTSecret: os.Getenv("COLLABORATOR_JWT_SECRET"),
		AllowGuestLogin:       os.Getenv("ALLOW_GUEST_LOGIN") == "true",
		Discord: OAuthProvider{
			Key:         os.Getenv("DISCORD_KEY"),
			Secret:      os.Getenv("DISCORD_SECRET"),
			CallbackURL: getenv("DISCORD_CALLBACK_URL", "http://localhost:8080/auth/discord/callback"),
		},
		Google: OAuthProvider{
			Key:         os.Getenv("GOOGLE_KEY"),
			Secret:      os.Getenv("GOOGLE_SECRET"),
			CallbackURL: getenv("GOOGLE_CALLBACK_URL", "http://localhost:8080/auth/google/callback"),
		},
		CachePath:          getenv("CACHE_PATH", "data/snapshots.db"),
		CachePurgeSchedule: getenv("CACHE_PURGE_SCHEDULE", "*/10 * * * *"),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(getenv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.SessionLifetime, err = parseDuration("SESSION_LIFETIME", "24h"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = parseDuration("CACHE_TTL", "5m"); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getenv("RATE_LIMIT_RPS", "10"), 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS value: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getenv("RATE_LIMIT_BURST", "20")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST value: %w", err)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getenv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return d, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL value: %w", err)
	}
	return level, nil
}
