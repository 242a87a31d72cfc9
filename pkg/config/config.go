// Package config loads scraper configuration from a .env file, optional
// JSON5 config files and the environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ErrMissingCredentials is returned when the Reddit client id, secret or user
// agent is not configured.
var ErrMissingCredentials = errors.New("config: missing reddit credentials")

// Config is the explicit configuration passed to the reddit client, the
// scraper and the servers.
type Config struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	UserAgent    string `json:"user_agent"`

	APIURL         string  `json:"api_url" validate:"required,url"`
	TokenURL       string  `json:"token_url" validate:"required,url"`
	RateLimit      float64 `json:"rate_limit" validate:"gte=0"`
	RateBurst      int     `json:"rate_burst" validate:"gte=1"`
	TimeoutSeconds int     `json:"timeout_seconds" validate:"gte=1"`

	ExpandLimit    int    `json:"expand_limit" validate:"gte=0"`
	CountSemantics string `json:"count_semantics" validate:"oneof=raw matched"`
	OnError        string `json:"on_error" validate:"oneof=abort continue"`

	Port        string `json:"port" validate:"required,numeric"`
	CORSOrigin  string `json:"cors_origin"`
	NATSURL     string `json:"nats_url" validate:"omitempty,url"`
	NATSSubject string `json:"nats_subject" validate:"required"`

	LogLevel string `json:"log_level" validate:"oneof=debug info warn error"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		APIURL:         "https://oauth.reddit.com",
		TokenURL:       "https://www.reddit.com/api/v1/access_token",
		RateLimit:      1,
		RateBurst:      5,
		TimeoutSeconds: 30,
		CountSemantics: "raw",
		OnError:        "abort",
		Port:           "8080",
		CORSOrigin:     "*",
		NATSSubject:    "reddit.posts",
		LogLevel:       "info",
	}
}

var validate = validator.New()

// Load builds the configuration. A .env file in the working directory is
// loaded first without overriding variables already set. Then the file named
// by SCRAPER_CONFIG (default scraper.json5) and its .local variant are
// merged over the defaults, and environment variables are applied last.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Defaults()
	path := envOr("SCRAPER_CONFIG", "scraper.json5")
	if err := mergeFile(&cfg, path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	} else {
		slog.Debug("config file loaded", "path", path)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks credentials and value ranges.
func (c *Config) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "REDDIT_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "REDDIT_CLIENT_SECRET")
	}
	if c.UserAgent == "" {
		missing = append(missing, "REDDIT_USER_AGENT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	return ParseLevel(c.LogLevel)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func applyEnv(cfg *Config) error {
	cfg.ClientID = firstEnv(cfg.ClientID, "REDDIT_CLIENT_ID", "CLIENT_ID")
	cfg.ClientSecret = firstEnv(cfg.ClientSecret, "REDDIT_CLIENT_SECRET", "CLIENT_SECRET")
	cfg.UserAgent = firstEnv(cfg.UserAgent, "REDDIT_USER_AGENT", "USER_AGENT")

	cfg.APIURL = envOr("REDDIT_API_URL", cfg.APIURL)
	cfg.TokenURL = envOr("REDDIT_TOKEN_URL", cfg.TokenURL)
	cfg.CountSemantics = strings.ToLower(envOr("SCRAPER_COUNT_SEMANTICS", cfg.CountSemantics))
	cfg.OnError = strings.ToLower(envOr("SCRAPER_ON_ERROR", cfg.OnError))
	cfg.Port = envOr("PORT", cfg.Port)
	cfg.CORSOrigin = envOr("CORS_ORIGIN", cfg.CORSOrigin)
	cfg.NATSURL = envOr("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = envOr("NATS_SUBJECT", cfg.NATSSubject)
	cfg.LogLevel = strings.ToLower(envOr("LOG_LEVEL", cfg.LogLevel))

	if v := os.Getenv("REDDIT_RATE_LIMIT"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: invalid REDDIT_RATE_LIMIT %q: %w", v, err)
		}
		cfg.RateLimit = parsed
	}
	if v := os.Getenv("SCRAPER_EXPAND_LIMIT"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid SCRAPER_EXPAND_LIMIT %q: %w", v, err)
		}
		cfg.ExpandLimit = parsed
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// firstEnv returns the first non-empty variable among keys, or current.
func firstEnv(current string, keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return current
}
