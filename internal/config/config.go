// Package config loads runtime settings from defaults, a .env file, the
// process environment and explicit overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile         = ".env"
	defaultAddr            = ":8080"
	defaultEnvironment     = "local"
	defaultLogLevel        = "info"
	defaultLocale          = "en"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	envProduction = "prod"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	App     AppConfig
	Server  ServerConfig
	Catalog CatalogConfig
	Session SessionConfig
	UI      UIConfig
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Environment string
	LogLevel    string
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// CatalogConfig points at the release document. An empty File selects the bundled catalog.
type CatalogConfig struct {
	File string
}

// SessionConfig holds cookie codec keys. Empty keys are generated per process.
type SessionConfig struct {
	HashKey      []byte
	BlockKey     []byte
	CookieSecure bool
}

// UIConfig tunes presentation.
type UIConfig struct {
	DefaultLocale    string
	CountdownRefresh time.Duration
}

// Production reports whether the app runs in the production environment.
func (c Config) Production() bool {
	return strings.EqualFold(c.App.Environment, envProduction)
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path. An empty path skips the file.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap injects explicit values that take precedence over the system environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// Load assembles the configuration. Precedence, highest first: explicit env
// map, process environment, .env file, defaults.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := options.envMap[key]; ok {
			return v, true
		}
		if options.useSystemEnv {
			if v, ok := os.LookupEnv(key); ok {
				return v, true
			}
		}
		if v, ok := dotEnv[key]; ok {
			return v, true
		}
		return "", false
	}

	var invalid []string
	cfg := Config{
		App: AppConfig{
			Environment: strings.ToLower(stringWithDefault(lookup, "DROPS_ENV", defaultEnvironment)),
			LogLevel:    strings.ToLower(stringWithDefault(lookup, "DROPS_LOG_LEVEL", defaultLogLevel)),
		},
		Server: ServerConfig{
			Addr:            stringWithDefault(lookup, "DROPS_HTTP_ADDR", defaultAddr),
			ReadTimeout:     durationWithDefault(lookup, "DROPS_READ_TIMEOUT", defaultReadTimeout, &invalid),
			WriteTimeout:    durationWithDefault(lookup, "DROPS_WRITE_TIMEOUT", defaultWriteTimeout, &invalid),
			IdleTimeout:     durationWithDefault(lookup, "DROPS_IDLE_TIMEOUT", defaultIdleTimeout, &invalid),
			ShutdownTimeout: durationWithDefault(lookup, "DROPS_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &invalid),
		},
		Catalog: CatalogConfig{
			File: stringWithDefault(lookup, "DROPS_CATALOG_FILE", ""),
		},
		Session: SessionConfig{
			HashKey:  []byte(stringWithDefault(lookup, "DROPS_SESSION_HASH_KEY", "")),
			BlockKey: []byte(stringWithDefault(lookup, "DROPS_SESSION_BLOCK_KEY", "")),
		},
		UI: UIConfig{
			DefaultLocale:    strings.ToLower(stringWithDefault(lookup, "DROPS_DEFAULT_LOCALE", defaultLocale)),
			CountdownRefresh: durationWithDefault(lookup, "DROPS_COUNTDOWN_REFRESH", 0, &invalid),
		},
	}
	cfg.Session.CookieSecure = boolWithDefault(lookup, "DROPS_COOKIE_SECURE", cfg.Production(), &invalid)

	if cfg.Production() {
		if len(cfg.Session.HashKey) == 0 {
			invalid = append(invalid, "DROPS_SESSION_HASH_KEY")
		}
		if len(cfg.Session.BlockKey) == 0 {
			invalid = append(invalid, "DROPS_SESSION_BLOCK_KEY")
		}
	}
	if n := len(cfg.Session.HashKey); n != 0 && n < 32 {
		invalid = append(invalid, "DROPS_SESSION_HASH_KEY")
	}
	if n := len(cfg.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		invalid = append(invalid, "DROPS_SESSION_BLOCK_KEY")
	}
	if cfg.UI.CountdownRefresh < 0 {
		invalid = append(invalid, "DROPS_COUNTDOWN_REFRESH")
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		invalid = append(invalid, "DROPS_HTTP_ADDR")
	}

	if len(invalid) > 0 {
		return Config{}, &ValidationError{fields: dedupe(invalid)}
	}
	return cfg, nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

type lookupFunc func(string) (string, bool)

func stringWithDefault(lookup lookupFunc, key, fallback string) string {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func durationWithDefault(lookup lookupFunc, key string, fallback time.Duration, invalid *[]string) time.Duration {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		*invalid = append(*invalid, key)
		return fallback
	}
	return d
}

func boolWithDefault(lookup lookupFunc, key string, fallback bool, invalid *[]string) bool {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		*invalid = append(*invalid, key)
		return fallback
	}
	return b
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
