// Copyright 2026 The Sitegen Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a
// double underscore: SITEGEN_DATABASE__HOST -> database.host.
const EnvPrefix = "SITEGEN_"

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Text generation providers
const (
	TextProviderOpenAI = "openai"
	TextProviderFal    = "fal"
	TextProviderNone   = "none"
)

// Cache drivers
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	App           AppConfig           `koanf:"app"`
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Cache         CacheConfig         `koanf:"cache"`
	AI            AIConfig            `koanf:"ai"`
	Observability ObservabilityConfig `koanf:"observability"`
	Security      SecurityConfig      `koanf:"security"`
	RateLimit     RateLimitConfig     `koanf:"ratelimit"`
	Render        RenderConfig        `koanf:"render"`
}

// AppConfig holds tenant resolution settings
type AppConfig struct {
	Environment     string   `koanf:"environment"`
	BaseDomain      string   `koanf:"base_domain"`
	FallbackDomain  string   `koanf:"fallback_domain"`
	PreviewSuffixes []string `koanf:"preview_suffixes"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         string        `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	// TrustProxy reads client addresses from X-Forwarded-For
	TrustProxy   bool          `koanf:"trust_proxy"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string `koanf:"host"`
	Port         string `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	Database     string `koanf:"name"`
	SSLMode      string `koanf:"sslmode"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`

	// AutoMigrate applies pending migrations at server start
	AutoMigrate bool `koanf:"auto_migrate"`
}

// CacheConfig holds content cache configuration
type CacheConfig struct {
	Driver        string        `koanf:"driver"`
	TTL           time.Duration `koanf:"ttl"`
	MaxEntries    int           `koanf:"max_entries"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
}

// AIConfig holds text and image generation configuration
type AIConfig struct {
	AutoGenerate      bool          `koanf:"auto_generate"`
	TextProvider      string        `koanf:"text_provider"`
	TextModel         string        `koanf:"text_model"`
	TextRPM           int           `koanf:"text_rpm"`
	OpenAIAPIKey      string        `koanf:"openai_api_key"`
	FalAPIKey         string        `koanf:"fal_api_key"`
	FalQueueURL       string        `koanf:"fal_queue_url"`
	ImageApp          string        `koanf:"image_app"`
	ImagePollInterval time.Duration `koanf:"image_poll_interval"`
	ImageTimeout      time.Duration `koanf:"image_timeout"`
	ImageRPS          float64       `koanf:"image_rps"`
	GenerationTimeout time.Duration `koanf:"generation_timeout"`
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string `koanf:"log_level"`
	LogFormat      string `koanf:"log_format"`
	OTELEnabled    bool   `koanf:"otel_enabled"`
	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`
}

// SecurityConfig holds admin API configuration
type SecurityConfig struct {
	AdminJWTSecret string        `koanf:"admin_jwt_secret"`
	AdminTokenTTL  time.Duration `koanf:"admin_token_ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"rps"`
	Burst             int     `koanf:"burst"`
}

// RenderConfig holds page rendering options
type RenderConfig struct {
	Pretty bool `koanf:"pretty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		App: AppConfig{
			Environment:     EnvDevelopment,
			BaseDomain:      "skaild.com",
			FallbackDomain:  "plumber.skaild.com",
			PreviewSuffixes: []string{".vercel.app"},
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         "5432",
			User:         "sitegen",
			Database:     "sitegen",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Cache: CacheConfig{
			Driver:     CacheMemory,
			TTL:        10 * time.Minute,
			MaxEntries: 1000,
		},
		AI: AIConfig{
			AutoGenerate:      true,
			TextProvider:      TextProviderFal,
			TextModel:         "openai/gpt-4o",
			TextRPM:           30,
			FalQueueURL:       "https://queue.fal.run",
			ImageApp:          "fal-ai/flux-pro/v1.1-ultra",
			ImagePollInterval: time.Second,
			ImageTimeout:      30 * time.Second,
			ImageRPS:          1,
			GenerationTimeout: 10 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			ServiceName:    "sitegen",
			ServiceVersion: "0.1.0",
		},
		Security: SecurityConfig{
			AdminTokenTTL: time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
	}
}

// Path returns the config file path from SITEGEN_CONFIG, or sitegen.yaml.
func Path() string {
	if p := os.Getenv("SITEGEN_CONFIG"); p != "" {
		return p
	}
	return "sitegen.yaml"
}

// Load reads the YAML file at path when it exists, then overlays SITEGEN_*
// environment variables on top of the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Conventional provider variables
	if cfg.AI.OpenAIAPIKey == "" {
		cfg.AI.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.AI.FalAPIKey == "" {
		cfg.AI.FalAPIKey = os.Getenv("FAL_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("database.password is required")
	}

	switch c.App.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("invalid app.environment %q: must be development or production", c.App.Environment)
	}

	if c.App.Environment == EnvProduction && c.App.BaseDomain == "" {
		return fmt.Errorf("app.base_domain is required in production")
	}

	switch c.AI.TextProvider {
	case TextProviderOpenAI, TextProviderFal, TextProviderNone:
	default:
		return fmt.Errorf("invalid ai.text_provider %q: must be one of openai, fal, none", c.AI.TextProvider)
	}

	switch c.Cache.Driver {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("invalid cache.driver %q: must be memory or redis", c.Cache.Driver)
	}

	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit.rps and ratelimit.burst must be positive")
	}

	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
