// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Vision backends.
const (
	VisionNone         = ""
	VisionOpenAICompat = "openai_compat"
	VisionAnthropic    = "anthropic"
)

// Token cache backends.
const (
	CacheFile      = "file"
	CacheEncrypted = "encrypted"
	CacheMemory    = "memory"
	CachePostgres  = "postgres"
)

// Well-known endpoints.
const (
	DefaultBaseURL       = "https://www.easy-template.com/api/v3"
	OpenAIEndpoint       = "https://api.openai.com/v1"
	GitHubModelsEndpoint = "https://models.inference.ai.azure.com"
)

// Config is the top-level application configuration.
type Config struct {
	EasyTemplate  EasyTemplateConfig  `yaml:"easytemplate"`
	TokenCache    TokenCacheConfig    `yaml:"token_cache"`
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Telegram      TelegramConfig      `yaml:"telegram"`
	Cloudinary    CloudinaryConfig    `yaml:"cloudinary"`
	Vision        VisionConfig        `yaml:"vision"`
	Watch         WatchConfig         `yaml:"watch"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Tracing       TracingConfig       `yaml:"tracing"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// EasyTemplateConfig defines the remote API and credentials.
type EasyTemplateConfig struct {
	BaseURL      string          `yaml:"base_url"`
	ClientID     string          `yaml:"client_id"`
	ClientSecret string          `yaml:"client_secret"`
	Timeout      time.Duration   `yaml:"timeout"`
	Retry        RetryConfig     `yaml:"retry"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

// HasCredentials reports whether both client credentials are set.
func (e *EasyTemplateConfig) HasCredentials() bool {
	return e.ClientID != "" && e.ClientSecret != ""
}

// DefaultMaxRetries is used when max_retries is not set.
const DefaultMaxRetries = 3

// RetryConfig bounds the 429 retry policy. An explicit max_retries of 0
// disables retries.
type RetryConfig struct {
	MaxRetries *int          `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"` // 0 = uncapped
}

// Retries returns the configured retry count.
func (r RetryConfig) Retries() int {
	if r.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *r.MaxRetries
}

// RateLimitConfig defines client-side pacing. A zero PerSecond disables it.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"` // 0 = no quota
}

// TokenCacheConfig selects where sessions are persisted.
type TokenCacheConfig struct {
	Backend    string `yaml:"backend"` // file, encrypted, memory, postgres
	Path       string `yaml:"path"`    // empty = user config dir
	Passphrase string `yaml:"passphrase"`
	Account    string `yaml:"account"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether a database is configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// TelegramConfig defines the chat bot settings.
type TelegramConfig struct {
	BotToken       string  `yaml:"bot_token"`
	PollTimeout    int     `yaml:"poll_timeout"` // seconds
	AllowedChatIDs []int64 `yaml:"allowed_chat_ids"`
	Debug          bool    `yaml:"debug"`
}

// CloudinaryConfig defines the image host.
type CloudinaryConfig struct {
	CloudName string `yaml:"cloud_name"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Folder    string `yaml:"folder"`
}

// Configured reports whether uploads can be made.
func (c *CloudinaryConfig) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// VisionConfig defines the image-to-article model backend.
type VisionConfig struct {
	Backend      string             `yaml:"backend"` // "", openai_compat, anthropic
	OpenAICompat OpenAICompatConfig `yaml:"openai_compat"`
	Anthropic    AnthropicConfig    `yaml:"anthropic"`
	Language     string             `yaml:"language"`
	Currency     string             `yaml:"currency"`
	Timeout      time.Duration      `yaml:"timeout"`
}

// OpenAICompatConfig defines OpenAI-compatible endpoint settings.
type OpenAICompatConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

// WatchConfig defines the seller-event watcher.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
	Lookback time.Duration `yaml:"lookback"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Discord DiscordConfig `yaml:"discord"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// TracingConfig defines the OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution, overrides and validation. A missing file yields defaults.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// into the process environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		expanded := os.Expand(string(data), getenv)
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	applyEnvOverrides(cfg, getenv)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides fills values from the environment variable names the
// project has always used. Explicit YAML values win.
func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	setIfEmpty := func(dst *string, key string) {
		if *dst == "" {
			*dst = getenv(key)
		}
	}

	setIfEmpty(&cfg.EasyTemplate.ClientID, "ET_CLIENT_ID")
	setIfEmpty(&cfg.EasyTemplate.ClientSecret, "ET_CLIENT_SECRET")
	setIfEmpty(&cfg.EasyTemplate.BaseURL, "ET_BASE_URL")
	setIfEmpty(&cfg.TokenCache.Passphrase, "ET_TOKEN_CACHE_PASSPHRASE")
	setIfEmpty(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setIfEmpty(&cfg.Cloudinary.CloudName, "CLOUDINARY_CLOUD_NAME")
	setIfEmpty(&cfg.Cloudinary.APIKey, "CLOUDINARY_API_KEY")
	setIfEmpty(&cfg.Cloudinary.APISecret, "CLOUDINARY_API_SECRET")
	setIfEmpty(&cfg.Vision.Anthropic.APIKey, "ANTHROPIC_API_KEY")

	if cfg.Notifications.Discord.WebhookURL == "" {
		if url := getenv("DISCORD_WEBHOOK_URL"); url != "" {
			cfg.Notifications.Discord.WebhookURL = url
			cfg.Notifications.Discord.Enabled = true
		}
	}

	// An OpenAI key takes precedence; a GitHub token selects GitHub Models.
	v := &cfg.Vision
	if v.OpenAICompat.APIKey == "" {
		if key := getenv("OPENAI_API_KEY"); key != "" {
			v.OpenAICompat.APIKey = key
		} else if token := getenv("GITHUB_TOKEN"); token != "" {
			v.OpenAICompat.APIKey = token
			if v.OpenAICompat.Endpoint == "" {
				v.OpenAICompat.Endpoint = GitHubModelsEndpoint
			}
		}
	}
	if v.Backend == VisionNone {
		switch {
		case v.OpenAICompat.APIKey != "":
			v.Backend = VisionOpenAICompat
		case v.Anthropic.APIKey != "":
			v.Backend = VisionAnthropic
		}
	}
}

func applyDefaults(cfg *Config) {
	applyEasyTemplateDefaults(&cfg.EasyTemplate)
	applyTokenCacheDefaults(&cfg.TokenCache)
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyTelegramDefaults(&cfg.Telegram)
	applyCloudinaryDefaults(&cfg.Cloudinary)
	applyVisionDefaults(&cfg.Vision)
	applyWatchDefaults(&cfg.Watch)
	applyTracingDefaults(&cfg.Tracing)
	applyLoggingDefaults(&cfg.Logging)
}

func applyEasyTemplateDefaults(e *EasyTemplateConfig) {
	if e.BaseURL == "" {
		e.BaseURL = DefaultBaseURL
	}
	if e.Timeout == 0 {
		e.Timeout = 30 * time.Second
	}
	if e.Retry.MaxRetries == nil {
		n := DefaultMaxRetries
		e.Retry.MaxRetries = &n
	}
	if e.Retry.BaseDelay == 0 {
		e.Retry.BaseDelay = 2 * time.Second
	}
	if e.RateLimit.PerSecond > 0 && e.RateLimit.Burst == 0 {
		e.RateLimit.Burst = 1
	}
}

func applyTokenCacheDefaults(t *TokenCacheConfig) {
	if t.Backend == "" {
		t.Backend = CacheFile
	}
	if t.Account == "" {
		t.Account = "default"
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 60 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
}

func applyTelegramDefaults(t *TelegramConfig) {
	if t.PollTimeout == 0 {
		t.PollTimeout = 60
	}
}

func applyCloudinaryDefaults(c *CloudinaryConfig) {
	if c.Folder == "" {
		c.Folder = "easy-template"
	}
}

func applyVisionDefaults(v *VisionConfig) {
	if v.OpenAICompat.Endpoint == "" {
		v.OpenAICompat.Endpoint = OpenAIEndpoint
	}
	if v.OpenAICompat.Model == "" {
		v.OpenAICompat.Model = "gpt-4o"
	}
	if v.Language == "" {
		v.Language = "English"
	}
	if v.Currency == "" {
		v.Currency = "EUR"
	}
	if v.Timeout == 0 {
		v.Timeout = 60 * time.Second
	}
}

func applyWatchDefaults(w *WatchConfig) {
	if w.Interval == 0 {
		w.Interval = 5 * time.Minute
	}
	if w.Lookback == 0 {
		w.Lookback = time.Hour
	}
}

func applyTracingDefaults(t *TracingConfig) {
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4317"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.EasyTemplate.Retry.Retries() < 0 {
		errs = append(errs, fmt.Errorf("easytemplate.retry.max_retries must not be negative"))
	}
	if (cfg.EasyTemplate.ClientID == "") != (cfg.EasyTemplate.ClientSecret == "") {
		errs = append(errs, fmt.Errorf("easytemplate.client_id and client_secret must be set together"))
	}

	switch cfg.TokenCache.Backend {
	case CacheFile, CacheMemory:
	case CacheEncrypted:
		if cfg.TokenCache.Passphrase == "" {
			errs = append(
				errs,
				fmt.Errorf("token_cache.passphrase is required when backend is encrypted"),
			)
		}
	case CachePostgres:
		if !cfg.Database.Enabled() {
			errs = append(
				errs,
				fmt.Errorf("database.host is required when token_cache.backend is postgres"),
			)
		}
	default:
		errs = append(
			errs,
			fmt.Errorf(
				"token_cache.backend must be one of: file, encrypted, memory, postgres (got %q)",
				cfg.TokenCache.Backend,
			),
		)
	}

	switch cfg.Vision.Backend {
	case VisionNone, VisionOpenAICompat:
	case VisionAnthropic:
		if cfg.Vision.Anthropic.Model == "" {
			errs = append(
				errs,
				fmt.Errorf("vision.anthropic.model is required when backend is anthropic"),
			)
		}
	default:
		errs = append(
			errs,
			fmt.Errorf(
				"vision.backend must be one of: openai_compat, anthropic (got %q)",
				cfg.Vision.Backend,
			),
		)
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json (got %q)", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}

// ValidateForBot checks the settings the chat bot cannot start without.
func (c *Config) ValidateForBot() error {
	var errs []error
	if c.Telegram.BotToken == "" {
		errs = append(errs, fmt.Errorf("telegram.bot_token (TELEGRAM_BOT_TOKEN) is required"))
	}
	if c.Telegram.PollTimeout < 0 {
		errs = append(errs, fmt.Errorf("telegram.poll_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateForWatch checks the settings the seller-event watcher needs.
func (c *Config) ValidateForWatch() error {
	var errs []error
	if c.Watch.Interval < time.Minute {
		errs = append(errs, fmt.Errorf("watch.interval must be at least 1m (got %s)", c.Watch.Interval))
	}
	if c.Notifications.Discord.Enabled && c.Notifications.Discord.WebhookURL == "" {
		errs = append(errs, fmt.Errorf("notifications.discord.webhook_url is required when discord is enabled"))
	}
	return errors.Join(errs...)
}

// ValidateForDatabase checks the settings needed to connect to Postgres.
func (c *Config) ValidateForDatabase() error {
	var errs []error
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if c.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}
	return errors.Join(errs...)
}
