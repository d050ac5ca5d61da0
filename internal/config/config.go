// Package config provides YAML-based configuration loading for the bot,
// with environment overrides for secrets and deployment knobs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Platforms.
const (
	PlatformTelegram = "telegram"
	PlatformDiscord  = "discord"
)

// Backends.
const (
	BackendAPI        = "api"
	BackendSQL        = "sql"
	BackendMemory     = "memory"
	BackendNone       = "none"
	BackendDialogflow = "dialogflow"
	BackendGemini     = "gemini"
)

// Config is the top-level bot configuration, loaded from traveler.yaml.
type Config struct {
	Platform   string           `yaml:"platform"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Discord    DiscordConfig    `yaml:"discord"`
	HTTP       HTTPConfig       `yaml:"http"`
	API        APIConfig        `yaml:"api"`
	Store      StoreConfig      `yaml:"store"`
	Database   DatabaseConfig   `yaml:"database"`
	NLU        NLUConfig        `yaml:"nlu"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Onboarding OnboardingConfig `yaml:"onboarding"`
	Log        LogConfig        `yaml:"log"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token       string `yaml:"token"`
	Mode        string `yaml:"mode"`         // polling or webhook
	WebhookHost string `yaml:"webhook_host"` // e.g. https://traveler.example.com
	WebhookPath string `yaml:"webhook_path"` // defaults to /webhook/<token>
	APIEndpoint string `yaml:"api_endpoint"` // self-hosted Bot API, e.g. http://localhost:8081/bot%s/%s
}

// WebhookURL is the public URL Telegram posts updates to.
func (t TelegramConfig) WebhookURL() string {
	return strings.TrimRight(t.WebhookHost, "/") + t.WebhookPath
}

// DiscordConfig holds Discord bot settings.
type DiscordConfig struct {
	Token string `yaml:"token"`
}

// HTTPConfig configures the webhook/health/admin server.
type HTTPConfig struct {
	Port       int    `yaml:"port"`
	AdminToken string `yaml:"admin_token"` // defaults to the bot token
}

// APIConfig points at the remote profile/content service.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig selects where profiles, articles and sessions live.
type StoreConfig struct {
	Backend  string `yaml:"backend"`  // api, sql or memory
	Sessions string `yaml:"sessions"` // memory or sql
}

// DatabaseConfig holds connection settings for the SQL backend.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql or sqlite
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"` // sqlite file
}

// NLUConfig selects the free-text backend.
type NLUConfig struct {
	Backend         string `yaml:"backend"` // none, dialogflow or gemini
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
}

// DeliveryConfig configures the daily delivery trigger.
type DeliveryConfig struct {
	Schedule     string        `yaml:"schedule"` // cron expression, CRON_TZ= prefix allowed
	PollInterval time.Duration `yaml:"poll_interval"`
}

// OnboardingConfig tunes the registration dialog.
type OnboardingConfig struct {
	SearchPause time.Duration `yaml:"search_pause"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // auto, console or json
}

// Load reads a YAML config file from path and returns a validated Config.
// A missing file is not an error when allowMissing is set; the config is
// then built from defaults and the environment alone.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !allowMissing || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		data = nil
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config, applying
// environment overrides.
func Parse(data []byte) (*Config, error) {
	return parse(data, os.LookupEnv)
}

func parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BotToken returns the token of the selected platform.
func (c *Config) BotToken() string {
	if c.Platform == PlatformDiscord {
		return c.Discord.Token
	}
	return c.Telegram.Token
}

// UsesDatabase reports whether any component needs the SQL database.
func (c *Config) UsesDatabase() bool {
	return c.Store.Backend == BackendSQL || c.Store.Sessions == BackendSQL
}

// applyEnv overrides file values with deployment environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("BOT_TOKEN"); ok {
		if c.Platform == PlatformDiscord {
			c.Discord.Token = v
		} else {
			c.Telegram.Token = v
		}
	}
	if v, ok := get("API_HOST"); ok {
		c.API.BaseURL = v
	}
	if v, ok := get("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: PORT %q: %w", v, err)
		}
		c.HTTP.Port = port
	}
	if v, ok := get("APP_NAME"); ok {
		c.Telegram.Mode = "webhook"
		c.Telegram.WebhookHost = "https://" + v + ".herokuapp.com"
	}
	if v, ok := get("DEVELOP"); ok {
		if dev, err := strconv.ParseBool(v); err != nil || dev {
			c.Telegram.Mode = "polling"
		}
	}
	if v, ok := get("GOOGLE_APPLICATION_CREDENTIALS"); ok {
		c.NLU.CredentialsFile = v
	}
	if v, ok := get("DIALOGFLOW_PROJECT_ID"); ok {
		c.NLU.ProjectID = v
	}
	if v, ok := get("GEMINI_API_KEY"); ok {
		c.NLU.APIKey = v
	}
	if v, ok := get("DATABASE_DSN"); ok {
		c.Database.DSN = v
	}
	return nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Platform == "" {
		c.Platform = PlatformTelegram
	}
	if c.Telegram.Mode == "" {
		c.Telegram.Mode = "polling"
	}
	if c.Telegram.WebhookPath == "" && c.Telegram.Token != "" {
		c.Telegram.WebhookPath = "/webhook/" + c.Telegram.Token
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.AdminToken == "" {
		c.HTTP.AdminToken = c.BotToken()
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 10 * time.Second
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendAPI
	}
	if c.Store.Sessions == "" {
		c.Store.Sessions = BackendMemory
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "traveler.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "traveler"
	}
	if c.NLU.Backend == "" {
		c.NLU.Backend = BackendNone
	}
	if c.Delivery.Schedule == "" {
		c.Delivery.Schedule = "0 17 * * *"
	}
	if c.Delivery.PollInterval == 0 {
		c.Delivery.PollInterval = time.Second
	}
	if c.Onboarding.SearchPause == 0 {
		c.Onboarding.SearchPause = 3 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "auto"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Platform {
	case PlatformTelegram:
		if c.Telegram.Token == "" {
			errs = append(errs, "telegram.token is required (or BOT_TOKEN)")
		}
		switch c.Telegram.Mode {
		case "polling":
		case "webhook":
			if c.Telegram.WebhookHost == "" {
				errs = append(errs, "telegram.webhook_host is required in webhook mode (or APP_NAME)")
			}
			if !strings.HasPrefix(c.Telegram.WebhookPath, "/") {
				errs = append(errs, "telegram.webhook_path must start with /")
			}
		default:
			errs = append(errs, fmt.Sprintf("telegram.mode %q must be polling or webhook", c.Telegram.Mode))
		}
	case PlatformDiscord:
		if c.Discord.Token == "" {
			errs = append(errs, "discord.token is required (or BOT_TOKEN)")
		}
	default:
		errs = append(errs, fmt.Sprintf("platform %q must be telegram or discord", c.Platform))
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port %d out of range", c.HTTP.Port))
	}

	switch c.Store.Backend {
	case BackendAPI:
		if c.API.BaseURL == "" {
			errs = append(errs, "api.base_url is required for the api store (or API_HOST)")
		}
	case BackendSQL, BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("store.backend %q must be api, sql or memory", c.Store.Backend))
	}
	if c.Store.Sessions != BackendMemory && c.Store.Sessions != BackendSQL {
		errs = append(errs, fmt.Sprintf("store.sessions %q must be memory or sql", c.Store.Sessions))
	}
	if c.UsesDatabase() {
		switch c.Database.Driver {
		case "mysql", "sqlite":
		default:
			errs = append(errs, fmt.Sprintf("database.driver %q must be mysql or sqlite", c.Database.Driver))
		}
	}

	switch c.NLU.Backend {
	case BackendNone, BackendDialogflow:
	case BackendGemini:
		if c.NLU.APIKey == "" {
			errs = append(errs, "nlu.api_key is required for gemini (or GEMINI_API_KEY)")
		}
	default:
		errs = append(errs, fmt.Sprintf("nlu.backend %q must be none, dialogflow or gemini", c.NLU.Backend))
	}

	if c.Delivery.PollInterval < 0 {
		errs = append(errs, "delivery.poll_interval must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
