package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Calendar  CalendarConfig  `toml:"calendar"`
	Assistant AssistantConfig `toml:"assistant"`
	Mail      MailConfig      `toml:"mail"`
	Log       LogConfig       `toml:"log"`
	Client    ClientConfig    `toml:"client"`
}

type ServerConfig struct {
	Bind            string   `toml:"bind"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	SessionTTL      Duration `toml:"session_ttl"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"` // sqlite3 | postgres
	DSN    string `toml:"dsn"`
}

type CalendarConfig struct {
	// Timezone is the IANA zone all day keys are computed in.
	Timezone string `toml:"timezone"`
}

type AssistantConfig struct {
	GroqAPIKey   string   `toml:"groq_api_key"`
	GroqBaseURL  string   `toml:"groq_base_url"`
	Models       []string `toml:"models"`
	GeminiAPIKey string   `toml:"gemini_api_key"`
	GeminiModel  string   `toml:"gemini_model"`
	Timeout      Duration `toml:"timeout"`
}

type MailConfig struct {
	ResendAPIKey string `toml:"resend_api_key"`
	BaseURL      string `toml:"base_url"`
	From         string `toml:"from"`
	AdminEmail   string `toml:"admin_email"`
}

type LogConfig struct {
	Debug bool   `toml:"debug"`
	Dir   string `toml:"dir"`
}

type ClientConfig struct {
	ServerURL    string `toml:"server_url"`
	SessionToken string `toml:"session_token"`
}

// Duration decodes TOML strings such as "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "growwly")
	}
	return ".growwly"
}

func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Bind:            "127.0.0.1:8080",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: Duration{5 * time.Second},
			SessionTTL:      Duration{24 * time.Hour},
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    filepath.Join(dataDir, "growwly.db") + "?_foreign_keys=on",
		},
		Calendar: CalendarConfig{
			Timezone: "UTC",
		},
		Assistant: AssistantConfig{
			GroqBaseURL: "https://api.groq.com/openai/v1",
			Models: []string{
				"llama-3.1-8b-instant",
				"llama3-70b-8192",
				"llama3-8b-8192",
				"mixtral-8x7b-32768",
			},
			GeminiModel: "gemini-2.0-flash",
			Timeout:     Duration{20 * time.Second},
		},
		Mail: MailConfig{
			BaseURL: "https://api.resend.com",
			From:    "Growwly <onboarding@resend.dev>",
		},
		Log: LogConfig{
			Dir: filepath.Join(dataDir, "logs"),
		},
		Client: ClientConfig{
			ServerURL: "http://127.0.0.1:8080",
		},
	}
}

// Load overlays the TOML file at path onto defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		case len(content) > 0:
			if err := toml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("decode toml: %w", err)
			}
		}
	}

	applyEnv(&cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	setIfEmpty := func(dst *string, key string) {
		if *dst == "" {
			*dst = strings.TrimSpace(getenv(key))
		}
	}
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	setIfEmpty(&cfg.Assistant.GroqAPIKey, "GROQ_API_KEY")
	setIfEmpty(&cfg.Assistant.GeminiAPIKey, "GEMINI_API_KEY")
	setIfEmpty(&cfg.Mail.ResendAPIKey, "RESEND_API_KEY")
	setIfEmpty(&cfg.Mail.AdminEmail, "ADMIN_EMAIL")

	override(&cfg.Server.Bind, "GROWWLY_BIND")
	override(&cfg.Database.Driver, "GROWWLY_DB_DRIVER")
	override(&cfg.Database.DSN, "GROWWLY_DB_DSN")
	override(&cfg.Calendar.Timezone, "GROWWLY_TIMEZONE")
	override(&cfg.Client.ServerURL, "GROWWLY_SERVER_URL")
	override(&cfg.Client.SessionToken, "GROWWLY_SESSION_TOKEN")
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	if c.Server.ShutdownTimeout.Duration <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("database.driver %q must be sqlite3 or postgres", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Assistant.Timeout.Duration <= 0 {
		return errors.New("assistant.timeout must be positive")
	}
	return nil
}

// Location resolves the calendar timezone.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Calendar.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("calendar.timezone %q: %w", tz, err)
	}
	return loc, nil
}
