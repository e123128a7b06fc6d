package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Config is the explicit configuration object handed to every component at
// construction time. It can be seeded from an optional YAML file; environment
// variables always win so deployments can override without editing files.
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	SiteURL     string `yaml:"site_url"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	SMS      SMSConfig      `yaml:"sms"`
	Telegram TelegramConfig `yaml:"telegram"`
	Mail     MailConfig     `yaml:"mail"`
	Geocode  GeocodeConfig  `yaml:"geocode"`
}

// SMSConfig holds credentials for the smspro.nikita.kg gateway.
type SMSConfig struct {
	APIURL   string `yaml:"api_url"`
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
	Sender   string `yaml:"sender"`
}

func (c SMSConfig) Enabled() bool {
	return c.Login != "" && c.Password != ""
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != ""
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func (c MailConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type GeocodeConfig struct {
	APIKey string `yaml:"api_key"`
}

// Load reads the YAML file at path (missing file is fine), then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{
		Port:      "5050",
		LogLevel:  "info",
		LogFormat: "json",
		SMS: SMSConfig{
			APIURL: "https://smspro.nikita.kg/api/message",
			Sender: "AlertMe",
		},
		Mail: MailConfig{Port: 587},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, err
			}
		case !os.IsNotExist(err):
			return Config{}, err
		}
	}

	overrideString(&cfg.Port, "PORT")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.SiteURL, "SITE_URL")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.LogFormat, "LOG_FORMAT")
	overrideString(&cfg.SMS.APIURL, "NIKITA_SMS_API_URL")
	overrideString(&cfg.SMS.Login, "NIKITA_SMS_LOGIN")
	overrideString(&cfg.SMS.Password, "NIKITA_SMS_PASSWORD")
	overrideString(&cfg.SMS.Sender, "NIKITA_SMS_SENDER")
	overrideString(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	overrideString(&cfg.Mail.Host, "SMTP_HOST")
	overrideInt(&cfg.Mail.Port, "SMTP_PORT")
	overrideString(&cfg.Mail.Username, "SMTP_USERNAME")
	overrideString(&cfg.Mail.Password, "SMTP_PASSWORD")
	overrideString(&cfg.Mail.From, "SMTP_FROM")
	overrideString(&cfg.Geocode.APIKey, "GOOGLE_MAPS_API_KEY")

	return cfg, nil
}

// Validate checks the settings that have no workable fallback.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is empty")
	}
	return nil
}

func overrideString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
