// Package config manages application configuration from config.yaml,
// RELAY_-prefixed environment variables, and default values. Per-bot Telegram
// tokens are deliberately not part of the file: they come from <NAME>_TOKEN
// environment variables, matching how the deployment provisions them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration shared by the per-bot process
// and the launcher.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Store    StoreConfig    `mapstructure:"store"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Contacts ContactsConfig `mapstructure:"contacts"`
	Messages MessagesConfig `mapstructure:"messages"`
	Launcher LauncherConfig `mapstructure:"launcher"`
	Bots     []BotConfig    `mapstructure:"bots" validate:"required,min=1,dive"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// StoreConfig points at the shared REST datastore.
type StoreConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	APIKey  string `mapstructure:"api_key"  validate:"required"`
}

type PollerConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"min=1s"`
}

// ContactsConfig controls display-name derivation for new contacts.
type ContactsConfig struct {
	DefaultName string `mapstructure:"default_name" validate:"required"`
}

type MessagesConfig struct {
	Welcome string `mapstructure:"welcome" validate:"required"`
}

// LauncherConfig configures the multi-bot launcher.
type LauncherConfig struct {
	LockFile  string `mapstructure:"lock_file" validate:"required"`
	BotBinary string `mapstructure:"bot_binary"`
}

// BotConfig describes one configured bot account. The Telegram token lives in
// the environment, never in the file.
type BotConfig struct {
	Name string `mapstructure:"name" validate:"required,alphanum"`
}

// TokenEnv returns the environment variable holding this bot's Telegram
// token, e.g. MAXO_TOKEN for bot "Maxo".
func (b BotConfig) TokenEnv() string {
	return strings.ToUpper(b.Name) + "_TOKEN"
}

// Token reads the bot's Telegram token from the environment. Empty means the
// bot is not provisioned on this host.
func (b BotConfig) Token() string {
	return os.Getenv(b.TokenEnv())
}

// Bot looks up a configured bot by name.
func (c *Config) Bot(name string) (BotConfig, bool) {
	for _, b := range c.Bots {
		if b.Name == name {
			return b, true
		}
	}
	return BotConfig{}, false
}

// Load reads configuration from the given file (optional), applies defaults
// and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy environment names kept for deployment compatibility.
	_ = v.BindEnv("store.base_url", "RELAY_STORE_BASE_URL", "SUPABASE_URL")
	_ = v.BindEnv("store.api_key", "RELAY_STORE_API_KEY", "SUPABASE_KEY")
	_ = v.BindEnv("contacts.default_name", "RELAY_CONTACTS_DEFAULT_NAME", "CONTACT_NAME")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// Missing config file is fine: defaults plus environment.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	v.SetDefault("poller.interval", 5*time.Second)

	v.SetDefault("contacts.default_name", "User")

	v.SetDefault("messages.welcome",
		"Hi {first_name}! 👋\n\n"+
			"Welcome to our customer service bot. Feel free to ask any questions, "+
			"and our team will assist you promptly.")

	v.SetDefault("launcher.lock_file", "runall.lock")
	v.SetDefault("launcher.bot_binary", "")
}
