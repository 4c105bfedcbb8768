// Package config loads client and server settings from a TOML file and
// HOMIE_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderLocal           = "local"
	ProviderIdentityToolkit = "identitytoolkit"
)

// Config holds application configuration.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Local    LocalConfig    `mapstructure:"local"`
	Server   ServerConfig   `mapstructure:"server"`
	UI       UIConfig       `mapstructure:"ui"`
}

// ProviderConfig selects and identifies the identity provider. The project
// fields are passed through untouched.
type ProviderConfig struct {
	Kind         string        `mapstructure:"kind"`
	APIKey       string        `mapstructure:"api_key"`
	ProjectID    string        `mapstructure:"project_id"`
	AuthDomain   string        `mapstructure:"auth_domain"`
	BaseURL      string        `mapstructure:"base_url"`
	JWKSURL      string        `mapstructure:"jwks_url"`
	VerifyTokens bool          `mapstructure:"verify_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// LocalConfig holds settings for the in-process provider.
type LocalConfig struct {
	DSN             string        `mapstructure:"dsn"`
	SigningKey      string        `mapstructure:"signing_key"`
	Issuer          string        `mapstructure:"issuer"`
	TokenExpiration int           `mapstructure:"token_expiration"`
	BcryptCost      int           `mapstructure:"bcrypt_cost"`
	PersistSession  bool          `mapstructure:"persist_session"`
	Latency         time.Duration `mapstructure:"latency"`
}

// ServerConfig holds identity server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Title         string `mapstructure:"title"`
	ButtonVariant string `mapstructure:"button_variant"`
	ButtonSize    string `mapstructure:"button_size"`
	LogFile       string `mapstructure:"log_file"`
}

func (c Config) GetSigningKey() string   { return c.Local.SigningKey }
func (c Config) GetIssuer() string       { return c.Local.Issuer }
func (c Config) GetTokenExpiration() int { return c.Local.TokenExpiration }
func (c Config) GetBcryptCost() int      { return c.Local.BcryptCost }
func (c Config) GetAPIKey() string       { return c.Provider.APIKey }

// Load reads configuration from file and env. Env var overrides use prefix
// HOMIE_, e.g. HOMIE_PROVIDER_KIND.
func Load() (Config, error) {
	v := New()

	cfgPath := os.Getenv("HOMIE_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(homeDir(), ".config", "homie"))
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return decode(v)
}

// New returns a viper instance with defaults and env bindings applied but no
// config file attached.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("provider.kind", ProviderLocal)
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.project_id", "homie")
	v.SetDefault("provider.auth_domain", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.jwks_url", "")
	v.SetDefault("provider.verify_tokens", false)
	v.SetDefault("provider.timeout", 15*time.Second)

	v.SetDefault("local.dsn", "file:"+filepath.Join(homeDir(), ".local", "share", "homie", "homie.db")+"?cache=shared")
	v.SetDefault("local.signing_key", "")
	v.SetDefault("local.issuer", "homie")
	v.SetDefault("local.token_expiration", 24)
	v.SetDefault("local.bcrypt_cost", 12)
	v.SetDefault("local.persist_session", true)
	v.SetDefault("local.latency", time.Duration(0))

	v.SetDefault("server.addr", ":8085")

	v.SetDefault("ui.title", "Homie")
	v.SetDefault("ui.button_variant", "primary")
	v.SetDefault("ui.button_size", "medium")
	v.SetDefault("ui.log_file", filepath.Join(os.TempDir(), "homie.log"))

	v.SetConfigType("toml")
	v.SetEnvPrefix("HOMIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks cross field constraints.
func (c Config) Validate() error {
	switch c.Provider.Kind {
	case ProviderLocal:
		if strings.TrimSpace(c.Local.SigningKey) == "" {
			return errors.New("local.signing_key is required for the local provider")
		}
	case ProviderIdentityToolkit:
		if strings.TrimSpace(c.Provider.APIKey) == "" {
			return errors.New("provider.api_key is required for the identitytoolkit provider")
		}
	default:
		return fmt.Errorf("unknown provider.kind %q", c.Provider.Kind)
	}
	return nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("provider.kind", cfg.Provider.Kind)
	v.Set("provider.api_key", cfg.Provider.APIKey)
	v.Set("provider.project_id", cfg.Provider.ProjectID)
	v.Set("provider.auth_domain", cfg.Provider.AuthDomain)
	v.Set("provider.base_url", cfg.Provider.BaseURL)
	v.Set("provider.jwks_url", cfg.Provider.JWKSURL)
	v.Set("provider.verify_tokens", cfg.Provider.VerifyTokens)
	v.Set("provider.timeout", cfg.Provider.Timeout.String())
	v.Set("local.dsn", cfg.Local.DSN)
	v.Set("local.signing_key", cfg.Local.SigningKey)
	v.Set("local.issuer", cfg.Local.Issuer)
	v.Set("local.token_expiration", cfg.Local.TokenExpiration)
	v.Set("local.bcrypt_cost", cfg.Local.BcryptCost)
	v.Set("local.persist_session", cfg.Local.PersistSession)
	v.Set("local.latency", cfg.Local.Latency.String())
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("ui.title", cfg.UI.Title)
	v.Set("ui.button_variant", cfg.UI.ButtonVariant)
	v.Set("ui.button_size", cfg.UI.ButtonSize)
	v.Set("ui.log_file", cfg.UI.LogFile)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.Getenv("HOME")
}
