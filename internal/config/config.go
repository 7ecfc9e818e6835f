package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the base name of the configuration file looked up in the
// working directory. Any extension viper understands is accepted.
const FileName = "commerce-config"

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config holds everything the test database lifecycle needs from the host
// application.
type Config struct {
	Database     DatabaseConfig          `mapstructure:"database"`
	Admin        AdminConfig             `mapstructure:"admin"`
	FeatureFlags map[string]bool         `mapstructure:"feature_flags"`
	Modules      map[string]ModuleConfig `mapstructure:"modules"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// DatabaseConfig holds the application-level Postgres settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Template string `mapstructure:"template"`
}

// AdminConfig holds the credentials used to create and drop databases.
// They are kept apart from the application credentials.
type AdminConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// ModuleConfig holds per-module settings
type ModuleConfig struct {
	Disabled bool `mapstructure:"disabled"`
}

// Load reads the config file from dir (if any) and overlays environment
// variables. A missing file is not an error; a malformed one is.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	v.SetConfigName(FileName)
	if dir != "" {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", FileName, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", FileName, err)
	}
	cfg.File = v.ConfigFileUsed()

	// Admin credentials fall back to the application ones.
	if cfg.Admin.User == "" {
		cfg.Admin.User = cfg.Database.User
	}
	if cfg.Admin.Password == "" {
		cfg.Admin.Password = cfg.Database.Password
	}
	if cfg.FeatureFlags == nil {
		cfg.FeatureFlags = map[string]bool{}
	}
	if cfg.Modules == nil {
		cfg.Modules = map[string]ModuleConfig{}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "commerce_test")
	v.SetDefault("database.template", "commerce_template")
	v.SetDefault("admin.database", "postgres")
}

var envBindings = map[string]string{
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.user":     "DB_USERNAME",
	"database.password": "DB_PASSWORD",
	"database.name":     "DB_TEMP_NAME",
	"database.template": "DB_TEMPLATE_NAME",
	"admin.user":        "DB_ADMIN_USERNAME",
	"admin.password":    "DB_ADMIN_PASSWORD",
	"admin.database":    "DB_ADMIN_DATABASE",
}

func bindEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s: %w", env, err)
		}
	}
	return nil
}

// Validate checks that all required values are present.
// It returns every failure joined together, or nil.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.Database.User == "" {
		errs = append(errs, errors.New("DB_USERNAME is required"))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("DB_TEMP_NAME is required"))
	}
	if c.Database.Template == "" {
		errs = append(errs, errors.New("DB_TEMPLATE_NAME is required"))
	}
	if c.Database.Name != "" && c.Database.Name == c.Database.Template {
		errs = append(errs, fmt.Errorf("DB_TEMP_NAME must differ from the template, both are '%s'", c.Database.Name))
	}
	if c.Admin.Database != "" && c.Admin.Database == c.Database.Name {
		errs = append(errs, fmt.Errorf("DB_ADMIN_DATABASE must differ from DB_TEMP_NAME, both are '%s'", c.Admin.Database))
	}
	if c.Admin.User == "" {
		errs = append(errs, errors.New("DB_ADMIN_USERNAME is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// DatabaseURL composes the application connection URL for the temp database.
func (c *Config) DatabaseURL() string {
	return c.Database.URL(c.Database.Name)
}

// URL composes a connection URL for the named database using the
// application credentials.
func (d DatabaseConfig) URL(name string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, d.Port),
		Path:   "/" + name,
	}
	return u.String()
}

// ModuleEnabled reports whether the named module is configured on.
// Modules are on unless disabled explicitly.
func (c *Config) ModuleEnabled(name string) bool {
	m, ok := c.Modules[strings.ToLower(name)]
	return !ok || !m.Disabled
}
