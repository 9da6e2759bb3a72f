package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	xdgAppName = "cloudtodo"
	configFile = "config.yaml"
	envPrefix  = "CLOUDTODO"
)

type Config struct {
	APIURL           string        `mapstructure:"api_url" yaml:"api_url"`
	Region           string        `mapstructure:"region" yaml:"region"`
	UserPoolClientID string        `mapstructure:"user_pool_client_id" yaml:"user_pool_client_id"`
	Calendar         string        `mapstructure:"calendar" yaml:"calendar"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	DateLayout       string        `mapstructure:"date_layout" yaml:"date_layout"`
	Log              LogConfig     `mapstructure:"log" yaml:"log"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development" yaml:"development"`
	File        string `mapstructure:"file" yaml:"file,omitempty"`
}

// Keys lists the settings `config set` accepts.
var Keys = []string{
	"api_url", "region", "user_pool_client_id", "calendar",
	"timeout", "date_layout", "log.development", "log.file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("calendar", "Tasks")
	v.SetDefault("timeout", 15*time.Second)
	v.SetDefault("date_layout", "Jan 02, 2006 15:04")
	v.SetDefault("log.development", false)
}

// Dir is the directory holding config, session and cache files.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

// GetConfigPath returns the default config file location.
func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads path (the default location when empty). A missing file is not
// an error; defaults and CLOUDTODO_* environment variables still apply.
func Load(path string) (*Config, error) {
	v, err := open(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Set changes one key in the file at path and writes it back.
func Set(path, key, value string) (*Config, error) {
	if !known(key) {
		return nil, fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys, ", "))
	}
	v, err := open(path)
	if err != nil {
		return nil, err
	}
	v.Set(key, value)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := Save(v.ConfigFileUsed(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// Validate checks the settings every API command needs.
func (c *Config) Validate() error {
	var missing []string
	if c.APIURL == "" {
		missing = append(missing, "api_url")
	}
	if c.Region == "" {
		missing = append(missing, "region")
	}
	if c.UserPoolClientID == "" {
		missing = append(missing, "user_pool_client_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing config: %s (set with `cloudtodo config set`)", strings.Join(missing, ", "))
	}
	return nil
}

func open(path string) (*viper.Viper, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range Keys {
		_ = v.BindEnv(k)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	return v, nil
}

func known(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
