package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/crmsync/pkg/adapter"
)

const (
	xdgAppName = "crmsync"
	configFile = "config.yaml"
	dbFile     = "crm.db"

	DefaultCalendar = "CRM Tasks"
)

// Store backends.
const (
	BackendRemote   = "remote"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Environment overrides applied after the file is read.
const (
	EnvProjectID = "CRMSYNC_PROJECT_ID"
	EnvPublicKey = "CRMSYNC_PUBLIC_KEY"
	EnvBaseURL   = "CRMSYNC_BASE_URL"
)

type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Tables   adapter.Tables `yaml:"tables,omitempty"`
	Calendar string         `yaml:"calendar"`
	Log      LogConfig      `yaml:"log"`
}

type StoreConfig struct {
	Backend   string `yaml:"backend"`
	ProjectID string `yaml:"project_id,omitempty"`
	PublicKey string `yaml:"public_key,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	DSN       string `yaml:"dsn,omitempty"`
	Actor     string `yaml:"actor,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// GetXdgHome returns the directory holding the config file, the sqlite
// database, OAuth credentials and the agenda state files.
func GetXdgHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetXdgHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Default is the configuration used when no file exists. dir is the config
// directory.
func Default(dir string) *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendSQLite,
			DSN:     filepath.Join(dir, dbFile),
		},
		Calendar: DefaultCalendar,
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads the config at path, or the default location when path is empty.
// A missing file yields the defaults. Environment overrides are applied and
// the result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile reads the file at path over the defaults, without environment
// overrides or validation. Use it to edit and Save the file.
func ReadFile(path string) (*Config, error) {
	dir := filepath.Dir(path)
	cfg := Default(dir)
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}
	cfg.fillDefaults(dir)
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvProjectID); v != "" {
		c.Store.ProjectID = v
	}
	if v := os.Getenv(EnvPublicKey); v != "" {
		c.Store.PublicKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Store.BaseURL = v
	}
}

func (c *Config) fillDefaults(dir string) {
	if c.Store.Backend == "" {
		c.Store.Backend = BackendSQLite
	}
	if c.Store.Backend == BackendSQLite && c.Store.DSN == "" {
		c.Store.DSN = filepath.Join(dir, dbFile)
	}
	if c.Calendar == "" {
		c.Calendar = DefaultCalendar
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendRemote:
		if c.Store.ProjectID == "" {
			return fmt.Errorf("store.project_id is required for the %s backend (or set %s)", BackendRemote, EnvProjectID)
		}
		if c.Store.PublicKey == "" {
			return fmt.Errorf("store.public_key is required for the %s backend (or set %s)", BackendRemote, EnvPublicKey)
		}
	case BackendSQLite, BackendPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the %s backend", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	return nil
}

// Save writes cfg to path, or the default location when path is empty.
func Save(path string, cfg *Config) error {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

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
