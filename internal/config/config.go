// Package config loads ~/.checkmaster/config.yaml, applies environment
// overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Backends
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Server storage options
const (
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

// Config is the complete runtime configuration
type Config struct {
	Backend  string        `yaml:"backend" validate:"oneof=local remote"`
	Debounce time.Duration `yaml:"debounce" validate:"gt=0"`
	Lang     string        `yaml:"lang" validate:"oneof=ko en"`

	Local  LocalConfig  `yaml:"local"`
	Remote RemoteConfig `yaml:"remote"`
	Retry  RetryConfig  `yaml:"retry"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

// LocalConfig configures the sqlite backend
type LocalConfig struct {
	Path  string `yaml:"path" validate:"required"`
	Watch bool   `yaml:"watch"` // publish changes made by other processes
}

// RemoteConfig configures the sync server client
type RemoteConfig struct {
	URL     string        `yaml:"url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// RetryConfig bounds retries of failed writes
type RetryConfig struct {
	MaxTries uint          `yaml:"max_tries" validate:"min=1,max=10"`
	Initial  time.Duration `yaml:"initial" validate:"gt=0"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file" validate:"required"`
}

// ServerConfig configures `checkmaster serve`
type ServerConfig struct {
	Addr           string   `yaml:"addr" validate:"required,hostname_port"`
	Store          string   `yaml:"store" validate:"oneof=sqlite memory dynamodb"`
	DBPath         string   `yaml:"db_path"`
	DynamoTable    string   `yaml:"dynamo_table"`
	DynamoRegion   string   `yaml:"dynamo_region"`
	DynamoEndpoint string   `yaml:"dynamo_endpoint" validate:"omitempty,url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Dir returns ~/.checkmaster
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".checkmaster"), nil
}

// Default returns the configuration used when no file exists
func Default() Config {
	dir, err := Dir()
	if err != nil {
		dir = ".checkmaster"
	}
	return Config{
		Backend:  BackendLocal,
		Debounce: 500 * time.Millisecond,
		Lang:     "ko",
		Local: LocalConfig{
			Path: filepath.Join(dir, "checkmaster.db"),
		},
		Remote: RemoteConfig{
			Timeout: 10 * time.Second,
		},
		Retry: RetryConfig{
			MaxTries: 3,
			Initial:  200 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "checkmaster.log"),
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			Store:          StoreSQLite,
			DBPath:         filepath.Join(dir, "server.db"),
			DynamoTable:    "checkmaster",
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load reads the config file at path. An empty path falls back to
// $CHECKMASTER_CONFIG and then ~/.checkmaster/config.yaml; only an
// explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		if env := os.Getenv("CHECKMASTER_CONFIG"); env != "" {
			path, explicit = env, true
		}
	}
	if !explicit {
		dir, err := Dir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config directory: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("CHECKMASTER_BACKEND"); ok {
		c.Backend = v
	}
	if v, ok := os.LookupEnv("CHECKMASTER_DB_PATH"); ok {
		c.Local.Path = v
	}
	if v, ok := os.LookupEnv("CHECKMASTER_REMOTE_URL"); ok {
		c.Remote.URL = v
	}
	if v, ok := os.LookupEnv("CHECKMASTER_DEBOUNCE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CHECKMASTER_DEBOUNCE %q: %w", v, err)
		}
		c.Debounce = d
	}
	if v, ok := os.LookupEnv("CHECKMASTER_LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv("CHECKMASTER_SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(Config)
		if c.Backend == BackendRemote && c.Remote.URL == "" {
			sl.ReportError(c.Remote.URL, "remote.url", "URL", "required_for_remote", "")
		}
		if c.Server.Store == StoreDynamoDB && c.Server.DynamoTable == "" {
			sl.ReportError(c.Server.DynamoTable, "server.dynamo_table", "DynamoTable", "required_for_dynamodb", "")
		}
		if c.Server.Store == StoreSQLite && c.Server.DBPath == "" {
			sl.ReportError(c.Server.DBPath, "server.db_path", "DBPath", "required_for_sqlite", "")
		}
	}, Config{})
	return v
}

// Validate checks every field and reports the first problems in yaml terms
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	name := strings.TrimPrefix(fe.Namespace(), "Config.")
	if name == "" || strings.HasPrefix(fe.Tag(), "required_for_") {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", name, fe.Param(), fe.Value())
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "required_for_remote":
		return fmt.Sprintf("%s is required when backend is remote", name)
	case "required_for_dynamodb":
		return fmt.Sprintf("%s is required when server.store is dynamodb", name)
	case "required_for_sqlite":
		return fmt.Sprintf("%s is required when server.store is sqlite", name)
	case "gt", "min", "max":
		return fmt.Sprintf("%s must be %s %s", name, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
}
