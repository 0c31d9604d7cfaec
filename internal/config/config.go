// Package config loads qwiq settings from an optional qwiq.yaml, QWIQ_*
// environment variables and defaults, in increasing order of precedence:
// defaults, file, environment.
//
//	store:
//	  path: qwiq.db
//	log:
//	  level: info
//	  format: text
//	query:
//	  day_precision: false
//	models:
//	  dir: models
//
// Environment variables replace dots with underscores, so log.level is
// QWIQ_LOG_LEVEL.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

const (
	fileName  = "qwiq"
	fileType  = "yaml"
	envPrefix = "QWIQ"

	KeyStorePath         = "store.path"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeyQueryDayPrecision = "query.day_precision"
	KeyModelsDir         = "models.dir"
)

var (
	ErrNoStorePath    = errors.New("config 'store.path' must be set")
	ErrInvalidLevel   = errors.New("config 'log.level' must be one of none, debug, info, warn, error")
	ErrInvalidFormat  = errors.New("config 'log.format' must be one of text, json")
	ErrInvalidSetting = errors.New("invalid config")
)

var (
	validLevels  = []string{"none", "debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

type Config struct {
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`
	Query  QueryConfig  `mapstructure:"query"`
	Models ModelsConfig `mapstructure:"models"`
}

type StoreConfig struct {
	// Path is the SQLite database file.
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type QueryConfig struct {
	// DayPrecision makes date comparisons ignore the time of day for
	// every query.
	DayPrecision bool `mapstructure:"day_precision"`
}

type ModelsConfig struct {
	// Dir holds the CUE model declarations used by the CLI.
	Dir string `mapstructure:"dir"`
}

// DefaultConfig returns the settings used when nothing else is given.
func DefaultConfig() *Config {
	return &Config{
		Store:  StoreConfig{Path: "qwiq.db"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Query:  QueryConfig{DayPrecision: false},
		Models: ModelsConfig{Dir: "models"},
	}
}

// New returns a viper instance with qwiq's defaults, environment binding
// and config search path. The working directory is searched, then each
// of dirs.
func New(dirs ...string) *viper.Viper {
	def := DefaultConfig()

	v := viper.New()
	v.SetDefault(KeyStorePath, def.Store.Path)
	v.SetDefault(KeyLogLevel, def.Log.Level)
	v.SetDefault(KeyLogFormat, def.Log.Format)
	v.SetDefault(KeyQueryDayPrecision, def.Query.DayPrecision)
	v.SetDefault(KeyModelsDir, def.Models.Dir)
	v.SetTypeByDefaultValue(true)

	v.SetConfigName(fileName)
	v.SetConfigType(fileType)
	v.AddConfigPath(".")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Read loads the configuration. A missing qwiq.yaml is not an error. If
// v has an explicit config file set, that file must exist.
func Read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Verify checks that the settings are usable.
func (c *Config) Verify() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		return ErrNoStorePath
	}
	if !slices.Contains(validLevels, c.Log.Level) {
		return fmt.Errorf("%w, got %q", ErrInvalidLevel, c.Log.Level)
	}
	if !slices.Contains(validFormats, c.Log.Format) {
		return fmt.Errorf("%w, got %q", ErrInvalidFormat, c.Log.Format)
	}
	return nil
}
