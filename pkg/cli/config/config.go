package config

import (
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/iris/pkg/domain/model"
	"github.com/secmon-lab/iris/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// AppConfig represents the application configuration file
type AppConfig struct {
	Format FormatConfig `toml:"format"`
	Crawl  CrawlConfig  `toml:"crawl"`
}

// FormatConfig controls how message timestamps are rendered
type FormatConfig struct {
	TimeFormat string `toml:"time_format"`
	Timezone   string `toml:"timezone"`
}

// Validate checks if the FormatConfig is valid
func (f *FormatConfig) Validate() error {
	if f.TimeFormat != "" {
		if err := model.TimeFormat(f.TimeFormat).Validate(); err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid time_format", goerr.V("time_format", f.TimeFormat))
		}
	}
	if f.Timezone != "" {
		if _, err := time.LoadLocation(f.Timezone); err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid timezone", goerr.V("timezone", f.Timezone), goerr.V("error", err.Error()))
		}
	}
	return nil
}

// Formatter builds the timestamp formatter. Defaults are datetime in UTC.
func (f *FormatConfig) Formatter() (*model.Formatter, error) {
	format := model.DefaultTimeFormat
	if f.TimeFormat != "" {
		format = model.TimeFormat(f.TimeFormat)
	}

	loc := time.UTC
	if f.Timezone != "" {
		l, err := time.LoadLocation(f.Timezone)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load timezone", goerr.V("timezone", f.Timezone))
		}
		loc = l
	}

	return model.NewFormatter(format, loc), nil
}

// CrawlConfig holds crawl defaults
type CrawlConfig struct {
	DefaultLimit int `toml:"default_limit"`
	Concurrency  int `toml:"concurrency"`
}

// Validate checks if the CrawlConfig is valid
func (c *CrawlConfig) Validate() error {
	if c.DefaultLimit < 0 || c.DefaultLimit > 1000 {
		return goerr.Wrap(ErrInvalidConfig, "default_limit must be between 0 and 1000", goerr.V("default_limit", c.DefaultLimit))
	}
	if c.Concurrency < 0 {
		return goerr.Wrap(ErrInvalidConfig, "concurrency must not be negative", goerr.V("concurrency", c.Concurrency))
	}
	return nil
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if err := a.Format.Validate(); err != nil {
		return goerr.Wrap(err, "invalid format section")
	}
	if err := a.Crawl.Validate(); err != nil {
		return goerr.Wrap(err, "invalid crawl section")
	}
	return nil
}

// WorkspaceOptions converts the configuration into workspace options
func (a *AppConfig) WorkspaceOptions() ([]usecase.WorkspaceOption, error) {
	formatter, err := a.Format.Formatter()
	if err != nil {
		return nil, err
	}

	opts := []usecase.WorkspaceOption{usecase.WithFormatter(formatter)}
	if a.Crawl.DefaultLimit > 0 {
		opts = append(opts, usecase.WithDefaultLimit(a.Crawl.DefaultLimit))
	}
	if a.Crawl.Concurrency > 0 {
		opts = append(opts, usecase.WithConcurrency(a.Crawl.Concurrency))
	}
	return opts, nil
}

func LoadAppConfiguration(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML config", goerr.V(ConfigPathKey, path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// App holds the --config flag
type App struct {
	path string
}

func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to TOML configuration file",
			Destination: &x.path,
			Sources:     cli.EnvVars("IRIS_CONFIG"),
		},
	}
}

func (x App) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// Configure loads the configuration file, or returns defaults when no path is set
func (x *App) Configure() (*AppConfig, error) {
	if x.path == "" {
		return &AppConfig{}, nil
	}
	return LoadAppConfiguration(x.path)
}
