package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/accidentes/internal/common"
	"github.com/Veraticus/accidentes/internal/datos"
	"github.com/Veraticus/accidentes/internal/export"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "ACCIDENTES"

// Config is the resolved configuration of one run.
type Config struct {
	Source  SourceConfig
	Output  OutputConfig
	Logging LoggingConfig
}

// SourceConfig describes where and how the dataset is fetched.
type SourceConfig struct {
	URL        string
	Timeout    time.Duration
	RetryDelay time.Duration
	Retries    int
	PageSize   int
	Progress   bool
}

// OutputConfig names the output files. Empty optional paths disable that output.
type OutputConfig struct {
	CSV    string
	XLSX   string
	SQLite string
	Chart  string
	Report string
	Sheets bool
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	defaults := datos.DefaultConfig()

	v.SetDefault("source.url", defaults.URL)
	v.SetDefault("source.timeout", defaults.Timeout)
	v.SetDefault("source.retry_delay", defaults.RetryDelay)
	v.SetDefault("source.retries", defaults.Retries)
	v.SetDefault("source.page_size", defaults.PageSize)
	v.SetDefault("source.progress", false)

	v.SetDefault("output.csv", export.DefaultFlatFile)
	v.SetDefault("output.xlsx", export.DefaultWorkbook)
	v.SetDefault("output.sqlite", "")
	v.SetDefault("output.chart", "")
	v.SetDefault("output.report", "")
	v.SetDefault("output.sheets", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load resolves the run configuration from v. A nil v uses the global viper instance.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	cfg := &Config{
		Source: SourceConfig{
			URL:        v.GetString("source.url"),
			Timeout:    v.GetDuration("source.timeout"),
			RetryDelay: v.GetDuration("source.retry_delay"),
			Retries:    v.GetInt("source.retries"),
			PageSize:   v.GetInt("source.page_size"),
			Progress:   v.GetBool("source.progress"),
		},
		Output: OutputConfig{
			CSV:    ExpandPath(v.GetString("output.csv")),
			XLSX:   ExpandPath(v.GetString("output.xlsx")),
			SQLite: ExpandPath(v.GetString("output.sqlite")),
			Chart:  ExpandPath(v.GetString("output.chart")),
			Report: ExpandPath(v.GetString("output.report")),
			Sheets: v.GetBool("output.sheets"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Output.CSV == "" {
		return fmt.Errorf("%w: output.csv is required", common.ErrMissingConfig)
	}
	if c.Output.XLSX == "" {
		return fmt.Errorf("%w: output.xlsx is required", common.ErrMissingConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return c.Datos().Validate()
}

// Datos returns the fetcher configuration.
func (c *Config) Datos() datos.Config {
	return datos.Config{
		URL:        c.Source.URL,
		Timeout:    c.Source.Timeout,
		RetryDelay: c.Source.RetryDelay,
		Retries:    c.Source.Retries,
		PageSize:   c.Source.PageSize,
		Progress:   datos.StderrProgress(c.Source.Progress),
	}
}
