package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // timezone names resolve on hosts without a zoneinfo database

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. CASEWRANGLE_DATA_DIR.
const EnvPrefix = "CASEWRANGLE"

// Global configuration structure.
type Global struct {
	DataDir    string `mapstructure:"data_dir" yaml:"data_dir"`
	CaseFile   string `mapstructure:"case_file" yaml:"case_file" validate:"required"`
	DeptFile   string `mapstructure:"dept_file" yaml:"dept_file" validate:"required"`
	SourceFile string `mapstructure:"source_file" yaml:"source_file" validate:"required"`
	Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
	MaxRows    int    `mapstructure:"max_rows" yaml:"max_rows" validate:"gte=0"`

	// Date handling
	TimestampLayout string `mapstructure:"timestamp_layout" yaml:"timestamp_layout" validate:"required"`
	ReferenceDate   string `mapstructure:"reference_date" yaml:"reference_date" validate:"required,datetime=2006-01-02"`
	Timezone        string `mapstructure:"timezone" yaml:"timezone" validate:"required,timezone"`

	// Output
	OutputFormat string `mapstructure:"output_format" yaml:"output_format" validate:"omitempty,oneof=csv jsonl xlsx sqlite"`
	SQLiteTable  string `mapstructure:"sqlite_table" yaml:"sqlite_table" validate:"required"`
	ManifestDir  string `mapstructure:"manifest_dir" yaml:"manifest_dir"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=console json"`
}

// Location resolves Timezone.
func (c *Global) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	return loc, nil
}

// Reference parses ReferenceDate.
func (c *Global) Reference() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.ReferenceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse reference_date: %w", err)
	}
	return t, nil
}

// Delim maps the delimiter setting to a rune: ",", ";" or "tab".
func (c *Global) Delim() (rune, error) {
	switch c.Delimiter {
	case "", ",":
		return ',', nil
	case ";":
		return ';', nil
	case "\t", "tab":
		return '\t', nil
	}
	return 0, fmt.Errorf("unsupported delimiter: %s", c.Delimiter)
}

// Validate checks field constraints.
func (c *Global) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Delim(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".casewrangle"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.casewrangle/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := homeDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (including a .env file in the working directory) > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data_dir", ".")
	v.SetDefault("case_file", "case.csv")
	v.SetDefault("dept_file", "dept.csv")
	v.SetDefault("source_file", "source.csv")
	v.SetDefault("delimiter", ",")
	v.SetDefault("max_rows", 0)
	v.SetDefault("timestamp_layout", "1/2/06 15:04")
	v.SetDefault("reference_date", "2018-08-08")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("output_format", "")
	v.SetDefault("sqlite_table", "cases")
	v.SetDefault("manifest_dir", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	// Config file
	dir, err := homeDir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !(cfgFile != "" && errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve manifest_dir default: ~/.casewrangle/runs
	if c.ManifestDir == "" {
		c.ManifestDir = filepath.Join(dir, "runs")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
