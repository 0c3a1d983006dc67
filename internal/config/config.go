package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read by LoadConfig when CLIMBSTATS_CONFIG is unset
const DefaultConfigPath = "climbstats.yaml"

// Config holds all climbstats configuration
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Filters  []FilterConfig `yaml:"filters"`
	Publish  PublishConfig  `yaml:"publish"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InputConfig locates the source workbook and its sheets
type InputConfig struct {
	WorkbookPath string `yaml:"workbook_path"`
	DataSheet    string `yaml:"data_sheet"`
	MappingSheet string `yaml:"mapping_sheet"`
}

// OutputConfig locates the CSV outputs
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// FilterConfig pairs an activity type with the file its summary is written to
type FilterConfig struct {
	Type     string `yaml:"type"`
	FileName string `yaml:"file_name"`
}

// PublishConfig toggles upserting summaries into PostgreSQL
type PublishConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig configures batch-run metric export
type MetricsConfig struct {
	// Textfile, when set, receives a Prometheus text dump after each run
	Textfile string `yaml:"textfile"`
}

// DefaultFilters are the three activity types reported on
func DefaultFilters() []FilterConfig {
	return []FilterConfig{
		{Type: "Ice", FileName: "ice_climb_by_year_branch.csv"},
		{Type: "Ice cragging", FileName: "ice_cragging_by_year_branch.csv"},
		{Type: "Rock", FileName: "rock_by_year_branch.csv"},
	}
}

// DefaultConfig returns the configuration that reproduces the fixed report
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			WorkbookPath: "data/Intermediate_Climbing_trips_10_years-2023-11-03-13-36-35.xlsx",
			DataSheet:    "data",
			MappingSheet: "mapping",
		},
		Output: OutputConfig{
			Dir: "result",
		},
		Filters: DefaultFilters(),
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "climbstats",
			Database:        "climbstats",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads the file named by CLIMBSTATS_CONFIG, or DefaultConfigPath
func LoadConfig() (*Config, error) {
	path := os.Getenv("CLIMBSTATS_CONFIG")
	if path == "" {
		path = DefaultConfigPath
	}
	return Load(path)
}

// Load reads a YAML file over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("CLIMBSTATS_WORKBOOK"); v != "" {
		c.Input.WorkbookPath = v
	}
	if v := os.Getenv("CLIMBSTATS_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("CLIMBSTATS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CLIMBSTATS_DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("CLIMBSTATS_DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CLIMBSTATS_DB_PORT %q: %w", v, err)
		}
		c.Database.Port = port
	}
	if v := os.Getenv("CLIMBSTATS_DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("CLIMBSTATS_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("CLIMBSTATS_DB_NAME"); v != "" {
		c.Database.Database = v
	}
	if v := os.Getenv("CLIMBSTATS_DB_SSLMODE"); v != "" {
		c.Database.SSLMode = v
	}
	if v := os.Getenv("CLIMBSTATS_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CLIMBSTATS_SERVER_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks the settings every command relies on
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Input.WorkbookPath) == "" {
		problems = append(problems, "input.workbook_path is required")
	}
	if c.Input.DataSheet == "" || c.Input.MappingSheet == "" {
		problems = append(problems, "input.data_sheet and input.mapping_sheet are required")
	}
	if c.Output.Dir == "" {
		problems = append(problems, "output.dir is required")
	}
	if len(c.Filters) == 0 {
		problems = append(problems, "at least one filter is required")
	}

	seen := make(map[string]bool, len(c.Filters))
	for i, f := range c.Filters {
		if f.Type == "" || f.FileName == "" {
			problems = append(problems, fmt.Sprintf("filters[%d] needs both type and file_name", i))
			continue
		}
		if seen[f.FileName] {
			problems = append(problems, fmt.Sprintf("filters[%d] reuses file_name %q", i, f.FileName))
		}
		seen[f.FileName] = true
	}

	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be between 1 and 65535")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 1 and 65535")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
