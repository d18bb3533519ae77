package app

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/scoring"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

type HeaderConfig struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

type Config struct {
	Server struct {
		Port            string `toml:"port"`
		ShutdownTimeout string `toml:"shutdown_timeout"`
	} `toml:"server"`

	API struct {
		UserIDHeader    string         `toml:"user_id_header"`
		StudentIDHeader string         `toml:"student_id_header"`
		CourseIDHeader  string         `toml:"course_id_header"`
		RequiredHeaders []HeaderConfig `toml:"required_headers"`
	} `toml:"api"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Events struct {
		MaxAppendAttempts int    `toml:"max_append_attempts"`
		TxTimeout         string `toml:"tx_timeout"`
	} `toml:"events"`

	Import struct {
		TxTimeout string `toml:"tx_timeout"`
	} `toml:"import"`

	Grading struct {
		FinalizePolicy string `toml:"finalize_policy"`
	} `toml:"grading"`

	Notify struct {
		RedisURL string `toml:"redis_url"`
		Queue    string `toml:"queue"`
	} `toml:"notify"`

	Export struct {
		Schedule  string   `toml:"schedule"`
		OutputDir string   `toml:"output_dir"`
		Courses   []string `toml:"courses"`
		Timeout   string   `toml:"timeout"`
	} `toml:"export"`

	policy          scoring.FinalizePolicy
	eventTimeout    time.Duration
	importTimeout   time.Duration
	shutdownTimeout time.Duration
	exportTimeout   time.Duration
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if err := config.normalize(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	logger.Debug.Printf("Loaded grading config: policy=%s, append attempts=%d", config.policy, config.Events.MaxAppendAttempts)

	return &config, nil
}

func (c *Config) normalize() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is not specified in config, use a value like :9999")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is not specified in config")
	}
	if c.Database.MigrationsDir == "" {
		c.Database.MigrationsDir = "./migrations"
	}

	if c.API.UserIDHeader == "" {
		c.API.UserIDHeader = "X-User-Id"
	}
	if c.API.StudentIDHeader == "" {
		c.API.StudentIDHeader = "X-Student-Id"
	}
	if c.API.CourseIDHeader == "" {
		c.API.CourseIDHeader = "X-Course-Id"
	}

	if c.Events.MaxAppendAttempts <= 0 {
		c.Events.MaxAppendAttempts = store.DefaultMaxAppendAttempts
	}
	if c.Notify.Queue == "" {
		c.Notify.Queue = "gradebook:notifications"
	}

	var err error
	if c.policy, err = scoring.ParsePolicy(c.Grading.FinalizePolicy); err != nil {
		return err
	}
	if c.eventTimeout, err = duration("events.tx_timeout", c.Events.TxTimeout, 5*time.Second); err != nil {
		return err
	}
	if c.importTimeout, err = duration("import.tx_timeout", c.Import.TxTimeout, 10*time.Second); err != nil {
		return err
	}
	if c.shutdownTimeout, err = duration("server.shutdown_timeout", c.Server.ShutdownTimeout, 10*time.Second); err != nil {
		return err
	}
	if c.exportTimeout, err = duration("export.timeout", c.Export.Timeout, time.Minute); err != nil {
		return err
	}
	return nil
}

func duration(key, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return d, nil
}

func (c *Config) FinalizePolicy() scoring.FinalizePolicy { return c.policy }
func (c *Config) EventTxTimeout() time.Duration           { return c.eventTimeout }
func (c *Config) ImportTxTimeout() time.Duration          { return c.importTimeout }
func (c *Config) ShutdownTimeout() time.Duration          { return c.shutdownTimeout }
func (c *Config) ExportTimeout() time.Duration            { return c.exportTimeout }
