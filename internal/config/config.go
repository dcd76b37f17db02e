package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "wikifacts.yaml"

// MaxBatchSize is the most titles the wiki API accepts in one query.
const MaxBatchSize = 50

type Validator interface {
	Validate() error
}

type ProjectConfig struct {
	Project  string         `yaml:"project"`
	Version  int            `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	Wiki     WikiConfig     `yaml:"wiki"`
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Dumps    string         `yaml:"dumps"`
	Tables   string         `yaml:"tables"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type WikiConfig struct {
	APIURL            string        `yaml:"api_url"`
	UserAgent         string        `yaml:"user_agent"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	BatchSize         int           `yaml:"batch_size"`
	Concurrency       int           `yaml:"concurrency"`
	Timeout           time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

func NewDefaultConfig() *ProjectConfig {
	return &ProjectConfig{
		Version: 1,
		Database: DatabaseConfig{
			DSN: "sqlite://wikifacts.db",
		},
		Wiki: WikiConfig{
			APIURL:            "https://oldschool.runescape.wiki/api.php",
			UserAgent:         "wikifacts/dev",
			RequestsPerSecond: 2,
			Burst:             1,
			BatchSize:         MaxBatchSize,
			Concurrency:       2,
			Timeout:           30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Dumps: "./dumps",
	}
}

// LoadProjectConfig reads path over the defaults. ${VAR} references are
// expanded from the environment before decoding.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	cfg := NewDefaultConfig()
	if err := load(path, cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	return cfg, nil
}

func load[T any](path string, target *T) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validating %s: %w", path, err)
		}
	}
	return nil
}

func (c *ProjectConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Project, validation.Required),
		validation.Field(&c.Version, validation.Required, validation.In(1).Error("unsupported version")),
	); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Wiki.Validate(); err != nil {
		return fmt.Errorf("wiki: %w", err)
	}
	return c.Log.Validate()
}

func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DSN, validation.Required, validation.By(func(value any) error {
			dsn, _ := value.(string)
			if strings.HasPrefix(dsn, "sqlite://") || strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
				return nil
			}
			return fmt.Errorf("must start with sqlite:// or postgres://")
		})),
	)
}

// Driver names the storage backend the DSN selects.
func (c *DatabaseConfig) Driver() string {
	if strings.HasPrefix(c.DSN, "sqlite://") {
		return "sqlite"
	}
	return "postgres"
}

func (c *WikiConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIURL, validation.Required),
		validation.Field(&c.UserAgent, validation.Required),
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(1)),
		validation.Field(&c.BatchSize, validation.Required, validation.Min(1), validation.Max(MaxBatchSize)),
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Format, validation.In("text", "json")),
	)
}
