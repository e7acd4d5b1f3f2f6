package config

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultEnvironment = "local"
	DefaultEnvPrefix   = "RHYON"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultFile = "default.yaml"
)

//go:embed configs/*.yaml
var embedded embed.FS

type Config struct {
	Environment string `yaml:"-" ignored:"true"`

	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Source   SourceConfig   `yaml:"source"`
	Markdown MarkdownConfig `yaml:"markdown"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	CORSOrigins     []string      `yaml:"cors_origins" split_words:"true"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	SSLMode    string `yaml:"ssl_mode" split_words:"true"`
	MaxConns   int32  `yaml:"max_conns" split_words:"true"`
	MinConns   int32  `yaml:"min_conns" split_words:"true"`
}

// CacheConfig enables the Redis article cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr" split_words:"true"`
	TTL       time.Duration `yaml:"ttl"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name" split_words:"true"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio" split_words:"true"`
}

// SourceConfig points at the git repository articles are synced from.
// Sync is off unless WebhookSecret is set.
type SourceConfig struct {
	Owner         string `yaml:"owner"`
	Repo          string `yaml:"repo"`
	Token         string `yaml:"token"`
	WebhookSecret string `yaml:"webhook_secret" split_words:"true"`
	ContentDir    string `yaml:"content_dir" split_words:"true"`
}

type MarkdownConfig struct {
	SiteURL string `yaml:"site_url" split_words:"true"`
}

// SyncEnabled reports whether git-backed article sync should be wired.
func (c SourceConfig) SyncEnabled() bool {
	return c.WebhookSecret != ""
}

// Sources describes where Load reads from. FS holds default.yaml and the
// optional <Environment>.yaml overlay.
type Sources struct {
	FS          fs.FS
	Environment string
	EnvPrefix   string
}

// DefaultSources reads the embedded configs directory, selects the environment
// from RHYON_ENV and overlays RHYON_* variables.
func DefaultSources() Sources {
	sub, err := fs.Sub(embedded, "configs")
	if err != nil {
		panic(err)
	}

	env := os.Getenv(DefaultEnvPrefix + "_ENV")
	if env == "" {
		env = DefaultEnvironment
	}

	return Sources{
		FS:          sub,
		Environment: env,
		EnvPrefix:   DefaultEnvPrefix,
	}
}

// Load builds the configuration from default.yaml, then <env>.yaml if present,
// then environment variables, and validates the result.
func Load(src Sources) (Config, error) {
	var cfg Config

	if err := decodeFile(src.FS, defaultFile, &cfg); err != nil {
		return Config{}, err
	}

	if src.Environment != "" {
		err := decodeFile(src.FS, src.Environment+".yaml", &cfg)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := envconfig.Process(src.EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.Environment = src.Environment

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func decodeFile(fsys fs.FS, name string, cfg *Config) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}

	return nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Log),
		validation.Field(&c.Database),
		validation.Field(&c.Cache),
		validation.Field(&c.Tracing),
		validation.Field(&c.Source),
		validation.Field(&c.Markdown),
	)
}

func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Required),
	)
}

func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&c.Format, validation.In("json", "console")),
	)
}

func (c DatabaseConfig) Validate() error {
	postgres := c.Driver == DriverPostgres
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&c.SQLitePath, validation.When(c.Driver == DriverSQLite, validation.Required)),
		validation.Field(&c.Host, validation.When(postgres, validation.Required)),
		validation.Field(&c.Port, validation.When(postgres, validation.Required, validation.Max(65535))),
		validation.Field(&c.Name, validation.When(postgres, validation.Required)),
		validation.Field(&c.SSLMode, validation.In("disable", "allow", "prefer", "require", "verify-ca", "verify-full")),
		validation.Field(&c.MinConns, validation.Min(int32(0)), validation.When(c.MaxConns > 0, validation.Max(c.MaxConns))),
	)
}

func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TTL, validation.When(c.RedisAddr != "", validation.Required)),
	)
}

func (c TracingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ServiceName, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Exporter, validation.When(c.Enabled, validation.Required), validation.In("stdout", "otlp")),
		validation.Field(&c.Endpoint, validation.When(c.Enabled && c.Exporter == "otlp", validation.Required)),
		validation.Field(&c.SampleRatio, validation.Min(0.0), validation.Max(1.0)),
	)
}

func (c SourceConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Owner, validation.When(c.SyncEnabled(), validation.Required)),
		validation.Field(&c.Repo, validation.When(c.SyncEnabled(), validation.Required)),
	)
}

func (c MarkdownConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SiteURL, is.URL),
	)
}
