// Package config loads nodegraph settings from YAML or HCL files, .env files and
// NODEGRAPH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"
	"github.com/smallnest/nodegraph/log"
	"gopkg.in/yaml.v2"
)

// Store backends understood by store/factory.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSqlite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "NODEGRAPH_"

// Config is the top-level configuration.
type Config struct {
	Store  *StoreConfig  `yaml:"store" hcl:"store,block"`
	Log    *LogConfig    `yaml:"log" hcl:"log,block"`
	Runner *RunnerConfig `yaml:"runner" hcl:"runner,block"`
}

// StoreConfig selects and configures a checkpoint backend.
type StoreConfig struct {
	// Backend names the store. Empty means ResolvedBackend infers it.
	Backend string `yaml:"backend" hcl:"backend,optional"`

	// Path is the directory of the file backend or the database file of the sqlite backend.
	Path string `yaml:"path" hcl:"path,optional"`

	// Driver is the sqlite driver name: "sqlite3" or "sqlite".
	Driver string `yaml:"driver" hcl:"driver,optional"`

	// DSN is the postgres connection string.
	DSN string `yaml:"dsn" hcl:"dsn,optional"`

	Table string `yaml:"table" hcl:"table,optional"`

	Addr     string `yaml:"addr" hcl:"addr,optional"`
	Password string `yaml:"password" hcl:"password,optional"`
	DB       int    `yaml:"db" hcl:"db,optional"`
	Prefix   string `yaml:"prefix" hcl:"prefix,optional"`

	// TTL is a duration string such as "24h"; empty means no expiry.
	TTL string `yaml:"ttl" hcl:"ttl,optional"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level" hcl:"level,optional"`
}

// RunnerConfig holds scheduler settings.
type RunnerConfig struct {
	RecursionLimit      int    `yaml:"recursion_limit" hcl:"recursion_limit,optional"`
	CheckpointEveryStep bool   `yaml:"checkpoint_every_step" hcl:"checkpoint_every_step,optional"`
	ResumeKey           string `yaml:"resume_key" hcl:"resume_key,optional"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Store: &StoreConfig{
			Driver: "sqlite3",
			Table:   "checkpoints",
			Prefix:  "nodegraph:",
		},
		Log: &LogConfig{
			Level: "info",
		},
		Runner: &RunnerConfig{
			RecursionLimit: 25,
		},
	}
}

// Load reads a configuration file. The format follows the extension:
// .yaml/.yml or .hcl. Unset values take their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("error parsing YAML: %w", err)
		}
	case ".hcl":
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("error parsing HCL: %w", diags)
		}
		if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
			return nil, fmt.Errorf("error decoding HCL: %w", diags)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	cfg.fillDefaults()
	return &cfg, nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.Store == nil {
		c.Store = def.Store
	} else {
		if c.Store.Driver == "" {
			c.Store.Driver = def.Store.Driver
		}
		if c.Store.Table == "" {
			c.Store.Table = def.Store.Table
		}
		if c.Store.Prefix == "" {
			c.Store.Prefix = def.Store.Prefix
		}
	}
	if c.Log == nil {
		c.Log = def.Log
	} else if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Runner == nil {
		c.Runner = def.Runner
	} else if c.Runner.RecursionLimit == 0 {
		c.Runner.RecursionLimit = def.Runner.RecursionLimit
	}
}

// LoadEnv loads .env files into the process environment. Missing files are
// skipped; variables already set are not overridden.
func LoadEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("error loading env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from NODEGRAPH_* environment variables.
func (c *Config) ApplyEnv() error {
	c.fillDefaults()

	setString(&c.Store.Backend, "STORE_BACKEND")
	setString(&c.Store.Path, "STORE_PATH")
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.DSN, "STORE_DSN")
	setString(&c.Store.Table, "STORE_TABLE")
	setString(&c.Store.Addr, "REDIS_ADDR")
	setString(&c.Store.Password, "REDIS_PASSWORD")
	setString(&c.Store.Prefix, "REDIS_PREFIX")
	setString(&c.Store.TTL, "STORE_TTL")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Runner.ResumeKey, "RESUME_KEY")

	if v := getEnv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sREDIS_DB: %w", EnvPrefix, err)
		}
		c.Store.DB = n
	}
	if v := getEnv("RECURSION_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sRECURSION_LIMIT: %w", EnvPrefix, err)
		}
		c.Runner.RecursionLimit = n
	}
	if v := getEnv("CHECKPOINT_EVERY_STEP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sCHECKPOINT_EVERY_STEP: %w", EnvPrefix, err)
		}
		c.Runner.CheckpointEveryStep = b
	}
	return nil
}

func getEnv(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

func setString(dst *string, name string) {
	if v := getEnv(name); v != "" {
		*dst = v
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	c.fillDefaults()

	var errs []error
	backend := c.Store.ResolvedBackend()
	switch backend {
	case BackendMemory:
	case BackendFile, BackendSqlite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store backend %s requires path", backend))
		}
	case BackendPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store backend postgres requires dsn"))
		}
	case BackendRedis:
		if c.Store.Addr == "" {
			errs = append(errs, errors.New("store backend redis requires addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", backend))
	}
	if backend == BackendSqlite && c.Store.Driver != "sqlite3" && c.Store.Driver != "sqlite" {
		errs = append(errs, fmt.Errorf("unknown sqlite driver %q", c.Store.Driver))
	}
	if _, err := c.Store.TTLDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Runner.RecursionLimit < 1 {
		errs = append(errs, fmt.Errorf("recursion_limit must be positive, got %d", c.Runner.RecursionLimit))
	}
	return errors.Join(errs...)
}

// ResolvedBackend returns Backend, or when it is empty the backend implied by
// the other fields: a DSN selects postgres, an address selects redis, a path
// ending in .db or .sqlite selects sqlite, any other path selects the file
// store, and nothing at all selects memory.
func (s *StoreConfig) ResolvedBackend() string {
	if s.Backend != "" {
		return s.Backend
	}
	switch {
	case s.DSN != "":
		return BackendPostgres
	case s.Addr != "":
		return BackendRedis
	case strings.HasSuffix(s.Path, ".db") || strings.HasSuffix(s.Path, ".sqlite"):
		return BackendSqlite
	case s.Path != "":
		return BackendFile
	default:
		return BackendMemory
	}
}

// TTLDuration parses TTL. An empty TTL is zero.
func (s *StoreConfig) TTLDuration() (time.Duration, error) {
	if s.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid ttl %q: %w", s.TTL, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid ttl %q: negative", s.TTL)
	}
	return d, nil
}

// LogLevel returns the parsed log level, falling back to info.
func (c *Config) LogLevel() log.LogLevel {
	c.fillDefaults()
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.LogLevelInfo
	}
	return level
}
