// Package config loads dbsense settings from defaults, an optional YAML or
// TOML file, DBSENSE_* environment variables and command-line flags, in that
// order of precedence (later wins).
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/anilkmeesala/db-sense-editor/lexicon"
	"github.com/anilkmeesala/db-sense-editor/logging"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "DBSENSE_"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Drivers lists the supported connection drivers.
var Drivers = []string{"sqlite", "postgres", "duckdb", "bigquery"}

// searchNames are tried in the working directory, then in the user config dir.
var searchNames = []string{"dbsense.yaml", "dbsense.yml", "dbsense.toml"}

// Duration reads "250ms" style values from YAML, TOML and the environment.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type Config struct {
	Connection ConnectionConfig `yaml:"connection" toml:"connection" envPrefix:"CONNECTION_"`
	Completion CompletionConfig `yaml:"completion" toml:"completion" envPrefix:"COMPLETION_"`
	Log        LogConfig        `yaml:"log"        toml:"log"        envPrefix:"LOG_"`
	Store      StoreConfig      `yaml:"store"      toml:"store"      envPrefix:"STORE_"`
}

type ConnectionConfig struct {
	Driver string `yaml:"driver" toml:"driver" env:"DRIVER"`
	// DSN is a file path for sqlite and duckdb and a connection URL for postgres.
	DSN          string   `yaml:"dsn"           toml:"dsn"           env:"DSN"`
	Project      string   `yaml:"project"       toml:"project"       env:"PROJECT"`
	Dataset      string   `yaml:"dataset"       toml:"dataset"       env:"DATASET"`
	QueryTimeout Duration `yaml:"query_timeout" toml:"query_timeout" env:"QUERY_TIMEOUT"`
	MaxRows      int      `yaml:"max_rows"      toml:"max_rows"      env:"MAX_ROWS"`
}

type CompletionConfig struct {
	ContextAware          bool     `yaml:"context_aware"           toml:"context_aware"           env:"CONTEXT_AWARE"`
	ActivationDelay       Duration `yaml:"activation_delay"        toml:"activation_delay"        env:"ACTIVATION_DELAY"`
	ActivateOnDot         bool     `yaml:"activate_on_dot"         toml:"activate_on_dot"         env:"ACTIVATE_ON_DOT"`
	DefaultIncludesTables bool     `yaml:"default_includes_tables" toml:"default_includes_tables" env:"DEFAULT_INCLUDES_TABLES"`
	// Dialect selects the lexicon overlay. Empty follows the connection driver.
	Dialect     string `yaml:"dialect"      toml:"dialect"      env:"DIALECT"`
	LexiconPath string `yaml:"lexicon_path" toml:"lexicon_path" env:"LEXICON_PATH"`
	MaxVisible  int    `yaml:"max_visible"  toml:"max_visible"  env:"MAX_VISIBLE"`
}

type LogConfig struct {
	Level  string `yaml:"level"  toml:"level"  env:"LEVEL"`
	Format string `yaml:"format" toml:"format" env:"FORMAT"`
}

type StoreConfig struct {
	Path string `yaml:"path" toml:"path" env:"PATH"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Connection: ConnectionConfig{
			QueryTimeout: Duration(2 * time.Minute),
			MaxRows:      1000,
		},
		Completion: CompletionConfig{
			ContextAware:    true,
			ActivationDelay: Duration(120 * time.Millisecond),
			ActivateOnDot:   true,
			MaxVisible:      12,
		},
		Log:   LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{Path: defaultStorePath()},
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "dbsense.db"
	}
	return filepath.Join(dir, "dbsense", "dbsense.db")
}

// Load applies the config file and the environment on top of Default. An
// empty path searches the default locations and skips the file if none
// exists. Flags are applied by the caller, followed by Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	dirs := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, "dbsense"))
	}
	for _, dir := range dirs {
		for _, name := range searchNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, c)
	default:
		return fmt.Errorf("%s: unsupported config format", path)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Dialect returns the lexicon dialect to use.
func (c *Config) Dialect() string {
	if c.Completion.Dialect != "" {
		return strings.ToLower(c.Completion.Dialect)
	}
	return c.Connection.Driver
}

// Validate reports every problem found, wrapped in ErrInvalid.
func (c *Config) Validate() error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	conn := c.Connection
	if conn.Driver != "" && !slices.Contains(Drivers, conn.Driver) {
		add("connection.driver %q is not one of %s", conn.Driver, strings.Join(Drivers, ", "))
	}
	switch conn.Driver {
	case "postgres":
		if conn.DSN == "" {
			add("connection.dsn is required for postgres")
		}
	case "bigquery":
		if conn.Project == "" || conn.Dataset == "" {
			add("connection.project and connection.dataset are required for bigquery")
		}
	}
	if conn.QueryTimeout <= 0 {
		add("connection.query_timeout must be positive")
	}
	if conn.MaxRows <= 0 {
		add("connection.max_rows must be positive")
	}

	comp := c.Completion
	if comp.ActivationDelay < 0 {
		add("completion.activation_delay must not be negative")
	}
	if comp.MaxVisible < 0 {
		add("completion.max_visible must not be negative")
	}
	if d := c.Dialect(); d != "" && comp.LexiconPath == "" && !slices.Contains(lexicon.Dialects(), d) {
		add("completion.dialect %q is not built in (have %s)", d, strings.Join(lexicon.Dialects(), ", "))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %v", err)
	}
	if f := strings.ToLower(c.Log.Format); f != "" && f != "text" && f != "json" {
		add("log.format %q must be text or json", c.Log.Format)
	}
	if c.Store.Path == "" {
		add("store.path must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(problems...))
	}
	return nil
}

// ConnectionKey identifies the configured database in the local store
// without recording credentials from the DSN.
func (c *Config) ConnectionKey() string {
	conn := c.Connection
	switch conn.Driver {
	case "":
		return ""
	case "bigquery":
		return "bigquery:" + conn.Project + "." + conn.Dataset
	}
	sum := sha256.Sum256([]byte(conn.DSN))
	return conn.Driver + ":" + hex.EncodeToString(sum[:8])
}
