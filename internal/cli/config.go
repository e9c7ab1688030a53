package cli

import (
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/layout"
	"github.com/matzehuels/schemaplot/pkg/pipeline"
)

// DefaultConfigFile is read from the working directory when --config is
// not given.
const DefaultConfigFile = "schemaplot.toml"

// Environment variables that override the configuration file.
const (
	EnvPostgresDSN = "SCHEMAPLOT_POSTGRES_DSN"
	EnvMySQLDSN    = "SCHEMAPLOT_MYSQL_DSN"
	EnvRedisAddr   = "SCHEMAPLOT_REDIS_ADDR"
	EnvDataDir     = "SCHEMAPLOT_DATA_DIR"
	EnvServerAddr  = "SCHEMAPLOT_ADDR"
)

// Config is the contents of schemaplot.toml.
type Config struct {
	// DataDir is the base directory holding the 0-data folder.
	DataDir string `toml:"data_dir"`

	Formats []string `toml:"formats"`
	Compact bool     `toml:"compact"`
	Scale   float64  `toml:"scale"`

	Layout   layout.Config  `toml:"layout"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
	Postgres DatabaseConfig `toml:"postgres"`
	MySQL    DatabaseConfig `toml:"mysql"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Dir      string `toml:"dir"`
	Redis    string `toml:"redis"`
	Disabled bool   `toml:"disabled"`
}

// ServerConfig configures "schemaplot serve".
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DatabaseConfig configures an introspection source.
type DatabaseConfig struct {
	DSN    string `toml:"dsn"`
	Schema string `toml:"schema"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		DataDir: ".",
		Formats: slices.Clone(pipeline.DefaultFormats),
		Scale:   1,
		Layout:  layout.DefaultConfig(),
		Server:  ServerConfig{Addr: ":8080"},
	}
}

// LoadConfig reads path over the defaults, then applies a .env file from
// the working directory and SCHEMAPLOT_* variables. A missing file is only
// an error when required is set. Keys the file does not define keep their
// defaults; unknown keys are rejected.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		switch {
		case err == nil:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				keys := make([]string, len(undecoded))
				for i, k := range undecoded {
					keys[i] = k.String()
				}
				sort.Strings(keys)
				return cfg, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
			}
		case os.IsNotExist(err):
			if required {
				return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
			}
		default:
			return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load .env")
	}
	cfg.applyEnv()

	if err := cfg.Layout.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	for env, dst := range map[string]*string{
		EnvPostgresDSN: &c.Postgres.DSN,
		EnvMySQLDSN:    &c.MySQL.DSN,
		EnvRedisAddr:   &c.Cache.Redis,
		EnvDataDir:     &c.DataDir,
		EnvServerAddr:  &c.Server.Addr,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
}

// pipelineOptions returns the configured pipeline options.
func (c *Config) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Layout:  c.Layout,
		Formats: c.Formats,
		Compact: c.Compact,
		Scale:   c.Scale,
	}
}
