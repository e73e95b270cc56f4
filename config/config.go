// Package config loads settings from a YAML file, CINEGRAPH_ environment
// variables and command line flags, in increasing order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cinegraph/common/dataloader"
)

const EnvPrefix = "CINEGRAPH"

type DatabaseKind string

const (
	DatabaseMySQL DatabaseKind = "mysql"
	DatabaseMongo DatabaseKind = "mongo"
)

type Config struct {
	Level    string   `mapstructure:"level"`
	Database Database `mapstructure:"database"`
	Loader   Loader   `mapstructure:"loader"`
}

type Database struct {
	Kind  DatabaseKind `mapstructure:"kind"`
	MySQL MySQL        `mapstructure:"mysql"`
	Mongo Mongo        `mapstructure:"mongo"`
}

type MySQL struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type Mongo struct {
	URI    string `mapstructure:"uri"`
	DB     string `mapstructure:"db"`
	Direct bool   `mapstructure:"direct"`
}

type Loader struct {
	Wait     time.Duration `mapstructure:"wait"`
	MaxBatch int           `mapstructure:"max_batch"`
}

// Options turns the loader settings into dataloader options.
func (l Loader) Options() []dataloader.Option {
	return []dataloader.Option{
		dataloader.WithWait(l.Wait),
		dataloader.WithMaxBatch(l.MaxBatch),
	}
}

var defaults = map[string]any{
	"level":                            "info",
	"database.kind":                    string(DatabaseMySQL),
	"database.mysql.dsn":               "",
	"database.mysql.max_open_conns":    16,
	"database.mysql.max_idle_conns":    4,
	"database.mysql.conn_max_lifetime": 5 * time.Minute,
	"database.mongo.uri":               "",
	"database.mongo.db":                "cinegraph",
	"database.mongo.direct":            false,
	"loader.wait":                      dataloader.DefaultWait,
	"loader.max_batch":                 0,
}

// flag name -> config key
var flagKeys = map[string]string{
	"level":            "level",
	"db":               "database.kind",
	"mysql-dsn":        "database.mysql.dsn",
	"mongo-uri":        "database.mongo.uri",
	"mongo-db":         "database.mongo.db",
	"loader-wait":      "loader.wait",
	"loader-max-batch": "loader.max_batch",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Configuration file. Environment variables and flags take precedence over it.")
	fs.String("level", "info", "Log level, one of debug, info, warn, error.")
	fs.String("db", string(DatabaseMySQL), "Backend to read from, mysql or mongo.")
	fs.String("mysql-dsn", "", "MySQL data source name.")
	fs.String("mongo-uri", "", "MongoDB connection URI.")
	fs.String("mongo-db", "cinegraph", "MongoDB database name.")
	fs.Duration("loader-wait", dataloader.DefaultWait, "How long a batch window stays open. 0 batches on flush only.")
	fs.Int("loader-max-batch", 0, "Cap on distinct keys in one backend fetch. 0, the default, fetches every key of a window at once.")
}

// Load reads the configuration. fs may be nil, in which case only the file named by
// CINEGRAPH_CONFIG, the environment and the defaults are consulted.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "bind flag %s", name)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil {
			_ = v.BindPFlag("config", f)
		}
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Database.Kind {
	case DatabaseMySQL:
		if c.Database.MySQL.DSN == "" {
			return errors.New("database.mysql.dsn is required when database.kind is mysql")
		}
	case DatabaseMongo:
		if c.Database.Mongo.URI == "" {
			return errors.New("database.mongo.uri is required when database.kind is mongo")
		}
	default:
		return errors.Errorf("unknown database.kind %q", c.Database.Kind)
	}

	if c.Loader.Wait < 0 {
		return errors.Errorf("loader.wait must not be negative, got %s", c.Loader.Wait)
	}
	if c.Loader.MaxBatch < 0 {
		return errors.Errorf("loader.max_batch must not be negative, got %d", c.Loader.MaxBatch)
	}

	return nil
}

// Logger builds a production zap logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing level %q", c.Level)
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	return zc.Build()
}
