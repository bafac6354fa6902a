package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONFAGENDA_"

// envOverrides lists settings that may come from the environment. Empty
// values leave the file setting alone.
type envOverrides struct {
	Listen          string `env:"LISTEN"`
	Timezone        string `env:"TIMEZONE"`
	DatasetPath     string `env:"DATASET_PATH"`
	DatasetCacheDir string `env:"DATASET_CACHE_DIR"`
	UsersPath       string `env:"USERS_PATH"`
	LogLevel        string `env:"LOG_LEVEL"`

	AttendeeBackend string `env:"ATTENDEE_BACKEND"`
	SQLitePath      string `env:"SQLITE_PATH"`
	MongoURI        string `env:"MONGO_URI"`
	MongoDatabase   string `env:"MONGO_DATABASE"`
	MongoCollection string `env:"MONGO_COLLECTION"`
	SyncCron        string `env:"SYNC_CRON"`

	RegionalSessionIDs []string `env:"REGIONAL_SESSION_IDS" envSeparator:","`
	CalendarDomain     string   `env:"CALENDAR_DOMAIN"`

	BasicAuthUsername string `env:"BASIC_AUTH_USERNAME"`
	BasicAuthPassword string `env:"BASIC_AUTH_PASSWORD"`
}

// LoadDotEnv loads variables from path into the process environment.
// Missing files are ignored; existing variables are not overwritten.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overlays CONFAGENDA_* variables from the process environment.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(env.Options{Prefix: EnvPrefix})
}

func (c *Config) applyEnv(opts env.Options) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Listen, o.Listen)
	set(&c.Timezone, o.Timezone)
	set(&c.DatasetPath, o.DatasetPath)
	set(&c.DatasetCacheDir, o.DatasetCacheDir)
	set(&c.UsersPath, o.UsersPath)
	set(&c.LogLevel, o.LogLevel)
	set(&c.Attendee.Backend, o.AttendeeBackend)
	set(&c.Attendee.SQLitePath, o.SQLitePath)
	set(&c.Attendee.MongoURI, o.MongoURI)
	set(&c.Attendee.MongoDatabase, o.MongoDatabase)
	set(&c.Attendee.MongoCollection, o.MongoCollection)
	set(&c.Attendee.SyncCron, o.SyncCron)
	set(&c.CalendarDomain, o.CalendarDomain)
	if len(o.RegionalSessionIDs) > 0 {
		c.RegionalSessionIDs = o.RegionalSessionIDs
	}
	if o.BasicAuthUsername != "" || o.BasicAuthPassword != "" {
		c.BasicAuth = &BasicAuthConfig{Username: o.BasicAuthUsername, Password: o.BasicAuthPassword}
	}

	c.Normalize()
	return nil
}
