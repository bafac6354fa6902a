package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Attendee backends.
const (
	BackendStatic = "static"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the admin API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// AttendeeConfig selects where attendee lookups are answered from. The users
// file is always the fallback.
type AttendeeConfig struct {
	// Backend is one of "static", "sqlite" or "mongo".
	Backend string `yaml:"backend" json:"backend"`

	// SQLitePath is the local mirror database. Used by the sqlite backend and,
	// when set, as the sync target for the mongo backend.
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`

	MongoURI        string `yaml:"mongo_uri" json:"-"`
	MongoDatabase   string `yaml:"mongo_database" json:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection" json:"mongo_collection"`

	// SyncCron refreshes the SQLite mirror. Empty disables the sync job.
	SyncCron string `yaml:"sync_cron" json:"sync_cron"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for pages and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the venue's IANA zone. "Today" and exported event times
	// are computed in it.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DatasetPath is the agenda document: a file path or an http(s) URL.
	DatasetPath string `yaml:"dataset_path" json:"dataset_path"`
	// DatasetCacheDir keeps the last good copy of a remote agenda document.
	DatasetCacheDir string `yaml:"dataset_cache_dir" json:"dataset_cache_dir"`

	// UsersPath is the static users file, {"users": [...]}.
	UsersPath string `yaml:"users_path" json:"users_path"`

	// LogLevel is "debug", "info" or "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	Attendee AttendeeConfig `yaml:"attendee" json:"attendee"`

	// RegionalSessionIDs are agenda item ids whose title gets the signed-in
	// attendee's region appended.
	RegionalSessionIDs []string `yaml:"regional_session_ids" json:"regional_session_ids"`

	// CalendarDomain is the UID domain of exported calendar events.
	CalendarDomain string `yaml:"calendar_domain" json:"calendar_domain"`

	// BasicAuth, if non-nil, protects the admin endpoints.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"-"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		Timezone:        "Europe/Prague",
		DatasetPath:     "data/agenda.json",
		DatasetCacheDir: "var/dataset-cache",
		UsersPath:       "data/users.json",
		LogLevel:        "info",
		Attendee: AttendeeConfig{
			Backend:         BackendStatic,
			SQLitePath:      "var/attendees.db",
			MongoDatabase:   "userlist",
			MongoCollection: "attendees",
			SyncCron:        "*/30 * * * *",
		},
		RegionalSessionIDs: []string{},
		CalendarDomain:     "confagenda.local",
		BasicAuth:          nil,
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.DatasetPath == "" {
		c.DatasetPath = d.DatasetPath
	}
	if c.DatasetCacheDir == "" {
		c.DatasetCacheDir = d.DatasetCacheDir
	}
	if c.UsersPath == "" {
		c.UsersPath = d.UsersPath
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = d.LogLevel
	}

	switch strings.ToLower(c.Attendee.Backend) {
	case BackendStatic, BackendSQLite, BackendMongo:
		c.Attendee.Backend = strings.ToLower(c.Attendee.Backend)
	default:
		c.Attendee.Backend = BackendStatic
	}
	if c.Attendee.MongoDatabase == "" {
		c.Attendee.MongoDatabase = d.Attendee.MongoDatabase
	}
	if c.Attendee.MongoCollection == "" {
		c.Attendee.MongoCollection = d.Attendee.MongoCollection
	}
	if c.Attendee.Backend == BackendSQLite && c.Attendee.SQLitePath == "" {
		c.Attendee.SQLitePath = d.Attendee.SQLitePath
	}

	if c.RegionalSessionIDs == nil {
		c.RegionalSessionIDs = []string{}
	}
	if c.CalendarDomain == "" {
		c.CalendarDomain = d.CalendarDomain
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// Validate reports settings that cannot work at all.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.Attendee.Backend == BackendMongo && c.Attendee.MongoURI == "" {
		return errors.New("attendee.mongo_uri is required for the mongo backend")
	}
	return nil
}

// Location returns the venue zone, falling back to UTC when the zone name
// cannot be resolved.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read and defaults are filled in.
//
// Environment overrides are applied separately by ApplyEnv.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".confagenda-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
