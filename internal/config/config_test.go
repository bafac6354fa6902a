package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadNormalizesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
log_level: LOUD
attendee:
  backend: SQLite
regional_session_ids: [sat-awards]
basic_auth:
  username: ""
  password: ""
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "Europe/Prague", cfg.Timezone)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, BackendSQLite, cfg.Attendee.Backend)
	assert.Equal(t, "var/attendees.db", cfg.Attendee.SQLitePath)
	assert.Equal(t, "userlist", cfg.Attendee.MongoDatabase)
	assert.Equal(t, []string{"sat-awards"}, cfg.RegionalSessionIDs)
	assert.Nil(t, cfg.BasicAuth)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Attendee.Backend = BackendMongo
	cfg.Attendee.MongoURI = "mongodb://localhost:27017"
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	assert.Error(t, Save("", cfg))
	assert.Error(t, Save(path, nil))
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Europe/Prague", cfg.Location().String())

	cfg.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
	assert.Equal(t, "UTC", cfg.Location().String())

	cfg = DefaultConfig()
	cfg.Attendee.Backend = BackendMongo
	assert.Error(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.applyEnv(env.Options{
		Prefix: EnvPrefix,
		Environment: map[string]string{
			"CONFAGENDA_LISTEN":               ":8181",
			"CONFAGENDA_ATTENDEE_BACKEND":     "mongo",
			"CONFAGENDA_MONGO_URI":            "mongodb://db:27017",
			"CONFAGENDA_REGIONAL_SESSION_IDS": "sat-awards,thu-dinner",
			"CONFAGENDA_BASIC_AUTH_USERNAME":  "admin",
			"CONFAGENDA_BASIC_AUTH_PASSWORD":  "pw",
			"LISTEN":                          ":1",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, ":8181", cfg.Listen)
	assert.Equal(t, BackendMongo, cfg.Attendee.Backend)
	assert.Equal(t, "mongodb://db:27017", cfg.Attendee.MongoURI)
	assert.Equal(t, []string{"sat-awards", "thu-dinner"}, cfg.RegionalSessionIDs)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "admin", cfg.BasicAuth.Username)
	assert.Equal(t, "Europe/Prague", cfg.Timezone)
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, LoadDotEnv(""))
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CONFAGENDA_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CONFAGENDA_TEST_DOTENV") })
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("CONFAGENDA_TEST_DOTENV"))
}
