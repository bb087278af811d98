package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/dbfill/pkg/dbfill"
)

func TestLoad_AllFields(t *testing.T) {
	dir := t.TempDir()
	content := `apps_exclude:
  - polls
tables_exclude:
  blog:
    - tag
    - comment
cache_dir: out
cache_filename: schema.json

connection:
  host: myhost
  port: 5433
  username: myuser
  database: mydb
  sslmode: require
  sslcert: /path/client.crt
  sslkey: /path/client.key
  sslrootcert: /path/ca.crt

registry:
  source: postgres
  schemas: [public, billing]
  actor: public.users
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, []string{"polls"}, cfg.Exclusions.ExcludedGroups)
	assert.Equal(t, map[string][]string{"blog": {"tag", "comment"}}, cfg.Exclusions.ExcludedTypes)
	assert.Equal(t, "out", cfg.CacheDir)
	assert.Equal(t, "schema.json", cfg.CacheFilename)
	assert.Equal(t, "myhost", cfg.Connection.Host)
	assert.Equal(t, 5433, cfg.Connection.Port)
	assert.Equal(t, "myuser", cfg.Connection.Username)
	assert.Equal(t, "mydb", cfg.Connection.Database)
	assert.Equal(t, "require", cfg.Connection.SSLMode)
	assert.Equal(t, "/path/client.crt", cfg.Connection.SSLCert)
	assert.Equal(t, "/path/client.key", cfg.Connection.SSLKey)
	assert.Equal(t, "/path/ca.crt", cfg.Connection.SSLRootCert)
	assert.Equal(t, SourcePostgres, cfg.Registry.Source)
	assert.Equal(t, []string{"public", "billing"}, cfg.Registry.Schemas)
	assert.Equal(t, "public.users", cfg.Registry.Actor)
	assert.Empty(t, cfg.UnknownKeys)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrConfigNotFound), "expected ErrConfigNotFound, got: %v", err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{{invalid"), 0644))

	cfg, err := Load(dir)
	assert.ErrorIs(t, err, dbfill.ErrInvalidConfig)
	assert.Nil(t, cfg)
}

func TestLoad_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(""), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, ProjectConfig{}, *cfg)
}

func TestParse_UnknownKeys(t *testing.T) {
	cfg, err := Parse([]byte("app_exclude: [blog]\ncache_dir: x\ntable_exclude: {}\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"app_exclude", "table_exclude"}, cfg.UnknownKeys)

	logger := &warnLogger{}
	cfg.WarnUnknownKeys(logger)
	assert.Equal(t, []string{
		`Unknown configuration key "app_exclude" is ignored`,
		`Unknown configuration key "table_exclude" is ignored`,
	}, logger.warns)
}

func TestParse_InvalidShapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		key  string
	}{
		{"apps_exclude scalar", "apps_exclude: blog\n", "apps_exclude"},
		{"apps_exclude mapping", "apps_exclude: {blog: true}\n", "apps_exclude"},
		{"tables_exclude list", "tables_exclude: [blog]\n", "tables_exclude"},
		{"tables_exclude value scalar", "tables_exclude:\n  blog: tag\n", "tables_exclude.blog"},
		{"cache_filename path", "cache_filename: a/b.json\n", "cache_filename"},
		{"registry source", "registry:\n  source: mysql\n", "registry.source"},
		{"registry file without path", "registry:\n  source: file\n", "registry.path"},
		{"registry actor", "registry:\n  actor: users\n", "registry.actor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, dbfill.ErrInvalidConfig)

			var invalid *dbfill.InvalidConfigError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.key, invalid.Key)
		})
	}
}

func TestParse_NullExclusionsAreAbsent(t *testing.T) {
	cfg, err := Parse([]byte("apps_exclude:\ntables_exclude:\n"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Exclusions.ExcludedGroups)
	assert.Nil(t, cfg.Exclusions.ExcludedTypes)
}

func TestLoadFile_WrapsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("apps_exclude: 3\n"), 0644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.ErrorIs(t, err, dbfill.ErrInvalidConfig)
}

type warnLogger struct {
	warns []string
}

func (l *warnLogger) Verbose(format string, args ...interface{}) {}
func (l *warnLogger) Info(format string, args ...interface{}) {}
func (l *warnLogger) Error(format string, args ...interface{}) {}
func (l *warnLogger) Warn(format string, args ...interface{}) {
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}
