// Package config loads the dbfill.yaml project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vvka-141/dbfill/internal/exclusion"
	"github.com/vvka-141/dbfill/pkg/dbfill"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type ConnectionConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode"`
	SSLCert        string `yaml:"sslcert,omitempty"`
	SSLKey         string `yaml:"sslkey,omitempty"`
	SSLRootCert    string `yaml:"sslrootcert,omitempty"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

// Registry sources.
const (
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

// RegistryConfig selects where the schema registry is read from.
type RegistryConfig struct {
	Source  string   `yaml:"source"`  // "postgres" (default) or "file"
	Path    string   `yaml:"path"`    // Schema file for source "file"
	Schemas []string `yaml:"schemas"` // Limits PostgreSQL introspection
	Actor   string   `yaml:"actor"`   // group.type of the principal entity type
}

type ProjectConfig struct {
	Connection    ConnectionConfig `yaml:"connection"`
	Registry      RegistryConfig   `yaml:"registry"`
	CacheDir      string           `yaml:"cache_dir"`
	CacheFilename string           `yaml:"cache_filename"`

	// Exclusions holds apps_exclude and tables_exclude, validated for shape.
	Exclusions exclusion.Overrides `yaml:"-"`
	// UnknownKeys lists unrecognized top-level keys, sorted.
	UnknownKeys []string `yaml:"-"`
}

const ConfigFileName = dbfill.DefaultConfigFileName

var knownKeys = map[string]bool{
	exclusion.KeyAppsExclude:   true,
	exclusion.KeyTablesExclude: true,
	"cache_dir":                true,
	"cache_filename":           true,
	"connection":               true,
	"registry":                 true,
}

// Load reads dbfill.yaml from the directory sourcePath.
func Load(sourcePath string) (*ProjectConfig, error) {
	return LoadFile(filepath.Join(sourcePath, ConfigFileName))
}

// LoadFile reads a configuration file.
func LoadFile(configPath string) (*ProjectConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document. An empty document is the
// default configuration.
func Parse(data []byte) (*ProjectConfig, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", dbfill.ErrInvalidConfig, err)
	}

	overrides, err := exclusion.ParseOverrides(raw)
	if err != nil {
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", dbfill.ErrInvalidConfig, err)
	}
	cfg.Exclusions = overrides

	for key := range raw {
		if !knownKeys[key] {
			cfg.UnknownKeys = append(cfg.UnknownKeys, key)
		}
	}
	sort.Strings(cfg.UnknownKeys)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ProjectConfig) validate() error {
	if c.CacheFilename != "" && strings.ContainsAny(c.CacheFilename, `/\`) {
		return &dbfill.InvalidConfigError{Key: "cache_filename", Reason: "must be a file name, not a path"}
	}
	switch c.Registry.Source {
	case "", SourcePostgres:
	case SourceFile:
		if c.Registry.Path == "" {
			return &dbfill.InvalidConfigError{Key: "registry.path", Reason: "is required when registry.source is \"file\""}
		}
	default:
		return &dbfill.InvalidConfigError{
			Key:    "registry.source",
			Reason: fmt.Sprintf("must be %q or %q, got %q", SourcePostgres, SourceFile, c.Registry.Source),
		}
	}
	if c.Registry.Actor != "" {
		if _, err := dbfill.ParseTypeRef(c.Registry.Actor); err != nil {
			return &dbfill.InvalidConfigError{Key: "registry.actor", Reason: err.Error()}
		}
	}
	return nil
}

// WarnUnknownKeys logs one warning per unrecognized top-level key.
func (c *ProjectConfig) WarnUnknownKeys(logger dbfill.Logger) {
	for _, key := range c.UnknownKeys {
		logger.Warn("Unknown configuration key %q is ignored", key)
	}
}
