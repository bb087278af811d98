package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/vvka-141/dbfill/internal/config"
	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Password is not a CLI flag. Use $PGPASSWORD or a connection string.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty returns true if no connection-related granular flags were provided by the user.
// Database is not checked because -d may override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == ""
}

// CloudFlags selects cloud IAM authentication from the CLI.
// At most one of AWS, Azure and Google may be set.
type CloudFlags struct {
	AWS       bool
	AWSRegion string // Overrides AWS_REGION

	Azure         bool
	AzureTenantID string // Overrides AZURE_TENANT_ID
	AzureClientID string // Overrides AZURE_CLIENT_ID

	Google         bool
	GoogleInstance string
}

func (c *CloudFlags) selected() int {
	n := 0
	for _, on := range []bool{c.AWS, c.Azure, c.Google} {
		if on {
			n++
		}
	}
	return n
}

// EnvVars represents PostgreSQL standard environment variables.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST       string
	PGPORT       string
	PGUSER       string
	PGPASSWORD   string
	PGDATABASE   string
	PGSSLMODE    string
	DATABASE_URL string // Full connection string (Heroku/Rails convention)

	AWS_REGION string

	// Azure SDK standard names
	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string // Service Principal secret; never a flag
}

// LoadFromEnvironment loads PostgreSQL and cloud provider environment variables.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// HasAzureCredentials returns true if Azure Entra ID environment variables are set.
func (e *EnvVars) HasAzureCredentials() bool {
	return e.AZURE_TENANT_ID != "" || e.AZURE_CLIENT_ID != ""
}

// ResolveConnectionParams resolves connection parameters using PostgreSQL-standard precedence:
//
//  1. Connection string flag (--connection), with -d overriding its database
//  2. DATABASE_URL, when no granular flags are given
//  3. Per parameter: granular flag > PG* environment variable > dbfill.yaml > default
//
// The authentication method is chosen by the cloud flags, then by
// connection.auth_method in dbfill.yaml, then by the presence of Azure
// environment credentials; standard authentication otherwise.
//
// Giving both --connection and granular flags is an error.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	cloudFlags *CloudFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*dbfill.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if cloudFlags == nil {
		cloudFlags = &CloudFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U)\n" +
				"Choose one approach:\n" +
				"  1. Connection string: --connection \"postgresql://user@localhost:5432/app\"\n" +
				"  2. Granular flags: -h localhost -p 5432 -U myuser -d app\n" +
				"  3. Environment variables: export PGHOST=localhost PGPORT=5432 PGUSER=myuser",
		)
	}
	if cloudFlags.selected() > 1 {
		return nil, fmt.Errorf("--aws, --azure and --google are mutually exclusive")
	}

	var cfg *dbfill.ConnectionConfig
	var err error
	switch {
	case connStringFlag != "":
		cfg, err = resolveFromConnectionString(connStringFlag, granularFlags.Database, envVars)
	case granularFlags.IsEmpty() && envVars.DATABASE_URL != "":
		cfg, err = resolveFromConnectionString(envVars.DATABASE_URL, granularFlags.Database, envVars)
	default:
		cfg, err = resolveFromGranularParams(granularFlags, envVars, pc)
	}
	if err != nil {
		return nil, err
	}

	if err := applyAuth(cfg, cloudFlags, envVars, pc); err != nil {
		return nil, err
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func applyAuth(cfg *dbfill.ConnectionConfig, flags *CloudFlags, env *EnvVars, pc config.ConnectionConfig) error {
	method := dbfill.AuthMethodStandard
	switch {
	case flags.AWS:
		method = dbfill.AuthMethodAWSIAM
	case flags.Azure:
		method = dbfill.AuthMethodAzureEntraID
	case flags.Google:
		method = dbfill.AuthMethodGoogleIAM
	case pc.AuthMethod != "":
		m, err := dbfill.ParseAuthMethod(pc.AuthMethod)
		if err != nil {
			return &dbfill.InvalidConfigError{Key: "connection.auth_method", Reason: err.Error()}
		}
		method = m
	case env.HasAzureCredentials():
		method = dbfill.AuthMethodAzureEntraID
	}
	cfg.AuthMethod = method

	switch method {
	case dbfill.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	case dbfill.AuthMethodAzureEntraID:
		cfg.AzureTenantID = firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case dbfill.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	}
	return nil
}

// resolveFromConnectionString parses a connection string. A non-empty
// database overrides the one in the string; PGSSLMODE fills a missing sslmode.
func resolveFromConnectionString(connStr, database string, envVars *EnvVars) (*dbfill.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, &dbfill.InvalidConfigError{Key: "connection", Reason: err.Error()}
	}

	if database != "" {
		cfg.Database = database
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = firstNonEmpty(envVars.PGSSLMODE, DefaultSSLMode)
	}
	return cfg, nil
}

// resolveFromGranularParams builds the config parameter by parameter:
// CLI flag, then environment variable, then dbfill.yaml, then default.
func resolveFromGranularParams(flags *GranularConnFlags, envVars *EnvVars, pc config.ConnectionConfig) (*dbfill.ConnectionConfig, error) {
	cfg := &dbfill.ConnectionConfig{
		AuthMethod:       dbfill.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	cfg.Host = firstNonEmpty(flags.Host, envVars.PGHOST, pc.Host, DefaultHost)

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case envVars.PGPORT != "":
		port, err := strconv.Atoi(envVars.PGPORT)
		if err != nil {
			return nil, &dbfill.InvalidConfigError{Key: "PGPORT", Reason: fmt.Sprintf("must be an integer, got %q", envVars.PGPORT)}
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = DefaultPort
	}

	// Username falls back to the current OS user, as libpq does.
	cfg.Username = firstNonEmpty(flags.Username, envVars.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = envVars.PGPASSWORD
	cfg.Database = firstNonEmpty(flags.Database, envVars.PGDATABASE, pc.Database, dbfill.DefaultDatabase)
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, DefaultSSLMode)
	cfg.SSLCert = pc.SSLCert
	cfg.SSLKey = pc.SSLKey
	cfg.SSLRootCert = pc.SSLRootCert

	return cfg, nil
}
