package cli

import (
	"os"

	"github.com/vvka-141/dbfill/internal/config"
	"github.com/vvka-141/dbfill/internal/db"
	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// ConnectionStringEnv names the environment variable read when --connection is not given.
const ConnectionStringEnv = "DBFILL_CONNECTION_STRING"

// resolveConnection resolves the connection configuration from flags,
// environment and dbfill.yaml, and logs the result in verbose mode.
func resolveConnection(flags connectionFlags, projectConfig *config.ProjectConfig, logger dbfill.Logger) (*dbfill.ConnectionConfig, error) {
	connString := flags.connection
	if connString == "" {
		connString = os.Getenv(ConnectionStringEnv)
	}

	connConfig, err := db.ResolveConnectionParams(
		connString,
		&db.GranularConnFlags{
			Host:     flags.host,
			Port:     flags.port,
			Username: flags.username,
			Database: flags.database,
			SSLMode:  flags.sslMode,
		},
		&db.CloudFlags{
			AWS:            flags.aws,
			AWSRegion:      flags.awsRegion,
			Azure:          flags.azure,
			AzureTenantID:  flags.azureTenantID,
			AzureClientID:  flags.azureClientID,
			Google:         flags.google,
			GoogleInstance: flags.googleInstance,
		},
		db.LoadFromEnvironment(),
		projectConfig,
	)
	if err != nil {
		return nil, err
	}

	logConnectionVerbose(logger, connConfig)
	return connConfig, nil
}

// logConnectionVerbose logs connection details when verbose mode is enabled.
func logConnectionVerbose(logger dbfill.Logger, c *dbfill.ConnectionConfig) {
	logger.Verbose("Connection resolved: host=%s port=%d user=%s database=%s sslmode=%s auth=%s",
		c.Host, c.Port, c.Username, c.Database, c.SSLMode, c.AuthMethod)
	if c.SSLRootCert != "" {
		logger.Verbose("SSL root cert: %s", c.SSLRootCert)
	}
	if c.SSLCert != "" {
		logger.Verbose("SSL client cert: %s (key %s)", c.SSLCert, c.SSLKey)
	}
}
