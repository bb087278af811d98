package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vvka-141/dbfill/internal/config"
	"github.com/vvka-141/dbfill/internal/db"
	"github.com/vvka-141/dbfill/internal/registry"
	"github.com/vvka-141/dbfill/internal/registry/postgres"
	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// sourceFlags holds the flags shared by every command that reads a registry.
type sourceFlags struct {
	configPath string
	source     string
	schemaFile string
	schemas    []string
	actor      string
	conn       connectionFlags
}

// connectionFlags holds the common connection-related flag values.
type connectionFlags struct {
	connection     string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	azure          bool
	azureTenantID  string
	azureClientID  string
	aws            bool
	awsRegion      string
	google         bool
	googleInstance string
}

func addSourceFlags(cmd *cobra.Command, f *sourceFlags) {
	flags := cmd.Flags()

	flags.StringVar(&f.configPath, "config", "",
		"Path to the configuration file (default: ./"+config.ConfigFileName+" when present)")
	flags.StringVar(&f.source, "source", "",
		"Schema registry source: postgres|file (overrides registry.source)")
	flags.StringVar(&f.schemaFile, "schema-file", "",
		"Read the schema registry from a YAML schema file instead of PostgreSQL")
	flags.StringSliceVar(&f.schemas, "schema", nil,
		"PostgreSQL schema to introspect (can be specified multiple times; default: all user schemas)")
	flags.StringVar(&f.actor, "actor", "",
		"Principal entity type as group.type, kept even when its group is excluded")

	flags.StringVar(&f.conn.connection, "connection", "",
		"PostgreSQL connection string (URI or ADO.NET format).\n"+
			"Mutually exclusive with granular flags (--host, --port, --username).\n"+
			"Alternative: Use DBFILL_CONNECTION_STRING or DATABASE_URL environment variable.")
	flags.StringVarP(&f.conn.host, "host", "h", "",
		"PostgreSQL server host\n"+
			"Precedence: --host > $PGHOST > connection.host > localhost")
	flags.IntVarP(&f.conn.port, "port", "p", 0,
		"PostgreSQL server port\n"+
			"Precedence: --port > $PGPORT > connection.port > 5432")
	flags.StringVarP(&f.conn.username, "username", "U", "",
		"PostgreSQL user (default: $PGUSER or current OS user)")
	flags.StringVarP(&f.conn.database, "database", "d", "",
		"Database to introspect (overrides the connection string database, or $PGDATABASE)")
	flags.StringVar(&f.conn.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: prefer, or $PGSSLMODE)")

	flags.BoolVar(&f.conn.aws, "aws", false, "Enable AWS IAM database authentication")
	flags.StringVar(&f.conn.awsRegion, "aws-region", "", "AWS region (overrides $AWS_REGION)")
	flags.BoolVar(&f.conn.azure, "azure", false,
		"Enable Azure Entra ID authentication\n"+
			"Uses DefaultAzureCredential chain (Managed Identity, Azure CLI, etc.)")
	flags.StringVar(&f.conn.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	flags.StringVar(&f.conn.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")
	flags.BoolVar(&f.conn.google, "google", false, "Enable Google Cloud SQL IAM authentication")
	flags.StringVar(&f.conn.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")

	_ = cmd.RegisterFlagCompletionFunc("sslmode", completeSSLModes)
	_ = cmd.RegisterFlagCompletionFunc("source", completeRegistrySources)
	_ = cmd.RegisterFlagCompletionFunc("config", completeYAMLFiles)
	_ = cmd.RegisterFlagCompletionFunc("schema-file", completeYAMLFiles)
}

// loadProjectConfig loads godotenv and project configuration.
// Without --config a missing dbfill.yaml means the default configuration;
// an explicit --config path must exist.
func loadProjectConfig(configPath string) (*config.ProjectConfig, string, error) {
	_ = godotenv.Load()

	if configPath == "" {
		cfg, err := config.Load(".")
		if errors.Is(err, config.ErrConfigNotFound) {
			return &config.ProjectConfig{}, ".", nil
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
		}
		return cfg, ".", nil
	}

	cfg, err := config.LoadFile(configPath)
	if errors.Is(err, config.ErrConfigNotFound) {
		return nil, "", &dbfill.InvalidConfigError{Key: "config", Reason: fmt.Sprintf("file %s does not exist", configPath)}
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load %s: %w", configPath, err)
	}
	return cfg, filepath.Dir(configPath), nil
}

// session is the configuration and registry snapshot of one command run.
type session struct {
	config   *config.ProjectConfig
	registry *registry.Snapshot
	logger   dbfill.Logger
}

// openSession loads the configuration and takes the registry snapshot.
func openSession(ctx context.Context, f *sourceFlags, logger dbfill.Logger) (*session, error) {
	cfg, baseDir, err := loadProjectConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	cfg.WarnUnknownKeys(logger)

	actor, err := resolveActor(f.actor, cfg.Registry.Actor)
	if err != nil {
		return nil, err
	}

	var snap *registry.Snapshot
	switch source, path := resolveSource(f, cfg, baseDir); source {
	case config.SourceFile:
		snap, err = loadSchemaFile(path, actor, logger)
	case config.SourcePostgres:
		schemas := f.schemas
		if len(schemas) == 0 {
			schemas = cfg.Registry.Schemas
		}
		snap, err = introspect(ctx, f.conn, cfg, postgres.Options{Schemas: schemas, Actor: actor}, logger)
	default:
		err = &dbfill.InvalidConfigError{
			Key:    "source",
			Reason: fmt.Sprintf("must be %q or %q, got %q", config.SourcePostgres, config.SourceFile, source),
		}
	}
	if err != nil {
		return nil, err
	}

	logger.Verbose("Registry snapshot: %d group(s), %d entity type(s)", len(snap.Groups()), snap.Len())
	return &session{config: cfg, registry: snap, logger: logger}, nil
}

// resolveSource picks the registry source: --schema-file, then --source,
// then registry.source (postgres by default). Relative registry.path values
// are resolved against the configuration file's directory.
func resolveSource(f *sourceFlags, cfg *config.ProjectConfig, baseDir string) (string, string) {
	if f.schemaFile != "" {
		return config.SourceFile, f.schemaFile
	}
	source := f.source
	if source == "" {
		source = cfg.Registry.Source
	}
	if source == "" {
		source = config.SourcePostgres
	}
	path := cfg.Registry.Path
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return source, path
}

func resolveActor(flagActor, configActor string) (*dbfill.TypeRef, error) {
	key, value := "actor", flagActor
	if value == "" {
		key, value = "registry.actor", configActor
	}
	if value == "" {
		return nil, nil
	}
	ref, err := dbfill.ParseTypeRef(value)
	if err != nil {
		return nil, &dbfill.InvalidConfigError{Key: key, Reason: err.Error()}
	}
	return &ref, nil
}

func loadSchemaFile(path string, actor *dbfill.TypeRef, logger dbfill.Logger) (*registry.Snapshot, error) {
	if path == "" {
		return nil, &dbfill.InvalidConfigError{Key: "schema-file", Reason: "a schema file path is required for the file source"}
	}
	logger.Verbose("Loading schema file %s", path)

	snap, err := registry.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if actor != nil {
		return snap.WithActor(*actor)
	}
	return snap, nil
}

func introspect(ctx context.Context, flags connectionFlags, cfg *config.ProjectConfig, opts postgres.Options, logger dbfill.Logger) (*registry.Snapshot, error) {
	connConfig, err := resolveConnection(flags, cfg, logger)
	if err != nil {
		return nil, err
	}

	connector, err := db.NewConnector(connConfig, logger)
	if err != nil {
		return nil, err
	}
	if closer, ok := connector.(io.Closer); ok {
		defer closer.Close()
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	logger.Verbose("Introspecting %s on %s:%d", connConfig.Database, connConfig.Host, connConfig.Port)
	return postgres.Introspect(ctx, pool, opts)
}
