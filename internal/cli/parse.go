package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vvka-141/dbfill/internal/cache"
	"github.com/vvka-141/dbfill/internal/config"
	"github.com/vvka-141/dbfill/internal/parser"
	"github.com/vvka-141/dbfill/internal/report"
	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// defaultTimeout bounds a whole run; introspection is the only slow part.
const defaultTimeout = 3 * time.Minute

var parseCmd = &cobra.Command{
	Use:     "parse",
	Aliases: []string{"run"},
	Short:   "Write the parsed cache",
	Long: `Parse takes a schema registry snapshot, applies the exclusions of dbfill.yaml
and writes the surviving entity types to the parsed cache.

The registry is read from PostgreSQL (schemas are groups, tables are entity
types) unless --schema-file or registry.source: file selects a YAML schema file.

Exclusions (dbfill.yaml):
  apps_exclude:    [group, ...]            added to the built-in exclusions
  tables_exclude:  {group: [type, ...]}    excluded entity types per group

A foreign key into an excluded entity type is a relation conflict: nothing is
written and dbfill exits with code 15. A many-to-many relation into an
excluded entity type is dropped with a [WARNING] line.

Password Authentication:
  Password is NOT accepted as a CLI flag. Use $PGPASSWORD, a .pgpass file,
  or the connection string.

Examples:
  # Introspect a local database
  dbfill parse -d shop

  # Use a schema file and print the cache instead of writing it
  dbfill parse --schema-file schema.yaml --dry-run

  # Write to a custom location
  dbfill parse -d shop --cache-dir build --cache-filename shop.json`,
	Args: cobra.NoArgs,
	RunE: runParse,
}

type parseFlagValues struct {
	source        sourceFlags
	cacheDir      string
	cacheFilename string
	workers       int
	dryRun        bool
	timeout       time.Duration
}

var parseFlags parseFlagValues

func init() {
	rootCmd.AddCommand(parseCmd)
	addSourceFlags(parseCmd, &parseFlags.source)

	parseCmd.Flags().StringVar(&parseFlags.cacheDir, "cache-dir", "",
		"Directory of the parsed cache (overrides cache_dir; default: working directory)")
	parseCmd.Flags().StringVar(&parseFlags.cacheFilename, "cache-filename", "",
		"File name of the parsed cache (overrides cache_filename; default: "+dbfill.DefaultCacheFilename+")")
	parseCmd.Flags().IntVar(&parseFlags.workers, "workers", 1,
		"Number of entity types classified in parallel; output is identical for any value")
	parseCmd.Flags().BoolVar(&parseFlags.dryRun, "dry-run", false,
		"Print the parsed cache to stdout instead of writing it")
	parseCmd.Flags().DurationVar(&parseFlags.timeout, "timeout", defaultTimeout,
		"Catastrophic failure protection timeout\n"+
			"Examples: 30s, 5m")

	_ = parseCmd.RegisterFlagCompletionFunc("cache-dir", completeDirectories)
}

func runParse(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd, getVerboseFlag(cmd))

	if parseFlags.workers < 1 {
		return &dbfill.InvalidConfigError{Key: "workers", Reason: fmt.Sprintf("must be at least 1, got %d", parseFlags.workers)}
	}

	ctx, cancel := commandContext(cmd, parseFlags.timeout)
	defer cancel()

	s, err := openSession(ctx, &parseFlags.source, logger)
	if err != nil {
		return err
	}

	writer, err := cacheWriter(parseFlags.cacheDir, parseFlags.cacheFilename, s.config)
	if err != nil {
		return err
	}

	p := parser.New(s.registry, parser.Options{
		Overrides: s.config.Exclusions,
		Sink:      report.NewLoggerSink(logger),
		Logger:    logger,
		Workers:   parseFlags.workers,
		Writer:    writer,
	})

	if parseFlags.dryRun {
		m, err := p.Build(ctx)
		if err != nil {
			return fmt.Errorf("parse failed: %w", err)
		}
		return cache.Encode(cmd.OutOrStdout(), m)
	}

	if _, err := p.Parse(ctx); err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}
	return nil
}

// cacheWriter applies flag > dbfill.yaml > default for the cache location.
func cacheWriter(flagDir, flagFilename string, cfg *config.ProjectConfig) (*cache.Writer, error) {
	if strings.ContainsAny(flagFilename, `/\`) {
		return nil, &dbfill.InvalidConfigError{Key: "cache-filename", Reason: "must be a file name, not a path"}
	}
	dir, filename := flagDir, flagFilename
	if dir == "" {
		dir = cfg.CacheDir
	}
	if filename == "" {
		filename = cfg.CacheFilename
	}
	return cache.NewWriter(dir, filename), nil
}

// commandContext bounds a run by timeout and cancels it on Ctrl+C or SIGTERM.
func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancelTimeout := context.WithTimeout(parent, timeout)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancelTimeout()
	}
}
