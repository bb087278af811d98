package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/vvka-141/dbfill/internal/parser"
	"github.com/vvka-141/dbfill/pkg/dbfill"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print the entity types that survive exclusion",
	Long: `Tables prints the surviving set: every entity type that parse would export,
grouped and in registry order. Relations are not checked.

Examples:
  dbfill tables -d shop
  dbfill tables --schema-file schema.yaml --json`,
	Args: cobra.NoArgs,
	RunE: runTables,
}

type tablesFlagValues struct {
	source  sourceFlags
	json    bool
	timeout time.Duration
}

var tablesFlags tablesFlagValues

func init() {
	rootCmd.AddCommand(tablesCmd)
	addSourceFlags(tablesCmd, &tablesFlags.source)

	tablesCmd.Flags().BoolVar(&tablesFlags.json, "json", false,
		"Print a JSON object mapping each group to its entity types")
	tablesCmd.Flags().DurationVar(&tablesFlags.timeout, "timeout", defaultTimeout,
		"Catastrophic failure protection timeout")
}

func runTables(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd, getVerboseFlag(cmd))

	ctx, cancel := commandContext(cmd, tablesFlags.timeout)
	defer cancel()

	s, err := openSession(ctx, &tablesFlags.source, logger)
	if err != nil {
		return err
	}

	sel, err := parser.New(s.registry, parser.Options{
		Overrides: s.config.Exclusions,
		Logger:    logger,
	}).Tables()
	if err != nil {
		return err
	}

	if tablesFlags.json {
		return writeTablesJSON(cmd.OutOrStdout(), sel)
	}
	writeTablesText(cmd.OutOrStdout(), sel)
	return nil
}

// writeTablesText prints each group followed by its indented entity types.
func writeTablesText(w io.Writer, sel *parser.Selection) {
	for _, g := range sel.Groups() {
		fmt.Fprintln(w, g.Group)
		for _, et := range g.Types {
			fmt.Fprintf(w, "  %s\n", et.Type)
		}
	}
}

func writeTablesJSON(w io.Writer, sel *parser.Selection) error {
	out := dbfill.NewOrderedMap[[]dbfill.TypeID]()
	for _, g := range sel.Groups() {
		types := make([]dbfill.TypeID, 0, len(g.Types))
		for _, et := range g.Types {
			types = append(types, et.Type)
		}
		out.Set(g.Group, types)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
