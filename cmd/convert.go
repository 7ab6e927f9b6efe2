package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/cdmschema/cdmschema/internal/engine"
)

var (
	convertFields     string
	convertVocabulary string
	convertOutput     string
	convertDryRun     bool
	convertTables     []string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Generate one JSON Schema per CDM table",
	Long: `Read the field-level metadata CSV, optionally index the CONCEPT vocabulary,
and write <TABLE>.schema.json for every table into the output directory.

A missing or unreadable vocabulary is not fatal: schemas are written without
oneOf enumerations.`,
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("fields") {
		cfg.Inputs.FieldMetadata = convertFields
	}
	if flags.Changed("vocabulary") {
		cfg.Inputs.Vocabulary = convertVocabulary
	}
	if flags.Changed("output") {
		cfg.Output.Directory = convertOutput
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	e := engine.New(cfg, logger)
	e.Reporter = &consoleReporter{w: cmd.OutOrStdout()}

	summary, err := e.Convert(ctx, engine.Options{
		Tables: convertTables,
		DryRun: convertDryRun,
	})
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), summary)
	return nil
}

func addConvertFlags(c *cobra.Command) {
	c.Flags().StringVar(&convertFields, "fields", "", "field-level metadata CSV (default from config)")
	c.Flags().StringVar(&convertVocabulary, "vocabulary", "", "tab-delimited CONCEPT file (default from config)")
	c.Flags().StringVar(&convertOutput, "output", "", "output directory for schema files (default from config)")
	c.Flags().BoolVar(&convertDryRun, "dry-run", false, "build schemas without writing files")
	c.Flags().StringArrayVar(&convertTables, "table", nil, "only generate this table (repeatable)")
}

func init() {
	addConvertFlags(convertCmd)
	rootCmd.AddCommand(convertCmd)
}
