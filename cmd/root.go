package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cdmschema/cdmschema/internal/config"
	"github.com/cdmschema/cdmschema/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

// set up by PersistentPreRunE for every subcommand
var (
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "cdmschema",
	Short: "Convert OMOP CDM field metadata into JSON Schema documents",
	Long: `cdmschema converts OMOP CDM field-level metadata into one JSON Schema
(draft-07) document per CDM table. When a CONCEPT vocabulary is available,
foreign keys into CONCEPT carry the domain's standard concepts as oneOf.

Running without a subcommand performs the conversion with the configured
defaults.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runConvert,
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	logger, logCloser, err = logging.Setup(cfg.Logging.Level, cfg.Logging.Directory, os.Stdout)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	return nil
}

// execute runs the command tree and closes the log file afterwards. Cobra
// skips post-run hooks when RunE fails, so this cannot live in one.
func execute() error {
	err := rootCmd.Execute()
	if cerr := closeLog(); err == nil && cerr != nil {
		err = fmt.Errorf("closing log: %w", cerr)
	}
	return err
}

func closeLog() error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./"+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	addConvertFlags(rootCmd)
}
