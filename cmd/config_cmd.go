package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cdmschema/cdmschema/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View, validate, and initialise cdmschema configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display effective config as YAML (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		shown.Vocabulary.Postgres.ConnectionString = maskSecret(shown.Vocabulary.Postgres.ConnectionString)

		data, err := yaml.Marshal(&shown)
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		problems := cfg.Validate()
		if len(problems) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Validation errors:")
			for _, p := range problems {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", p)
			}
			return fmt.Errorf("%d validation error(s)", len(problems))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	// the file to be written need not exist yet
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
		return nil
	},
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
