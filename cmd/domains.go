package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cdmschema/cdmschema/internal/engine"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List vocabulary domains and their standard concept counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("vocabulary") {
			cfg.Inputs.Vocabulary = convertVocabulary
		}

		ix, err := engine.New(cfg, logger).LoadVocabulary(cmd.Context())
		if err != nil {
			return err
		}
		if ix == nil {
			return fmt.Errorf("no vocabulary available")
		}

		enums := ix.Enumerations()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DOMAIN\tCONCEPTS")
		for _, d := range ix.Domains() {
			fmt.Fprintf(tw, "%s\t%d\n", d, len(enums[d]))
		}
		return tw.Flush()
	},
}

func init() {
	domainsCmd.Flags().StringVar(&convertVocabulary, "vocabulary", "", "tab-delimited CONCEPT file (default from config)")
	rootCmd.AddCommand(domainsCmd)
}
