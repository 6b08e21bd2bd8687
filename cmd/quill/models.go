package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/timmy/quill/internal/llm"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models the configured providers can serve",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		models := llm.NewRouterFromConfig(&cfg.Providers).ListAvailableModels()
		if modelsJSON {
			return printJSON(cmd.OutOrStdout(), models)
		}
		if len(models) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no provider configured")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPROVIDER")
		for _, m := range models {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Category, m.Family)
		}
		return w.Flush()
	},
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "print JSON")
}
