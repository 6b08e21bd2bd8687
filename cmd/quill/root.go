package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/timmy/quill/internal/config"
	"github.com/timmy/quill/internal/logger"
)

// Global flag values.
var (
	configPath string
	logLevel   string
)

// rootCmd is the base command for quill.
var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Generate long-form articles from a topic and a thesis",
	Long: `Quill drafts long-form articles through an outline, full text, length
correction and SEO scoring pipeline backed by OpenAI or Anthropic models.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logger.SetDefaultLogger(logger.New(&logger.Config{
			Level:       logLevel,
			Format:      "text",
			Output:      cmd.ErrOrStderr(),
			ServiceName: "quill-cli",
		}))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(modelsCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
