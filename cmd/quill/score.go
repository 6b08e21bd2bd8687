package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timmy/quill/internal/scoring"
)

var (
	scoreFile     string
	scoreKeywords []string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a markdown article and print recommendations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, err := os.ReadFile(scoreFile)
		if err != nil {
			return fmt.Errorf("read article: %w", err)
		}
		keywords := make([]string, 0, len(scoreKeywords))
		for _, k := range scoreKeywords {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		return printJSON(cmd.OutOrStdout(), scoring.Score(string(b), keywords))
	},
}

func init() {
	scoreCmd.Flags().StringVarP(&scoreFile, "file", "f", "", "markdown file to score")
	scoreCmd.Flags().StringSliceVarP(&scoreKeywords, "keywords", "k", nil, "comma-separated keywords")
	_ = scoreCmd.MarkFlagRequired("file")
}
