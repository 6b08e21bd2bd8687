package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/timmy/quill/internal/app"
	"github.com/timmy/quill/internal/domain"
	"github.com/timmy/quill/internal/service"
)

var (
	genTopic     string
	genThesis    string
	genStyleFile string
	genLength    int
	genModel     string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one article and print the finished record as JSON",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genTopic, "topic", "", "article topic")
	generateCmd.Flags().StringVar(&genThesis, "thesis", "", "main thesis of the article")
	generateCmd.Flags().StringVar(&genStyleFile, "style-file", "", "file with style examples")
	generateCmd.Flags().IntVar(&genLength, "length", domain.DefaultTargetLength, "target length in characters")
	generateCmd.Flags().StringVar(&genModel, "model", "", "model identifier (default from config)")
	_ = generateCmd.MarkFlagRequired("topic")
	_ = generateCmd.MarkFlagRequired("thesis")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var style string
	if genStyleFile != "" {
		b, err := os.ReadFile(genStyleFile)
		if err != nil {
			return fmt.Errorf("read style file: %w", err)
		}
		style = string(b)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.Close(closeCtx)
	}()

	article, err := a.Orchestrator.Generate(ctx, service.SubmitRequest{
		Topic:         genTopic,
		Thesis:        genThesis,
		StyleExamples: style,
		TargetLength:  genLength,
		Model:         genModel,
	})
	if err != nil {
		return err
	}
	res, err := a.Orchestrator.Result(context.WithoutCancel(ctx), article.ID)
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if article.Status == domain.JobStatusFailed {
		return fmt.Errorf("generation failed: %s", article.ErrorMessage)
	}
	return nil
}
