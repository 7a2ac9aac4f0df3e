package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/hairscan/internal/config"
	"github.com/Brownie44l1/hairscan/internal/formatter"
	"github.com/Brownie44l1/hairscan/internal/imageprep"
)

func newPredictCmd(cfg *config.Config) *cobra.Command {
	var (
		outputFormat string
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "predict IMAGE",
		Short: "Classify a local image file",
		Long: `Run the model on a single image and print the predicted condition.

Examples:
  hairscan predict scalp.jpg
  hairscan predict scalp.jpg -o json
  hairscan predict scalp.jpg -v`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd.Context(), cfg, args[0], outputFormat, verbose)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "human", "Output format (human, json, yaml)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the score of every class")

	return cmd
}

func runPredict(ctx context.Context, cfg *config.Config, path, outputFormat string, verbose bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	var s *spinner.Spinner
	if outputFormat == "human" {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " Loading model and classifying..."
		s.Start()
	}
	stop := func() {
		if s != nil {
			s.Stop()
		}
	}

	modelServer, err := loadModel(cfg)
	if err != nil {
		stop()
		return err
	}
	defer modelServer.Close()

	p, err := buildPipeline(cfg, modelServer)
	if err != nil {
		stop()
		return err
	}

	res, err := p.Run(ctx, imageprep.Upload{Filename: filepath.Base(path), Data: data})
	stop()
	if err != nil {
		return err
	}

	return formatter.DisplayResult(os.Stdout, res, outputFormat, verbose)
}
