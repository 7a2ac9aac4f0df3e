package main

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/hairscan/internal/advice"
	"github.com/Brownie44l1/hairscan/internal/config"
	"github.com/Brownie44l1/hairscan/internal/imageprep"
	"github.com/Brownie44l1/hairscan/internal/metrics"
	"github.com/Brownie44l1/hairscan/internal/model"
	"github.com/Brownie44l1/hairscan/internal/pipeline"
)

var (
	version = "v0.1.0" // Overwritten at build time
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Default()

	rootCmd := &cobra.Command{
		Use:   "hairscan",
		Short: "Hair and scalp condition classifier",
		Long: `hairscan classifies a photo of the scalp with a pre-trained ONNX model and
shows the predicted condition together with remedies and cautions.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return cfg.SetupLogging()
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Path to the ONNX model")
	flags.StringVar(&cfg.MetadataPath, "metadata", cfg.MetadataPath, "Path to the model metadata JSON (optional)")
	flags.StringVar(&cfg.OnnxLibraryPath, "onnxruntime-lib", cfg.OnnxLibraryPath, "Path to the onnxruntime shared library")
	flags.StringVar(&cfg.AdviceFile, "advice-file", cfg.AdviceFile, "YAML file with remedies and cautions merged over the built-in table")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of model sessions running inference concurrently")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")

	rootCmd.AddCommand(
		newServeCmd(&cfg),
		newPredictCmd(&cfg),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hairscan version %s\n", version)
		},
	}
}

// resolvePath makes a relative path relative to the project root, so the
// binary behaves the same when started from cmd/server.
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	execPath, err := os.Getwd()
	if err != nil {
		return path
	}
	if filepath.Base(execPath) == "server" {
		execPath = filepath.Join(execPath, "../..")
	}
	return filepath.Join(execPath, path)
}

// loadModel records the outcome in the model_loaded gauge. The caller decides
// whether a failure is fatal.
func loadModel(cfg *config.Config) (*model.Server, error) {
	modelPath := resolvePath(cfg.ModelPath)
	log.Infof("Loading model from: %s", modelPath)

	srv, err := model.NewServer(model.Options{
		ModelPath:    modelPath,
		MetadataPath: resolvePath(cfg.MetadataPath),
		LibraryPath:  cfg.OnnxLibraryPath,
		Workers:      cfg.Workers,
	})
	if err != nil {
		metrics.ModelLoaded.Set(0)
		return nil, err
	}
	metrics.ModelLoaded.Set(1)
	return srv, nil
}

// buildPipeline wires the preprocessing, classifier and advice table around
// srv. A nil srv yields a pipeline that reports the model as unavailable.
func buildPipeline(cfg *config.Config, srv *model.Server) (*pipeline.Pipeline, error) {
	var (
		predictor model.Predictor
		metadata  model.Metadata
	)
	if srv != nil {
		predictor = srv
		metadata = srv.Metadata
	} else {
		m, err := model.LoadMetadata(resolvePath(cfg.MetadataPath))
		if err != nil {
			log.WithError(err).Warn("falling back to default metadata")
			m = model.DefaultMetadata()
		}
		metadata = m
	}

	table := advice.Default()
	if cfg.AdviceFile != "" {
		t, err := advice.LoadFile(resolvePath(cfg.AdviceFile))
		if err != nil {
			return nil, err
		}
		table = t
	}
	if missing := table.Missing(metadata.Classes); len(missing) > 0 {
		log.Warnf("No advice for classes: %v", missing)
	}

	prep := imageprep.New(metadata.ImageSize, metadata.ImageSize)
	return pipeline.New(prep, model.NewClassifier(predictor, metadata.Classes), table, cfg.CacheSize)
}
