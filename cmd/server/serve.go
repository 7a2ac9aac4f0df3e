package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/hairscan/internal/config"
	"github.com/Brownie44l1/hairscan/internal/handlers"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web front-end",
		Long: `Serve the upload form and prediction endpoints.

If the model cannot be loaded the server still starts and answers every
prediction request with "Model is not loaded.".

Examples:
  hairscan serve --model models/hair_disease_model.onnx
  curl -X POST -F "file=@scalp.jpg" http://localhost:8080/api/predict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.Port, "port", "p", cfg.Port, "Port to listen on")
	cmd.Flags().Int64Var(&cfg.MaxUploadBytes, "max-upload-bytes", cfg.MaxUploadBytes, "Largest accepted upload")
	cmd.Flags().IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "Number of results cached by image digest (0 disables)")
	cmd.Flags().BoolVar(&cfg.Release, "release", cfg.Release, "Run gin in release mode")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	modelServer, err := loadModel(cfg)
	if err != nil {
		log.WithError(err).Error("Model unavailable, serving in degraded mode")
	} else {
		defer modelServer.Close()
	}

	p, err := buildPipeline(cfg, modelServer)
	if err != nil {
		return err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	handlers.NewHandler(p, cfg.MaxUploadBytes).Register(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Infof("Server starting on port %s", cfg.Port)
	log.Infof("Classes: %v", p.Classes())
	log.Info("Endpoints:")
	log.Info("  GET  /             - Upload form")
	log.Info("  POST / , /predict  - Predict from form upload")
	log.Info("  POST /api/predict  - Predict from image upload (JSON)")
	log.Info("  GET  /health       - Health check")
	log.Info("  GET  /metrics      - Prometheus metrics")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
