package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port            string
	ModelPath       string
	MetadataPath    string
	OnnxLibraryPath string
	Workers         int
	AdviceFile      string
	MaxUploadBytes  int64
	CacheSize       int
	LogLevel        string
	LogFormat       string
	Release         bool
}

// Default returns the configuration used when no flag is given. PORT and
// the HAIRSCAN_* variables override the built-in values.
func Default() Config {
	return Config{
		Port:            env("PORT", "8080"),
		ModelPath:       env("HAIRSCAN_MODEL", "models/hair_disease_model.onnx"),
		MetadataPath:    env("HAIRSCAN_METADATA", ""),
		OnnxLibraryPath: env("ONNXRUNTIME_LIB", ""),
		Workers:         envInt("HAIRSCAN_WORKERS", 1),
		AdviceFile:      env("HAIRSCAN_ADVICE_FILE", ""),
		MaxUploadBytes:  int64(envInt("HAIRSCAN_MAX_UPLOAD_BYTES", 10<<20)),
		CacheSize:       envInt("HAIRSCAN_CACHE_SIZE", 256),
		LogLevel:        env("HAIRSCAN_LOG_LEVEL", "info"),
		LogFormat:       env("HAIRSCAN_LOG_FORMAT", "text"),
		Release:         env("GIN_MODE", "") == "release",
	}
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.ModelPath == "" {
		return errors.New("model path must not be empty")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative, got %d", c.CacheSize)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// SetupLogging applies the log level and format to the standard logrus logger.
func (c Config) SetupLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("ignoring %s=%q: not a number", key, v)
		return def
	}
	return n
}
