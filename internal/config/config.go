// Package config loads the run configuration for handpose.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ayusman/handpose/internal/detector"
)

// Defaults.
const (
	DefaultOutputDir        = "Output Images"
	DefaultMaxHands         = detector.DefaultMaxHands
	DefaultMinDetectionConf = detector.DefaultMinConfidence
	DefaultMinTrackingConf  = detector.DefaultMinTrackingConf
	DefaultLogLevel         = "info"

	// CatalogOff disables the capture catalog when used as HANDPOSE_CATALOG.
	CatalogOff = "off"
)

// Config holds everything fixed for the lifetime of one run.
type Config struct {
	// Continuous saves every processed frame (--save).
	Continuous bool
	// OutputDir receives continuous frames and snapshots.
	OutputDir string

	LogLevel string
	LogFile  string

	// CatalogPath is the SQLite database path, empty when disabled.
	CatalogPath string
	// PreviewAddr enables the preview server when non-empty.
	PreviewAddr string
	Headless    bool

	MaxHands         int
	MinDetectionConf float64
	MinTrackingConf  float64
}

// Load parses command-line args (without the program name) and reads the
// environment, loading a .env file from the working directory when present.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return parse(args, os.Getenv)
}

func parse(args []string, getenv func(string) string) (Config, error) {
	fset := flag.NewFlagSet("handpose", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	save := fset.Bool("save", false, "save every processed frame to the output directory")
	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Continuous:  *save,
		OutputDir:   getenv("HANDPOSE_OUTPUT_DIR"),
		LogLevel:    getenv("HANDPOSE_LOG_LEVEL"),
		LogFile:     getenv("HANDPOSE_LOG_FILE"),
		PreviewAddr: getenv("HANDPOSE_PREVIEW_ADDR"),
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	var err error
	if cfg.Headless, err = envBool(getenv, "HANDPOSE_HEADLESS", false); err != nil {
		return Config{}, err
	}
	if cfg.MaxHands, err = envInt(getenv, "HANDPOSE_MAX_HANDS", DefaultMaxHands); err != nil {
		return Config{}, err
	}
	if cfg.MaxHands < 1 {
		return Config{}, fmt.Errorf("HANDPOSE_MAX_HANDS must be at least 1, got %d", cfg.MaxHands)
	}
	if cfg.MinDetectionConf, err = envConfidence(getenv, "HANDPOSE_MIN_DETECTION_CONFIDENCE", DefaultMinDetectionConf); err != nil {
		return Config{}, err
	}
	if cfg.MinTrackingConf, err = envConfidence(getenv, "HANDPOSE_MIN_TRACKING_CONFIDENCE", DefaultMinTrackingConf); err != nil {
		return Config{}, err
	}

	switch catalog := getenv("HANDPOSE_CATALOG"); catalog {
	case CatalogOff:
	case "":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.CatalogPath = filepath.Join(homeDir, ".handpose", "handpose.db")
	default:
		cfg.CatalogPath = catalog
	}

	return cfg, nil
}

func envBool(getenv func(string) string, key string, def bool) (bool, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envInt(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envConfidence(getenv func(string) string, key string, def float64) (float64, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("%s must be within [0, 1], got %v", key, f)
	}
	return f, nil
}
