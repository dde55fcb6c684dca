// Command handpose tracks hands in the webcam stream and draws their
// landmarks live. Press "s" for a snapshot and "q" to quit; run with --save
// to keep every frame.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/ayusman/handpose/internal/app"
	"github.com/ayusman/handpose/internal/capture"
	"github.com/ayusman/handpose/internal/config"
	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/display"
	"github.com/ayusman/handpose/internal/log"
	"github.com/ayusman/handpose/internal/overlay"
	"github.com/ayusman/handpose/internal/server"
	"github.com/ayusman/handpose/internal/sink"
	"github.com/ayusman/handpose/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		fmt.Println("usage: handpose [--save]")
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "handpose: %v\nusage: handpose [--save]\n", err)
		os.Exit(1)
	}

	log.Init(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received signal", "signal", sig.String())
		cancel()
	}()

	printBanner(cfg)

	if err := run(ctx, cfg); err != nil {
		log.Error("handpose failed", "error", xerrors.Errorf("run: %w", err))
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sessionID := uuid.NewString()

	var (
		st       *store.Store
		catalog  sink.Catalog
		sessions app.SessionRecorder
	)
	if cfg.CatalogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.CatalogPath), 0755); err != nil {
			return xerrors.Errorf("create catalog directory: %w", err)
		}

		var err error
		st, err = store.New(cfg.CatalogPath)
		if err != nil {
			return xerrors.Errorf("open catalog %s: %w", cfg.CatalogPath, err)
		}
		defer st.Close()

		err = st.Sessions().Start(&store.Session{
			ID:         sessionID,
			Continuous: cfg.Continuous,
			OutputDir:  cfg.OutputDir,
		})
		if err != nil {
			return xerrors.Errorf("record session: %w", err)
		}
		catalog = st.Captures()
		sessions = st.Sessions()
	}

	out, err := sink.New(sink.Config{
		Dir:        cfg.OutputDir,
		Continuous: cfg.Continuous,
		SessionID:  sessionID,
		Catalog:    catalog,
	})
	if err != nil {
		return xerrors.Errorf("prepare output: %w", err)
	}

	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.MaxHands,
		MinConfidence:   cfg.MinDetectionConf,
		MinTrackingConf: cfg.MinTrackingConf,
	})
	if err != nil {
		return xerrors.Errorf("start hand detector: %w", err)
	}
	defer det.Close()

	var surface display.Display
	if cfg.Headless {
		surface = display.NewHeadless()
	} else {
		surface = display.NewWindow(display.WindowTitle)
	}

	var publisher app.Publisher
	if cfg.PreviewAddr != "" {
		srv := server.New(server.Config{Store: st})
		publisher = srv.Hub()
		served := make(chan struct{})
		go func() {
			defer close(served)
			if err := srv.ListenAndServe(ctx, cfg.PreviewAddr); err != nil {
				log.Error("preview server stopped", "addr", cfg.PreviewAddr, "error", err)
			}
		}()
		// Runs before st.Close: catalog handlers must finish first.
		defer func() {
			cancel()
			<-served
		}()
	}

	loop, err := app.New(app.Config{
		Camera:     capture.NewCamera(capture.DefaultDeviceID),
		Detector:   det,
		Renderer:   overlay.NewRenderer(overlay.DefaultLandmarkSpec(), overlay.DefaultConnectionSpec()),
		Sink:       out,
		Display:    surface,
		Continuous: cfg.Continuous,
		Publisher:  publisher,
		Sessions:   sessions,
		SessionID:  sessionID,
	})
	if err != nil {
		surface.Close()
		return err
	}

	if err := loop.Run(ctx); err != nil {
		return xerrors.Errorf("session %s: %w", sessionID, err)
	}
	return nil
}

func printBanner(cfg config.Config) {
	title := color.New(color.FgCyan, color.Bold)
	key := color.New(color.FgYellow, color.Bold)

	title.Println("handpose - hand landmark tracking")
	fmt.Printf("  press %s to save a snapshot, %s to quit\n", key.Sprint("s"), key.Sprint("q"))
	if cfg.Continuous {
		fmt.Printf("  saving every frame to %s\n", color.GreenString(cfg.OutputDir))
	}
	if cfg.PreviewAddr != "" {
		fmt.Printf("  preview on %s\n", color.GreenString("http://"+cfg.PreviewAddr))
	}
}
