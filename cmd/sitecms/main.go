package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/sitecms"
	"github.com/eringen/sitecms/blob"
	"github.com/eringen/sitecms/observability"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "cleanup":
		if err := runCleanup(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("sitecms %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`sitecms - bilingual content backend for blog posts, events and a gallery

Usage:
  sitecms [command] [arguments]

Commands:
  serve              Run the HTTP server (default)
  cleanup [folder]   Delete stored files older than SITECMS_TEMP_RETENTION_DAYS (folder defaults to temp)
  version            Print the sitecms version
  help               Show this help message

Configuration is read from SITECMS_* environment variables and an optional .env file.`)
}

func runServe() error {
	cfg, err := sitecms.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Dev)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	app := sitecms.New(cfg, sitecms.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Setup(ctx); err != nil {
		return err
	}
	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		app.Close()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errc
}

func runCleanup(args []string) error {
	cfg, err := sitecms.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Dev)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	folder := blob.FolderTemp
	if len(args) > 0 {
		f, ok := blob.ParseFolder(args[0])
		if !ok {
			return fmt.Errorf("unknown folder %q", args[0])
		}
		folder = f
	}

	res := blob.New(cfg.StorageDir, blob.WithLogger(logger)).Cleanup(folder, cfg.TempRetentionDays)
	if !res.Success {
		return errors.New(res.Error)
	}
	logger.Info("cleanup finished", zap.String("folder", string(folder)), zap.Int("deleted", res.Deleted))
	return nil
}
