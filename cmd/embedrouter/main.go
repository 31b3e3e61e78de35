// Package main is the embedrouter server binary: an OpenAI-compatible
// embeddings endpoint in front of a single configured provider, with a
// transparent proxy for everything else.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	embedrouter "github.com/lattice-labs/embed-router"
	"github.com/lattice-labs/embed-router/internal/logging"
	"github.com/lattice-labs/embed-router/internal/probe"
	"github.com/lattice-labs/embed-router/internal/requestlog"
	"github.com/lattice-labs/embed-router/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:           "embedrouter",
		Short:         "OpenAI-compatible embeddings router",
		Long:          "embedrouter normalizes heterogeneous embedding-provider APIs behind one stable OpenAI-compatible endpoint.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the router (default command)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "validate <config-file>",
			Short: "Validate a router configuration file (JSON/YAML)",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return runValidate(args[0])
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version info",
			Run: func(*cobra.Command, []string) {
				fmt.Println("embedrouter " + version.String())
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	// .env files are a convenience for local runs; a missing file is fine.
	_ = godotenv.Load()

	cfg, err := embedrouter.FromEnv()
	if err != nil {
		return err
	}
	if path := os.Getenv("ROUTER_CONFIG"); path != "" {
		fileCfg, err := embedrouter.LoadConfigFile(path)
		if err != nil {
			return err
		}
		cfg = embedrouter.Overlay(cfg, fileCfg)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	log := logging.Logger

	rt, err := embedrouter.New(cfg)
	if err != nil {
		return err
	}

	var logs requestlog.Reader
	switch cfg.RequestLogDriver {
	case "sqlite":
		store, err := requestlog.NewSQLite(cfg.RequestLogDSN)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		rt.WithRequestLog(store)
		logs = store
	case "postgres":
		store, err := requestlog.NewPostgres(cfg.RequestLogDSN)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		rt.WithRequestLog(store)
		logs = store
	}

	if cfg.StartupCheck {
		go probe.Run(ctx, rt.Fetcher(), cfg.AuthSettings(), cfg.TestModel)
	}

	srv := &http.Server{
		Addr:         ":" + strings.TrimPrefix(cfg.Port, ":"),
		Handler:      newRouter(rt, cfg, logs),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err.Error())
		}
	}()

	log.Info("embedrouter listening",
		"version", version.Short(),
		"addr", srv.Addr,
		"provider", cfg.Provider,
		"base_url", cfg.BaseURL,
		"attempts", cfg.Attempts,
		"backoff_ms", cfg.BackoffMS,
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	log.Info("server stopped")
	return nil
}

func runValidate(path string) error {
	cfg, err := embedrouter.LoadConfigFile(path)
	if err != nil {
		return err
	}
	merged := embedrouter.Overlay(embedrouter.Config{Attempts: embedrouter.DefaultAttempts, Provider: "openai"}, cfg)
	if err := merged.Validate(); err != nil {
		return err
	}

	fmt.Println("✓ Config is valid")
	fmt.Printf("  Provider:  %s\n", merged.Provider)
	fmt.Printf("  Base URL:  %s\n", merged.BaseURL)
	fmt.Printf("  Attempts:  %d\n", merged.Attempts)
	return nil
}
