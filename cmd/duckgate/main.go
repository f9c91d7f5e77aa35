// Command duckgate serves the MotherDuck MCP gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duckgate/duckgate"
	"github.com/duckgate/duckgate/config"
	"github.com/duckgate/duckgate/logging"
	"github.com/urfave/cli/v3"
)

// Version is set during build using ldflags.
var Version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "duckgate",
		Version: Version,
		Usage:   "Authenticating HTTP gateway for the MotherDuck MCP server",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the gateway HTTP server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the config file",
					},
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Listen address (overrides config)",
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "Log level: debug, info, warn, error",
					},
					&cli.StringFlag{
						Name:  "log-format",
						Usage: "Log format: text, json",
					},
				},
				Action: serveAction,
			},
			{
				Name:  "version",
				Usage: "Print the version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("duckgate version %s\n", cmd.Root().Version)
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	var (
		cfg config.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if v := cmd.String("listen"); v != "" {
		cfg.Listen = v
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := cmd.String("log-format"); v != "" {
		cfg.LogFormat = v
	}

	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	handler, err := duckgate.New(duckgate.Config{
		Settings: &cfg,
		Logger:   logger,
		Version:  cmd.Root().Version,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: MCP streams are long-lived.
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("duckgate listening",
		"addr", cfg.Listen,
		"mcp_path", duckgate.MCPPath,
		"secured", cfg.BearerToken != "",
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
