package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/livebox/internal/infrastructure/config"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/server"
)

var (
	serveConfigPath string
	servePort       string
	serveDev        bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	RunE:  runServe,
}

func init() {
	// Registered on both root and serve so `livebox --port 9000` works too.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&serveConfigPath, "config", "", "path to a TOML config file (or "+config.FileEnv+")")
		cmd.Flags().StringVar(&servePort, "port", "", "override the listen port")
		cmd.Flags().BoolVar(&serveDev, "dev", false, "development mode (colored logs, debug level)")
	}
}

func loadConfig() (*config.Config, error) {
	if serveConfigPath != "" {
		if err := os.Setenv(config.FileEnv, serveConfigPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if servePort != "" {
		cfg.Server.Port = servePort
	}
	if serveDev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer srv.Close()

	return srv.Run(ctx)
}
