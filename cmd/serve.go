package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"paratext/internal/metrics"
	"paratext/internal/paraphrase"
	"paratext/internal/server"
)

const serveUsage = `Usage:
  paratext serve --config <path> [--port <port>] [--env <path>]

Flags:
  --config string   Path to YAML configuration file (required)
  --port   int      Override server port from configuration
  --env    string   Environment file loaded before the config (default ".env")`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath, envFile string
	var overridePort int
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")
	fs.StringVar(&envFile, "env", defaultEnvFile, "environment file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	if cfgPath == "" {
		return errors.New("serve command requires --config <path>")
	}

	cfg, err := loadConfig(cfgPath, envFile)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort <= 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	// The backend is built on the first paraphrase request, not at startup.
	handle := paraphrase.NewHandle(newBackendLoader(cfg))

	srv, err := server.New(cfg, handle, metrics.New())
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
