package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"

	"paratext/internal/config"
)

const defaultEnvFile = ".env"

// loadConfig reads envFile into the process environment, if it exists, so
// ${VAR} references in the YAML can resolve, then loads the config.
func loadConfig(cfgPath, envFile string) (config.Config, error) {
	if envFile != "" {
		err := godotenv.Load(envFile)
		switch {
		case err == nil:
			slog.Debug("loaded environment file", "path", envFile)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return config.Config{}, fmt.Errorf("load env file %q: %w", envFile, err)
		}
	}
	return config.Load(cfgPath)
}
