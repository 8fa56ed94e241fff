package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings
const (
	EnvLogLevel         = "W3_LOG_LEVEL"
	EnvSimulatorCommand = "W3_SIMULATOR_COMMAND"
	EnvSimulatorAddress = "W3_SIMULATOR_ADDRESS"
	EnvStoreDriver      = "W3_STORE_DRIVER"
	EnvStoreDSN         = "W3_STORE_DSN"
)

// LoadEnv loads .env style files into the process environment. Missing files
// are ignored; existing variables are not overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg and revalidates it.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(EnvSimulatorCommand); v != "" {
		cfg.Simulator.Command = strings.Fields(v)
		if cfg.Simulator.Kind == "" {
			cfg.Simulator.Kind = "exec"
		}
	}
	if v := os.Getenv(EnvSimulatorAddress); v != "" {
		cfg.Simulator.Address = v
		cfg.Simulator.Kind = "grpc"
	}
	if v := os.Getenv(EnvStoreDriver); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv(EnvStoreDSN); v != "" {
		cfg.Store.DSN = v
	}
	return Validate(cfg)
}
