// Package app is the application layer between the CLI and the engine:
// it loads configuration, sets up per-invocation logging, and opens
// vaults with the configured lock timeout.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/erer1243/sharedfileholder/internal/config"
	"github.com/erer1243/sharedfileholder/internal/engine"
	"github.com/erer1243/sharedfileholder/internal/vault"
)

// App holds the wired-up dependencies for one CLI invocation.
// The caller must call Close when done.
type App struct {
	Config  *config.Config
	Logger  engine.Logger
	logFile *os.File
}

// New loads the configuration and creates a logger tagged with a fresh
// operation ID. operation identifies the CLI command being run
// (e.g. "Backup", "Mount").
func New(operation string) (*App, error) {
	path, err := config.Path()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Read(path)
	if err != nil {
		return nil, err
	}

	opID := uuid.NewString()
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger.Debug("operation started", "operation", operation)

	return &App{
		Config:  cfg,
		Logger:  &slogAdapter{l: logger},
		logFile: logFile,
	}, nil
}

// VaultDir resolves the vault directory for this invocation from the
// given --vault-dir flag value, the environment, and the config.
func (a *App) VaultDir(flagValue string) (string, error) {
	return a.Config.ResolveVaultDir(flagValue)
}

// OpenVault resolves the vault directory and opens the vault, waiting
// at most the configured lock timeout for a competing process to
// release it.
func (a *App) OpenVault(flagValue string) (*vault.Vault, error) {
	dir, err := a.VaultDir(flagValue)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(a.Config.LockTimeout))
	defer cancel()

	v, err := vault.Open(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("opening vault at %s: %w", dir, err)
	}
	return v, nil
}

// Close releases the invocation's resources.
func (a *App) Close() error {
	if a.logFile != nil {
		return a.logFile.Close()
	}
	return nil
}
