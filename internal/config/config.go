// Package config handles the sfh configuration file and the resolution
// rules for locating a vault.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultLockTimeout bounds how long commands wait for a vault held by
// another process before giving up with a "still locked" error.
const DefaultLockTimeout = time.Minute

// Duration wraps time.Duration so it reads and writes as a duration
// string ("30s", "5m") in TOML.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config represents the sfh configuration file.
type Config struct {
	// VaultDir is the default vault directory used when neither the
	// --vault-dir flag nor $VAULT_DIR is set.
	VaultDir    string   `toml:"vault_dir,omitempty"`
	LogDir      string   `toml:"log_dir"`
	LockTimeout Duration `toml:"lock_timeout"`
}

// Default returns the configuration used when no config file exists.
func Default() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}
	return &Config{
		LogDir:      filepath.Join(homeDir, ".local", "share", "sfh", "log"),
		LockTimeout: Duration(DefaultLockTimeout),
	}, nil
}

// Path returns the config file location, checking SFH_CONFIG_PATH
// first, then falling back to ~/.config/sfh.toml.
func Path() (string, error) {
	if path := os.Getenv("SFH_CONFIG_PATH"); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "sfh.toml"), nil
}

// Read loads the config file at path on top of the defaults. A missing
// file is not an error; it yields the defaults.
func Read(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return cfg, nil
}

// Write encodes cfg to the provided writer.
func Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// Init writes cfg at path, failing if a config file already exists.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	if err := Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// ResolveVaultDir returns the vault directory a command should operate
// on: the --vault-dir flag value if given, else $VAULT_DIR, else the
// configured default, else the current working directory.
func (c *Config) ResolveVaultDir(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv("VAULT_DIR"); env != "" {
		return env, nil
	}
	if c.VaultDir != "" {
		return c.VaultDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return wd, nil
}
