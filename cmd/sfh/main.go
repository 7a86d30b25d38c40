package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/erer1243/sharedfileholder/internal/app"
	"github.com/erer1243/sharedfileholder/internal/config"
	"github.com/erer1243/sharedfileholder/internal/engine"
	"github.com/erer1243/sharedfileholder/internal/vault"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "sfh",
	Short:         "Deduplicating snapshot backups into a local vault",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func vaultDirFlag(cmd *cobra.Command) string {
	v, _ := cmd.Flags().GetString("vault-dir")
	return v
}

// runWithVault opens the app and the vault, runs fn, and guarantees the
// vault lock is released. An unlock failure is surfaced when fn itself
// succeeded.
func runWithVault(cmd *cobra.Command, operation string, fn func(a *app.App, v *vault.Vault) error) error {
	a, err := app.New(operation)
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := a.OpenVault(vaultDirFlag(cmd))
	if err != nil {
		return err
	}

	err = fn(a, v)
	if cerr := v.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an empty vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New("Init")
		if err != nil {
			return err
		}
		defer a.Close()

		dir, err := a.VaultDir(vaultDirFlag(cmd))
		if err != nil {
			return err
		}
		if err := engine.Init(dir); err != nil {
			return err
		}
		fmt.Printf("Initialized empty vault at %s\n", dir)
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup NAME SOURCE_DIR",
	Short: "Back up a directory tree as a named snapshot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithVault(cmd, "Backup", func(a *app.App, v *vault.Vault) error {
			s, err := engine.Backup(v, args[0], args[1], a.Logger)
			if err != nil {
				return err
			}
			fmt.Printf("Backed up %d file(s), %d directorie(s), %d symlink(s)\n",
				s.Files, s.Directories, s.Symlinks)
			fmt.Printf("Ingested %d new file(s), %s\n",
				s.NewFiles, humanize.Bytes(uint64(s.NewBytes)))
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list [NAME]",
	Short: "List backups, or the files of one backup",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithVault(cmd, "List", func(a *app.App, v *vault.Vault) error {
			if len(args) == 1 {
				files, err := engine.Files(v, args[0])
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Printf("%s  %10s  %s\n", f.Hash.Hex()[:12], humanize.Bytes(uint64(f.Size)), f.Path)
				}
				return nil
			}

			sums, err := engine.Summaries(v)
			if err != nil {
				return err
			}
			if len(sums) == 0 {
				fmt.Println("No backups.")
				return nil
			}
			fmt.Println("Backups:")
			for _, s := range sums {
				fmt.Printf("- %s\n", s.Name)
				if s.Files > 0 {
					fmt.Printf("  files:       %d (%s)\n", s.Files, humanize.Bytes(uint64(s.TotalSize)))
				}
				if s.Directories > 0 {
					fmt.Printf("  directories: %d\n", s.Directories)
				}
				if s.Symlinks > 0 {
					fmt.Printf("  symlinks:    %d\n", s.Symlinks)
				}
			}
			return nil
		})
	},
}

var mountCmd = &cobra.Command{
	Use:   "mount NAME TARGET_DIR",
	Short: "Materialize a backup as symlinks into the vault",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithVault(cmd, "Mount", func(a *app.App, v *vault.Vault) error {
			if err := engine.Mount(v, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Mounted backup %q at %s\n", args[0], args[1])
			return nil
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check vault integrity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithVault(cmd, "Verify", func(a *app.App, v *vault.Vault) error {
			r, err := engine.Verify(v)
			if err != nil {
				return err
			}
			fmt.Printf("Checked %d backup(s), %d block(s), %d stored file(s)\n",
				r.Snapshots, r.Blocks, r.StoredFiles)
			if r.OK() {
				fmt.Println("OK")
				return nil
			}
			for _, p := range r.Problems {
				fmt.Printf("PROBLEM: %s\n", p)
			}
			return fmt.Errorf("vault verification found %d problem(s)", len(r.Problems))
		})
	},
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove content no backup references",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithVault(cmd, "GC", func(a *app.App, v *vault.Vault) error {
			removed, freed, err := engine.GC(v, a.Logger)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d file(s), freed %s\n", removed, humanize.Bytes(uint64(freed)))
			return nil
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		cfg, err := config.Default()
		if err != nil {
			return err
		}
		if err := config.Init(path, cfg); err != nil {
			return err
		}
		fmt.Printf("Configuration initialized at %s\n", path)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		cfg, err := config.Read(path)
		if err != nil {
			return err
		}
		fmt.Printf("Configuration from %s:\n\n", path)
		return config.Write(os.Stdout, cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("vault-dir", "d", "",
		"vault directory (default $VAULT_DIR, then the configured default, then the current directory)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(configCmd)
}
