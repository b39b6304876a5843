package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/notes"
	"github.com/aretw0/notes/internal/platform"
)

var (
	verbose    bool
	libraryDir string
	configPath string

	cfg platform.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notes",
	Short: "Rich text notes stored as packages, synced to a paired companion",
	Long: `Notes keeps each note as a package directory holding its rich text,
attachments and QuickLook previews. The serve command answers a paired
companion device; the watch commands act as that companion.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = platform.LoadConfig(resolveConfigPath())
		if err != nil {
			fatal("Failed to load config", err)
		}

		level, _ := cfg.Level()
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&libraryDir, "library", "l", "", "Library directory (default: config, then nearest library root, then cwd)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: notes.yaml in the library root)")
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if libraryDir != "" {
		return filepath.Join(libraryDir, platform.DefaultConfigFile)
	}
	if cwd, err := os.Getwd(); err == nil {
		if root, err := platform.FindRoot(cwd); err == nil {
			return filepath.Join(root, platform.DefaultConfigFile)
		}
	}
	return platform.DefaultConfigFile
}

func resolveLibraryDir() string {
	if libraryDir != "" {
		return libraryDir
	}
	if cfg.Library != "" && cfg.Library != "." {
		return cfg.Library
	}
	cwd, err := os.Getwd()
	if err != nil {
		fatal("Failed to get CWD", err)
	}
	if root, err := platform.FindRoot(cwd); err == nil {
		return root
	}
	return cwd
}

func openLibrary(ctx context.Context) *notes.Library {
	opts := []notes.Option{notes.WithLogger(slog.Default())}
	if cfg.UseCloud {
		if len(cfg.SyncCommand) == 0 {
			slog.Warn("use_cloud is set but no sync_command is configured")
		} else {
			opts = append(opts, notes.WithSyncCommand(cfg.SyncCommand))
		}
	}

	lib, err := notes.Open(ctx, resolveLibraryDir(), opts...)
	if err != nil {
		fatal("Failed to open library", err)
	}
	return lib
}
