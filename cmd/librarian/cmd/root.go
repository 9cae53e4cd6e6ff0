// Package cmd provides the CLI commands for librarian.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/librarian/internal/chunk"
	"github.com/Aman-CERP/librarian/internal/config"
	"github.com/Aman-CERP/librarian/internal/logging"
	"github.com/Aman-CERP/librarian/internal/store"
	"github.com/Aman-CERP/librarian/internal/ui"
	"github.com/Aman-CERP/librarian/pkg/version"
)

var (
	storeFlag      string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the librarian CLI. Running it
// without a subcommand drops into the interactive chat.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "librarian",
		Short: "Semantic search over your personal book library",
		Long: `Librarian indexes your book collection (.txt, .md, .fb2, .epub) into a
local store and answers natural-language queries against it.

Run 'librarian' with no arguments for the interactive chat, or use the
index/search subcommands for one-shot batch use.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runChat(cmd)
		},
	}

	cmd.SetVersionTemplate("librarian version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Store directory (overrides config)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRun = stopLogging

	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// startLogging routes slog to the configured log file. The terminal stays
// reserved for command output.
func startLogging(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := logging.Options{
		Level:     cfg.Logging.Level,
		FilePath:  cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
	}
	if debugMode {
		opts.Level = "debug"
	}

	cleanup, err := logging.Setup(opts)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	loggingCleanup = cleanup
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// loadConfig builds the effective configuration, applying the --store
// flag override on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	if storeFlag != "" {
		cfg.Store.Path = storeFlag
	}
	return cfg, nil
}

// openStore opens the library store with the configured lock timeout,
// telling the user when another process holds the lock.
func openStore(ctx context.Context, cfg *config.Config, p *ui.Printer) (*store.Store, error) {
	return store.Open(ctx, cfg.Store.Path, store.Options{
		LockTimeout: cfg.Store.LockTimeout,
		OnLockWait: func() {
			p.Info("Waiting for store lock (another process is using the library)...")
		},
		Chunking: chunk.Options{
			Size:    cfg.Search.ChunkSize,
			Overlap: cfg.Search.ChunkOverlap,
		},
		EmbeddingCacheSize: cfg.Store.EmbeddingCacheSize,
	})
}
