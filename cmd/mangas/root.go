package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kerbaras/mangaread/pkg/app"
	"github.com/kerbaras/mangaread/pkg/config"
	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/services"
	"github.com/kerbaras/mangaread/pkg/utils"
)

var (
	configPath string
	ephemeral  bool
	verbose    bool

	logger     *slog.Logger
	logCloser  io.Closer
	controller *services.MangaController
)

var rootCmd = &cobra.Command{
	Use:           "mangaread",
	Short:         "A terminal manga reader",
	Long:          "Browse the hot catalog listing, keep a library and read chapters in a TUI that remembers where you stopped",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if ephemeral {
			cfg.Storage.Backend = data.BackendMemory
		}

		// the TUI owns the terminal, so only CLI commands log to stderr when asked
		logFile := cfg.Log.File
		if verbose && cmd != cmd.Root() {
			logFile = ""
		}
		logger, logCloser, err = utils.NewLogger(cfg.Log.Level, logFile)
		if err != nil {
			return err
		}

		controller, err = services.NewMangaController(cfg, logger)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdown()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Launch TUI by default
		a := app.NewApp(controller, logger)
		return a.Run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "~/.mangas/config.toml", "path to the TOML config file")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep all state in memory for this run")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr instead of the log file")

	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(clearCacheCmd)
}

func shutdown() error {
	var err error
	if controller != nil {
		err = controller.Close()
		controller = nil
	}
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
	return err
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		shutdown()
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
